package repository

import (
	"context"

	"fs-bridge-go-server/domain/entity"
)

// CommercePageSource 商城（OCC）页面来源
type CommercePageSource interface {
	// Load 加载商城页面，页面不存在时返回 ErrCommercePageNotFound
	Load(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error)
}

// CmsPageSource CMS（CaaS）页面来源
type CmsPageSource interface {
	// Load 加载并归一化 CMS 页面，CaaS 中没有对应文档时返回 (nil, nil)
	Load(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error)
}
