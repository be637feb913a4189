package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/domain/repository"
	"fs-bridge-go-server/internal/merge"

	"golang.org/x/sync/errgroup"
)

// DrivenPageResolver CMS 驱动页面的解析能力
type DrivenPageResolver interface {
	Resolve(ctx context.Context, pageContext entity.PageContext, cmsPage *entity.PageStructure) (*entity.PageStructure, error)
}

// PageUseCase 页面连接器：并行读取商城页面和 CMS 页面，然后合并
type PageUseCase struct {
	commerce  repository.CommercePageSource
	cms       repository.CmsPageSource
	driven    DrivenPageResolver
	pipelines merge.Pipelines
}

// NewPageUseCase 构造函数，依赖注入
func NewPageUseCase(commerce repository.CommercePageSource, cms repository.CmsPageSource, driven DrivenPageResolver, pipelines merge.Pipelines) *PageUseCase {
	return &PageUseCase{commerce: commerce, cms: cms, driven: driven, pipelines: pipelines}
}

// GetPage 获取合并后的页面
// - 商城 404：这是区分商城驱动和 CMS 驱动页面的预期分支，交给 DrivenPageResolver
// - 商城其它错误：直接返回
// - CMS 侧失败：记录原因并返回未修改的商城页面
func (uc *PageUseCase) GetPage(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error) {
	pipeline, err := uc.pipelines.ForSite(pageContext.SiteID)
	if err != nil {
		return nil, err
	}

	var (
		commercePage, cmsPage *entity.PageStructure
		commerceErr, cmsErr   error
		g                     errgroup.Group
	)
	g.Go(func() error {
		commercePage, commerceErr = uc.commerce.Load(ctx, pageContext)
		return nil
	})
	g.Go(func() error {
		cmsPage, cmsErr = uc.cms.Load(ctx, pageContext)
		return nil
	})
	_ = g.Wait()

	if commerceErr != nil {
		if !errors.Is(commerceErr, domainErrors.ErrCommercePageNotFound) {
			return nil, commerceErr
		}
		log.Printf("[PageConnector] ⚠️ 商城中没有页面 '%s'，404 用于区分商城驱动和 FirstSpirit 驱动的页面", pageContext.ID)
		return uc.resolveDriven(ctx, pageContext, cmsPage, cmsErr)
	}

	if cmsErr != nil {
		log.Printf("[PageConnector] ❌ 页面 '%s'（类型 '%s'）集成 CaaS 内容失败: %v", pageContext.ID, pageContext.Type, cmsErr)
		return commercePage, nil
	}
	return pipeline.Execute(commercePage, cmsPage), nil
}

func (uc *PageUseCase) resolveDriven(ctx context.Context, pageContext entity.PageContext, cmsPage *entity.PageStructure, cmsErr error) (*entity.PageStructure, error) {
	if cmsErr != nil {
		log.Printf("[PageConnector] ❌ 页面 '%s' 的 CaaS 内容读取失败: %v", pageContext.ID, cmsErr)
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrPageNotFound, pageContext.ID)
	}

	driven, err := uc.driven.Resolve(ctx, pageContext, cmsPage)
	if err != nil {
		log.Printf("[PageConnector] ❌ 页面 '%s' 的 FirstSpirit 驱动页面处理失败: %v", pageContext.ID, err)
		return nil, err
	}
	if driven == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrPageNotFound, pageContext.ID)
	}
	return driven, nil
}
