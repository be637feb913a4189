package usecase

import (
	"context"
	"fmt"
	"log"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/domain/repository"
	"fs-bridge-go-server/internal/config"
	"fs-bridge-go-server/internal/merge"
)

// DrivenPageUseCase 处理由 FirstSpirit 驱动的页面（商城中不存在的页面）
// 托管页面配置决定两条路径：
// - 配置了 sapPageIdentifier/sapPageType：以该商城页面为底，只请求一次
// - 都没有配置：纯 CMS 页面，直接用 CMS 数据合成，不请求商城
type DrivenPageUseCase struct {
	cfg       *config.BridgeConfig
	commerce  repository.CommercePageSource
	pipelines merge.Pipelines
}

// NewDrivenPageUseCase 构造函数
func NewDrivenPageUseCase(cfg *config.BridgeConfig, commerce repository.CommercePageSource, pipelines merge.Pipelines) *DrivenPageUseCase {
	return &DrivenPageUseCase{cfg: cfg, commerce: commerce, pipelines: pipelines}
}

// Resolve 为 CMS 页面找到合并底板并执行合并
// 返回 (nil, nil) 表示没有结果：CMS 页面为空、没有模板 ID 或模板没有托管配置
func (uc *DrivenPageUseCase) Resolve(ctx context.Context, pageContext entity.PageContext, cmsPage *entity.PageStructure) (*entity.PageStructure, error) {
	if cmsPage == nil {
		log.Printf("[DrivenPage] ❌ 页面 %s 的 CMS 数据为空，无法处理", pageContext.ID)
		return nil, nil
	}
	templateID := cmsPage.TemplateID()
	if templateID == "" {
		log.Printf("[DrivenPage] ❌ CMS 页面 %s 没有模板 ID", cmsPage.Page.PageID)
		return nil, nil
	}

	site, err := uc.cfg.Site(pageContext.SiteID)
	if err != nil {
		return nil, err
	}
	managed := site.ManagedPages().ByTemplateID(templateID)
	if managed == nil {
		log.Printf("[DrivenPage] ⚠️ 模板 %s 没有匹配的 firstSpiritManagedPages 配置", templateID)
		return nil, nil
	}
	pipeline, err := uc.pipelines.ForSite(pageContext.SiteID)
	if err != nil {
		return nil, err
	}

	var base *entity.PageStructure
	if managed.HasCommerceIdentity() {
		commercePage, err := uc.commerce.Load(ctx, entity.PageContext{
			SiteID:   pageContext.SiteID,
			ID:       managed.SapPageIdentifier,
			Type:     managed.SapPageType,
			Language: pageContext.Language,
			Preview:  pageContext.Preview,
		})
		if err != nil {
			return nil, fmt.Errorf("load commerce page %s:%s for template %s: %w",
				managed.SapPageType, managed.SapPageIdentifier, templateID, err)
		}
		base = merge.StampTemplate(commercePage, templateID)
		log.Printf("[DrivenPage] ✅ 模板 %s 基于商城页面 %s:%s", templateID, managed.SapPageType, managed.SapPageIdentifier)
	} else {
		base = synthesize(cmsPage, managed, templateID)
		log.Printf("[DrivenPage] ✅ 模板 %s 为纯 CMS 页面，已合成 %s", templateID, cmsPage.Page.PageID)
	}

	return pipeline.Execute(base, cmsPage), nil
}

// synthesize 用 CMS 数据构造一个商城形状的空页面，插槽来自托管页面配置
func synthesize(cmsPage *entity.PageStructure, managed *config.ManagedPage, templateID string) *entity.PageStructure {
	slots := make(map[string][]entity.Component, len(managed.SlotStrategies))
	for _, s := range managed.SlotStrategies {
		slots[s.SlotName] = []entity.Component{}
	}
	return &entity.PageStructure{
		Page: entity.PageRecord{
			PageID:   cmsPage.Page.PageID,
			Type:     entity.PageTypeContent,
			Template: cmsPage.Page.Template,
			Title:    cmsPage.Page.Title,
			Name:     cmsPage.Page.Name,
			Properties: map[string]any{
				entity.PropertyFsPageTemplate: templateID,
			},
		},
		Slots: slots,
	}
}
