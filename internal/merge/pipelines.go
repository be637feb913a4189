package merge

import (
	"fmt"
	"log"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/internal/config"
)

// Pipelines 每个站点一条流水线，配置加载时一次性构建
type Pipelines map[string]*Pipeline

// NewPipelines 为所有站点构建流水线
func NewPipelines(cfg *config.BridgeConfig) (Pipelines, error) {
	pipelines := make(Pipelines, len(cfg.Bridge))
	for siteID, site := range cfg.Bridge {
		pipeline, err := NewSitePipeline(site)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", siteID, err)
		}
		pipelines[siteID] = pipeline
	}
	return pipelines, nil
}

// ForSite 获取站点的流水线
func (p Pipelines) ForSite(siteID string) (*Pipeline, error) {
	pipeline, ok := p[siteID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrSiteNotConfigured, siteID)
	}
	return pipeline, nil
}

// StampTemplate 返回写入了 fsPageTemplate 属性的副本，已有值会被覆盖
func StampTemplate(page *entity.PageStructure, templateID string) *entity.PageStructure {
	stamped := page.Clone()
	merged, err := mergeProperties(stamped.Page.Properties, map[string]any{
		entity.PropertyFsPageTemplate: templateID,
	})
	if err != nil {
		log.Printf("[Merge] ⚠️ 写入 fsPageTemplate 失败: %v", err)
		if stamped.Page.Properties == nil {
			stamped.Page.Properties = map[string]any{}
		}
		stamped.Page.Properties[entity.PropertyFsPageTemplate] = templateID
		return stamped
	}
	stamped.Page.Properties = merged
	return stamped
}
