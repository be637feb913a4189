package merge

import (
	"fmt"
	"log"
	"strings"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/config"

	jsonpatch "github.com/evanphx/json-patch/v5"
	json "github.com/goccy/go-json"
)

// slotPlan 单个插槽的合并计划（配置加载时解析好策略函数）
type slotPlan struct {
	slotName string
	strategy Strategy
}

// stage 合并阶段：接收累加器和两个来源，返回新的累加器，不修改任何输入
type stage struct {
	name  string
	apply func(acc, commerce, cms *entity.PageStructure, plan []slotPlan) *entity.PageStructure
}

// Pipeline 按固定顺序执行的合并阶段
// 1. seed: 以商城页面为初始累加器
// 2. slots: 对模板配置中的每个插槽执行策略
// 3. metadata: 复制商城页面没有的 CMS 元数据
type Pipeline struct {
	plans  map[string][]slotPlan // 小写模板 ID -> 插槽计划
	stages []stage
}

// NewPipeline 根据站点的托管页面配置构建流水线
// 未知策略 ID 在这里返回错误
func NewPipeline(pages []config.ManagedPage) (*Pipeline, error) {
	plans := make(map[string][]slotPlan, len(pages))
	for _, page := range pages {
		plan := make([]slotPlan, 0, len(page.SlotStrategies))
		for _, s := range page.SlotStrategies {
			id, _ := config.ParseStrategyID(string(s.StrategyID))
			strategy, ok := Lookup(id)
			if !ok {
				return nil, &config.UnknownStrategyError{
					TemplateID: page.TemplateID,
					SlotName:   s.SlotName,
					StrategyID: s.StrategyID,
				}
			}
			plan = append(plan, slotPlan{slotName: s.SlotName, strategy: strategy})
		}
		plans[strings.ToLower(strings.TrimSpace(page.TemplateID))] = plan
	}

	return &Pipeline{
		plans: plans,
		stages: []stage{
			{name: "seed", apply: seedStage},
			{name: "slots", apply: slotsStage},
			{name: "metadata", apply: metadataStage},
		},
	}, nil
}

// NewSitePipeline 便捷构造：使用站点配置中的托管页面
func NewSitePipeline(site *config.SiteConfig) (*Pipeline, error) {
	return NewPipeline(site.FirstSpiritManagedPages)
}

// Execute 合并商城页面和 CMS 页面
// CMS 页面没有模板 ID 或模板未配置时原样返回商城页面（只记录警告）
func (p *Pipeline) Execute(commerce, cms *entity.PageStructure) *entity.PageStructure {
	if commerce == nil || cms == nil {
		return commerce
	}

	templateID := cms.TemplateID()
	if templateID == "" {
		log.Printf("[Merge] ⚠️ CMS 页面 %s 没有模板 ID，跳过合并", cms.Page.PageID)
		return commerce
	}
	plan, ok := p.plans[templateID]
	if !ok {
		log.Printf("[Merge] ⚠️ 模板 %s 没有 firstSpiritManagedPages 配置，跳过合并", templateID)
		return commerce
	}

	acc := commerce
	for _, st := range p.stages {
		acc = st.apply(acc, commerce, cms, plan)
	}
	return acc
}

// HasTemplate 模板是否有合并配置
func (p *Pipeline) HasTemplate(templateID string) bool {
	_, ok := p.plans[strings.ToLower(strings.TrimSpace(templateID))]
	return ok
}

// ========== 阶段实现 ==========

func seedStage(_, commerce, _ *entity.PageStructure, _ []slotPlan) *entity.PageStructure {
	return commerce.Clone()
}

func slotsStage(acc, _, cms *entity.PageStructure, plan []slotPlan) *entity.PageStructure {
	next := acc.Clone()
	for _, slot := range plan {
		cmsComponents, _ := cms.Slot(slot.slotName)
		key := slotKey(next, slot.slotName)
		next.Slots[key] = slot.strategy(next.Slots[key], cmsComponents)
	}
	return next
}

// metadataStage 把商城页面没有的 CMS 元数据（模板、previewId、其它属性）合并进 properties
// 使用 RFC 7386 merge patch，商城已有的 key 不会被覆盖
func metadataStage(acc, _, cms *entity.PageStructure, _ []slotPlan) *entity.PageStructure {
	patch := map[string]any{}
	for key, value := range cms.Page.Properties {
		if _, exists := acc.Page.Properties[key]; !exists {
			patch[key] = value
		}
	}
	if _, exists := acc.Page.Properties[entity.PropertyFsPageTemplate]; !exists {
		patch[entity.PropertyFsPageTemplate] = cms.TemplateID()
	}
	if len(patch) == 0 {
		return acc
	}

	merged, err := mergeProperties(acc.Page.Properties, patch)
	if err != nil {
		log.Printf("[Merge] ⚠️ 合并页面属性失败: %v", err)
		return acc
	}
	next := acc.Clone()
	next.Page.Properties = merged
	return next
}

func mergeProperties(base, patch map[string]any) (map[string]any, error) {
	if base == nil {
		base = map[string]any{}
	}
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	mergedJSON, err := jsonpatch.MergePatch(baseJSON, patchJSON)
	if err != nil {
		return nil, fmt.Errorf("apply merge patch: %w", err)
	}
	var merged map[string]any
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return merged, nil
}

// slotKey 商城插槽名大小写可能与配置不同，优先复用已有 key
func slotKey(page *entity.PageStructure, name string) string {
	if _, ok := page.Slots[name]; ok {
		return name
	}
	for existing := range page.Slots {
		if strings.EqualFold(existing, name) {
			return existing
		}
	}
	return name
}
