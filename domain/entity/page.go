package entity

import (
	"maps"
	"strings"
)

// PageType 商城页面类型（与 OCC 的 pageType 参数一致）
type PageType string

const (
	PageTypeContent  PageType = "ContentPage"
	PageTypeProduct  PageType = "ProductPage"
	PageTypeCategory PageType = "CategoryPage"
	PageTypeCatalog  PageType = "CatalogPage"
)

// PropertyFsPageTemplate 由 CMS 驱动页面时写入 page.properties 的模板标记
const PropertyFsPageTemplate = "fsPageTemplate"

// PropertyPreviewID CMS 页面在编辑器中的 previewId
const PropertyPreviewID = "previewId"

// PageContext 描述一次页面请求
type PageContext struct {
	SiteID   string   `json:"siteId"`
	ID       string   `json:"id"`
	Type     PageType `json:"type"`
	Language string   `json:"lang,omitempty"`
	Preview  bool     `json:"preview"`
}

// Component 插槽中的单个组件
type Component struct {
	UID        string         `json:"uid"`
	TypeCode   string         `json:"typeCode"`
	FlexType   string         `json:"flexType,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// PageRecord 页面根记录
type PageRecord struct {
	PageID     string         `json:"pageId"`
	Type       PageType       `json:"type,omitempty"`
	Template   string         `json:"template,omitempty"`
	Title      string         `json:"title,omitempty"`
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// PageStructure 可渲染的页面结构：根记录 + 命名插槽 -> 有序组件列表
// 商城来源和 CMS 来源在合并前都会被归一化成这个形状
type PageStructure struct {
	Page  PageRecord             `json:"page"`
	Slots map[string][]Component `json:"slots"`
}

// Clone 深拷贝，合并流程从不修改输入结构
func (p *PageStructure) Clone() *PageStructure {
	if p == nil {
		return nil
	}
	out := &PageStructure{
		Page:  p.Page,
		Slots: make(map[string][]Component, len(p.Slots)),
	}
	out.Page.Properties = cloneProperties(p.Page.Properties)
	for name, components := range p.Slots {
		out.Slots[name] = CloneComponents(components)
	}
	return out
}

// Slot 按名称读取插槽（名称大小写不敏感，OCC 返回的 position 大小写不固定）
func (p *PageStructure) Slot(name string) ([]Component, bool) {
	if p == nil {
		return nil, false
	}
	if components, ok := p.Slots[name]; ok {
		return components, true
	}
	for slotName, components := range p.Slots {
		if strings.EqualFold(slotName, name) {
			return components, true
		}
	}
	return nil, false
}

// TemplateID 小写化后的模板 ID
func (p *PageStructure) TemplateID() string {
	if p == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.Page.Template))
}

// PreviewID 页面在编辑器中的 previewId（可能为空）
func (p *PageStructure) PreviewID() string {
	if p == nil || p.Page.Properties == nil {
		return ""
	}
	id, _ := p.Page.Properties[PropertyPreviewID].(string)
	return id
}

// CloneComponents 拷贝组件列表，nil 保持为 nil
func CloneComponents(components []Component) []Component {
	if components == nil {
		return nil
	}
	out := make([]Component, len(components))
	for i, c := range components {
		out[i] = c
		out[i].Properties = cloneProperties(c.Properties)
	}
	return out
}

func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	return maps.Clone(props)
}
