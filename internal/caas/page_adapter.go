package caas

import (
	"context"
	"fmt"
	"maps"

	"fs-bridge-go-server/domain/entity"
)

// FlexTypeFsSection CMS 组件在商城页面中使用的 flexType
const FlexTypeFsSection = "FsSectionComponent"

// PageAdapter 实现 repository.CmsPageSource：从 CaaS 读取 PageRef 文档并归一化为页面结构
type PageAdapter struct {
	factory *ClientFactory
}

// NewPageAdapter 构造函数
func NewPageAdapter(factory *ClientFactory) *PageAdapter {
	return &PageAdapter{factory: factory}
}

// Load 加载 CMS 页面，CaaS 中不存在时返回 (nil, nil)
func (a *PageAdapter) Load(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error) {
	client, err := a.factory.ForSite(pageContext.SiteID, pageContext.Preview)
	if err != nil {
		return nil, err
	}
	doc, err := client.FindFirstByUID(ctx, pageContext.ID, pageContext.Language)
	if err != nil {
		return nil, fmt.Errorf("load cms page %s: %w", pageContext.ID, err)
	}
	if doc == nil {
		return nil, nil
	}
	return NormalizePage(doc), nil
}

// NormalizePage 把 CaaS PageRef 文档转换为页面结构
//
//	{uid, name, displayName, previewId, page: {template: {uid}, children: [{name, children: [section...]}]}}
func NormalizePage(doc Document) *entity.PageStructure {
	page := asMap(doc["page"])

	structure := &entity.PageStructure{
		Page: entity.PageRecord{
			PageID:   doc.UID(),
			Type:     entity.PageTypeContent,
			Template: templateUID(page["template"]),
			Name:     asString(doc["name"]),
			Title:    asString(doc["displayName"]),
		},
		Slots: make(map[string][]entity.Component),
	}
	if previewID := asString(doc["previewId"]); previewID != "" {
		structure.Page.Properties = map[string]any{entity.PropertyPreviewID: previewID}
	}

	for _, rawBody := range asSlice(page["children"]) {
		body := asMap(rawBody)
		name := asString(body["name"])
		if name == "" {
			continue
		}
		sections := asSlice(body["children"])
		components := make([]entity.Component, 0, len(sections))
		for _, rawSection := range sections {
			if component, ok := normalizeSection(asMap(rawSection)); ok {
				components = append(components, component)
			}
		}
		structure.Slots[name] = components
	}
	return structure
}

func normalizeSection(section map[string]any) (entity.Component, bool) {
	if section == nil {
		return entity.Component{}, false
	}
	uid := asString(section["identifier"])
	if uid == "" {
		uid = asString(section["previewId"])
	}
	if uid == "" {
		return entity.Component{}, false
	}

	props := map[string]any{}
	if formData := asMap(section["formData"]); formData != nil {
		props = maps.Clone(formData)
	}
	if previewID := asString(section["previewId"]); previewID != "" {
		props[entity.PropertyPreviewID] = previewID
	}

	typeCode := asString(section["sectionType"])
	if typeCode == "" {
		typeCode = templateUID(section["template"])
	}

	return entity.Component{
		UID:        uid,
		TypeCode:   typeCode,
		FlexType:   FlexTypeFsSection,
		Properties: props,
	}, true
}

// template 可能是字符串，也可能是 {uid: ...} 对象
func templateUID(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return asString(asMap(raw)["uid"])
}

func asMap(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case Document:
		return v
	}
	return nil
}

func asSlice(raw any) []any {
	s, _ := raw.([]any)
	return s
}

func asString(raw any) string {
	s, _ := raw.(string)
	return s
}
