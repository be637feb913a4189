package occ

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/internal/config"

	json "github.com/goccy/go-json"
)

const defaultHTTPTimeout = 10 * time.Second

// PageLoader 从商城 OCC 接口读取 CMS 页面，实现 repository.CommercePageSource
type PageLoader struct {
	cfg        *config.BridgeConfig
	httpClient *http.Client
}

// NewPageLoader 构造函数
func NewPageLoader(cfg *config.BridgeConfig, httpClient *http.Client) *PageLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &PageLoader{cfg: cfg, httpClient: httpClient}
}

// PageURL 拼接页面请求地址
// ContentPage 用 pageLabelOrId，其它类型用 code
func PageURL(commerce config.CommerceConfig, pageContext entity.PageContext) string {
	query := url.Values{}
	pageType := pageContext.Type
	if pageType == "" {
		pageType = entity.PageTypeContent
	}
	query.Set("pageType", string(pageType))
	if pageType == entity.PageTypeContent {
		query.Set("pageLabelOrId", pageContext.ID)
	} else {
		query.Set("code", pageContext.ID)
	}
	if pageContext.Language != "" {
		query.Set("lang", pageContext.Language)
	}
	query.Set("fields", "DEFAULT")

	return fmt.Sprintf("%s/occ/v2/%s/cms/pages?%s",
		strings.TrimRight(commerce.BaseURL, "/"), url.PathEscape(commerce.BaseSite), query.Encode())
}

// Load 读取商城页面，404 返回 ErrCommercePageNotFound
func (l *PageLoader) Load(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error) {
	site, err := l.cfg.Site(pageContext.SiteID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PageURL(site.Commerce, pageContext), nil)
	if err != nil {
		return nil, fmt.Errorf("build occ request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("occ request for %s: %w", pageContext.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s %s", domainErrors.ErrCommercePageNotFound, pageContext.Type, pageContext.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("occ request for %s: unexpected status %d", pageContext.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read occ response: %w", err)
	}
	var page cmsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode occ page %s: %w", pageContext.ID, err)
	}
	return page.normalize(), nil
}

// ========== OCC 响应结构 ==========

type cmsPage struct {
	UID          string `json:"uid"`
	TypeCode     string `json:"typeCode"`
	Template     string `json:"template"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Label        string `json:"label"`
	RobotTag     string `json:"robotTag"`
	ContentSlots struct {
		ContentSlot []contentSlot `json:"contentSlot"`
	} `json:"contentSlots"`
}

type contentSlot struct {
	SlotID     string `json:"slotId"`
	Position   string `json:"position"`
	Components struct {
		Component []map[string]any `json:"component"`
	} `json:"components"`
}

func (p *cmsPage) normalize() *entity.PageStructure {
	properties := map[string]any{}
	if p.Label != "" {
		properties["label"] = p.Label
	}
	if p.RobotTag != "" {
		properties["robots"] = p.RobotTag
	}
	if len(properties) == 0 {
		properties = nil
	}

	structure := &entity.PageStructure{
		Page: entity.PageRecord{
			PageID:     p.UID,
			Type:       entity.PageType(p.TypeCode),
			Template:   p.Template,
			Name:       p.Name,
			Title:      p.Title,
			Properties: properties,
		},
		Slots: make(map[string][]entity.Component, len(p.ContentSlots.ContentSlot)),
	}

	for _, slot := range p.ContentSlots.ContentSlot {
		position := slot.Position
		if position == "" {
			position = slot.SlotID
		}
		components := make([]entity.Component, 0, len(slot.Components.Component))
		for _, raw := range slot.Components.Component {
			components = append(components, normalizeComponent(raw))
		}
		structure.Slots[position] = components
	}
	return structure
}

func normalizeComponent(raw map[string]any) entity.Component {
	component := entity.Component{Properties: map[string]any{}}
	for key, value := range raw {
		switch key {
		case "uid":
			component.UID, _ = value.(string)
		case "typeCode":
			component.TypeCode, _ = value.(string)
		case "flexType":
			component.FlexType, _ = value.(string)
		default:
			component.Properties[key] = value
		}
	}
	if len(component.Properties) == 0 {
		component.Properties = nil
	}
	return component
}
