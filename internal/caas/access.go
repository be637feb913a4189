package caas

import (
	"fmt"
	"net/url"
	"strings"

	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/internal/config"
)

// Mode CaaS 集合模式
type Mode string

const (
	ModePreview Mode = "preview"
	ModeRelease Mode = "release"
)

// AccessData 访问 CaaS 所需的只读数据
// 每个请求上下文（站点 + 模式）重新计算，不跨站点/模式缓存
type AccessData struct {
	BaseURL  string
	TenantID string
	Project  string
	APIKey   string
	Mode     Mode
}

// Resolve 根据站点配置与预览标记计算 CaaS 访问数据
// 预览模式下优先使用 apiKeyPreview，缺失时回退到 apiKey，保证预览模式总能拿到可用的 key
func Resolve(cfg *config.BridgeConfig, siteID string, isPreview bool) (*AccessData, error) {
	site, err := cfg.Site(siteID)
	if err != nil {
		// 未知站点同时满足 ErrCaasConfigMissing 和 ErrSiteNotConfigured
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrCaasConfigMissing, err)
	}
	caasCfg := site.Caas
	if caasCfg.BaseURL == "" || caasCfg.TenantID == "" || caasCfg.Project == "" || caasCfg.APIKey == "" {
		return nil, fmt.Errorf("%w: site %s", domainErrors.ErrCaasConfigMissing, siteID)
	}

	mode := ModeRelease
	apiKey := caasCfg.APIKey
	if isPreview {
		mode = ModePreview
		if caasCfg.APIKeyPreview != "" {
			apiKey = caasCfg.APIKeyPreview
		}
	}

	return &AccessData{
		BaseURL:  strings.TrimRight(caasCfg.BaseURL, "/"),
		TenantID: caasCfg.TenantID,
		Project:  caasCfg.Project,
		APIKey:   apiKey,
		Mode:     mode,
	}, nil
}

// CollectionURL {baseUrl}/{tenantId}/{project}.{preview|release}.content
func (a *AccessData) CollectionURL() string {
	return fmt.Sprintf("%s/%s/%s.%s.content", a.BaseURL, a.TenantID, a.Project, a.Mode)
}

// TokenURL 短期安全令牌端点
func (a *AccessData) TokenURL() string {
	return fmt.Sprintf("%s/_logic/securetoken?tenant=%s", a.BaseURL, url.QueryEscape(a.TenantID))
}

// ChangeStreamURL 集合的变更流 WebSocket 地址
// https 基址使用 wss，http 基址（本地/测试）使用 ws
func (a *AccessData) ChangeStreamURL(secureToken string) (string, error) {
	collection, err := url.Parse(a.CollectionURL())
	if err != nil {
		return "", fmt.Errorf("parse collection url: %w", err)
	}
	scheme := "wss"
	if collection.Scheme == "http" {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s%s/_streams/crud?securetoken=%s",
		scheme, collection.Host, collection.Path, url.QueryEscape(secureToken)), nil
}
