package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// 预览默认参数
const (
	DefaultPollAttempts      = 5
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultConnectionTimeout = 6 * time.Second
	DefaultReconnectInitial  = 1 * time.Second
	DefaultReconnectMax      = 30 * time.Second
	DefaultReconnectRetries  = 10
)

// CaasConfig 站点的 CaaS 访问配置
type CaasConfig struct {
	BaseURL       string `yaml:"baseUrl" validate:"required,url"`
	Project       string `yaml:"project" validate:"required"`
	APIKey        string `yaml:"apiKey" validate:"required"`
	APIKeyPreview string `yaml:"apiKeyPreview"`
	TenantID      string `yaml:"tenantId" validate:"required"`
}

// CommerceConfig 商城 OCC 后端配置
type CommerceConfig struct {
	BaseURL string `yaml:"baseUrl" validate:"required,url"`
	// BaseSite OCC 中的站点 ID，留空时使用桥接配置中的站点 key
	BaseSite string `yaml:"baseSite"`
}

// SiteConfig 单个站点的桥接配置
type SiteConfig struct {
	Caas                    CaasConfig     `yaml:"caas"`
	Commerce                CommerceConfig `yaml:"commerce"`
	FirstSpiritManagedPages []ManagedPage  `yaml:"firstSpiritManagedPages" validate:"dive"`

	managedPages ManagedPages
}

// ManagedPages 返回按模板 ID 建好索引的 FirstSpirit 托管页面配置
func (s *SiteConfig) ManagedPages() ManagedPages {
	return s.managedPages
}

// ReconnectConfig CaaS 变更流断线重连策略（指数退避 + 抖动 + 上限）
type ReconnectConfig struct {
	ConnectionTimeout time.Duration `yaml:"connectionTimeout"`
	InitialDelay      time.Duration `yaml:"initialDelay"`
	MaxDelay          time.Duration `yaml:"maxDelay"`
	MaxRetries        int           `yaml:"maxRetries" validate:"gte=0"`
}

// PreviewConfig 预览事件协调相关参数
type PreviewConfig struct {
	PollAttempts     int             `yaml:"pollAttempts" validate:"gte=0"`
	PollInterval     time.Duration   `yaml:"pollInterval"`
	CaasFetchRetries int             `yaml:"caasFetchRetries" validate:"gte=0"`
	Reconnect        ReconnectConfig `yaml:"reconnect"`
	Debug            bool            `yaml:"debug"`
}

// BridgeConfig 启动时加载一次，之后只读
type BridgeConfig struct {
	Bridge  map[string]*SiteConfig `yaml:"bridge" validate:"required,min=1,dive,required"`
	Preview PreviewConfig          `yaml:"preview"`
}

// Site 按站点 ID 获取配置
func (c *BridgeConfig) Site(siteID string) (*SiteConfig, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrSiteNotConfigured, siteID)
	}
	site, ok := c.Bridge[siteID]
	if !ok || site == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrSiteNotConfigured, siteID)
	}
	return site, nil
}

// Load 从 YAML 文件加载桥接配置，文件内容中的 ${VAR} 会被环境变量替换
func Load(path string) (*BridgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bridge config %s: %w", path, err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse 解析并校验桥接配置
// 未知的合并策略 ID 在这里就被拒绝，而不是等到合并时
func Parse(data []byte) (*BridgeConfig, error) {
	var cfg BridgeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse bridge config: %w", err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}

	for siteID, site := range cfg.Bridge {
		pages, err := NewManagedPages(site.FirstSpiritManagedPages)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", siteID, err)
		}
		site.managedPages = pages
		if site.Commerce.BaseSite == "" {
			site.Commerce.BaseSite = siteID
		}
	}
	return &cfg, nil
}

func (c *BridgeConfig) applyDefaults() {
	p := &c.Preview
	if p.PollAttempts == 0 {
		p.PollAttempts = DefaultPollAttempts
	}
	if p.PollInterval == 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.Reconnect.ConnectionTimeout == 0 {
		p.Reconnect.ConnectionTimeout = DefaultConnectionTimeout
	}
	if p.Reconnect.InitialDelay == 0 {
		p.Reconnect.InitialDelay = DefaultReconnectInitial
	}
	if p.Reconnect.MaxDelay == 0 {
		p.Reconnect.MaxDelay = DefaultReconnectMax
	}
	if p.Reconnect.MaxRetries == 0 {
		p.Reconnect.MaxRetries = DefaultReconnectRetries
	}
}

// ========== 合并策略 ==========

// StrategyID 插槽合并策略 ID（封闭集合，只能通过新增 ID 扩展）
type StrategyID string

const (
	// StrategyReplace 无条件用 CMS 内容替换
	StrategyReplace StrategyID = "replace"
	// StrategyFallback CMS 内容为空时回退到商城内容
	StrategyFallback StrategyID = "fallback"
	// StrategyAppend 商城内容在前，CMS 内容在后
	StrategyAppend StrategyID = "append"
	// StrategyPrepend CMS 内容在前，商城内容在后
	StrategyPrepend StrategyID = "prepend"
)

// KnownStrategies 所有合法的策略 ID
var KnownStrategies = []StrategyID{StrategyReplace, StrategyFallback, StrategyAppend, StrategyPrepend}

// UnknownStrategyError 配置中出现未知策略 ID
type UnknownStrategyError struct {
	TemplateID string
	SlotName   string
	StrategyID StrategyID
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown merge strategy %q for slot %q of template %q", e.StrategyID, e.SlotName, e.TemplateID)
}

// ParseStrategyID 大小写不敏感地解析策略 ID
func ParseStrategyID(raw string) (StrategyID, bool) {
	id := StrategyID(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range KnownStrategies {
		if id == known {
			return id, true
		}
	}
	return "", false
}

// SlotStrategy 单个插槽的策略声明
type SlotStrategy struct {
	SlotName   string     `yaml:"slotName" validate:"required"`
	StrategyID StrategyID `yaml:"strategyId" validate:"required"`
}

// ManagedPage FirstSpirit 托管页面配置
// SapPageIdentifier + SapPageType 同时存在：基于已有商城页面；都为空：纯 CMS 页面，直接合成
type ManagedPage struct {
	TemplateID        string          `yaml:"templateId" validate:"required"`
	SapPageIdentifier string          `yaml:"sapPageIdentifier"`
	SapPageType       entity.PageType `yaml:"sapPageType"`
	SlotStrategies    []SlotStrategy  `yaml:"slotStrategies" validate:"dive"`
}

// HasCommerceIdentity 是否指向一个已有的商城页面
func (m *ManagedPage) HasCommerceIdentity() bool {
	return m.SapPageIdentifier != "" && m.SapPageType != ""
}

// ManagedPages 以小写模板 ID 为 key 的只读索引
type ManagedPages struct {
	byTemplate map[string]*ManagedPage
}

// NewManagedPages 构建索引，同时规范化策略 ID；重复模板或未知策略返回错误
func NewManagedPages(pages []ManagedPage) (ManagedPages, error) {
	index := make(map[string]*ManagedPage, len(pages))
	for i := range pages {
		page := pages[i]
		key := strings.ToLower(strings.TrimSpace(page.TemplateID))
		if key == "" {
			return ManagedPages{}, errors.New("managed page without templateId")
		}
		if _, exists := index[key]; exists {
			return ManagedPages{}, fmt.Errorf("duplicate managed page template %q", page.TemplateID)
		}
		if (page.SapPageIdentifier == "") != (page.SapPageType == "") {
			return ManagedPages{}, fmt.Errorf("template %q: sapPageIdentifier and sapPageType must be set together", page.TemplateID)
		}

		strategies := make([]SlotStrategy, len(page.SlotStrategies))
		for j, s := range page.SlotStrategies {
			id, ok := ParseStrategyID(string(s.StrategyID))
			if !ok {
				return ManagedPages{}, &UnknownStrategyError{
					TemplateID: page.TemplateID,
					SlotName:   s.SlotName,
					StrategyID: s.StrategyID,
				}
			}
			strategies[j] = SlotStrategy{SlotName: s.SlotName, StrategyID: id}
		}
		page.SlotStrategies = strategies
		index[key] = &page
	}
	return ManagedPages{byTemplate: index}, nil
}

// ByTemplateID 大小写不敏感地查找托管页面配置，空 ID 或未知 ID 返回 nil
func (m ManagedPages) ByTemplateID(templateID string) *ManagedPage {
	key := strings.ToLower(strings.TrimSpace(templateID))
	if key == "" || m.byTemplate == nil {
		return nil
	}
	return m.byTemplate[key]
}

// Len 已配置的模板数量
func (m ManagedPages) Len() int {
	return len(m.byTemplate)
}
