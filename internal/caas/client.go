package caas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fs-bridge-go-server/internal/config"

	json "github.com/goccy/go-json"
)

const defaultHTTPTimeout = 10 * time.Second

// Client 针对单个集合（站点 + 模式）的 CaaS HTTP 客户端
type Client struct {
	access     *AccessData
	httpClient *http.Client
}

// NewClient 创建客户端，httpClient 为 nil 时使用带超时的默认客户端
func NewClient(access *AccessData, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{access: access, httpClient: httpClient}
}

// Access 返回客户端使用的访问数据
func (c *Client) Access() *AccessData {
	return c.access
}

// GetByUID 按 uid（和可选语言）查询文档
// GET {collectionUrl}?rep=hal&filter={"uid":...}&filter={"locale.language":...}
func (c *Client) GetByUID(ctx context.Context, uid, language string) ([]Document, error) {
	query := url.Values{}
	query.Set("rep", "hal")
	query.Add("filter", mustFilter("uid", uid))
	if language != "" {
		query.Add("filter", mustFilter("locale.language", language))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.access.CollectionURL()+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build caas request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.access.APIKey)
	req.Header.Set("Accept", "application/hal+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caas request for %s: %w", uid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []Document{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caas request for %s: unexpected status %d", uid, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read caas response: %w", err)
	}
	return FindDocumentsInBody(body), nil
}

// FindFirstByUID 返回第一条匹配文档，没有时返回 nil
func (c *Client) FindFirstByUID(ctx context.Context, uid, language string) (Document, error) {
	docs, err := c.GetByUID(ctx, uid, language)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func mustFilter(field, value string) string {
	data, _ := json.Marshal(map[string]string{field: value})
	return string(data)
}

// ========== 客户端工厂 ==========

// ClientFactory 按站点和模式创建 CaaS 客户端
type ClientFactory struct {
	cfg        *config.BridgeConfig
	httpClient *http.Client
}

// NewClientFactory 构造函数
func NewClientFactory(cfg *config.BridgeConfig, httpClient *http.Client) *ClientFactory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &ClientFactory{cfg: cfg, httpClient: httpClient}
}

// ForSite 为站点创建客户端，每次调用都重新计算访问数据
func (f *ClientFactory) ForSite(siteID string, isPreview bool) (*Client, error) {
	access, err := Resolve(f.cfg, siteID, isPreview)
	if err != nil {
		return nil, err
	}
	return NewClient(access, f.httpClient), nil
}
