package preview

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

// 编辑器中读写商城页面 ID 的脚本
const (
	ScriptGetCommercePageID = "script:get_hybris_page_id"
	ScriptSetCommercePageID = "script:set_hybris_page_id"
)

// TranslationKey 编辑器错误对话框使用的翻译 key
type TranslationKey string

const (
	KeyPageNotAvailableYet   TranslationKey = "REQUESTED_CAAS_PAGE_NOT_AVAILABLE_YET"
	KeyCommercePageIDIsNull  TranslationKey = "NAVIGATION_ERROR_HYBRIS_PAGE_ID_IS_NULL"
	KeyElementStatusHasNoUID TranslationKey = "NAVIGATION_ERROR_ELEMENT_STATUS_HAS_NO_UID"
)

// ElementStatus 编辑器返回的元素状态（只保留用到的字段）
type ElementStatus struct {
	ID          string `json:"id,omitempty"`
	UID         string `json:"uid,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Name        string `json:"name,omitempty"`
	PreviewID   string `json:"previewId,omitempty"`
	Language    string `json:"language,omitempty"`
	ElementType string `json:"elementType,omitempty"`
}

// Label 日志用的显示名
func (s *ElementStatus) Label() string {
	switch {
	case s == nil:
		return "<not available>"
	case s.DisplayName != "":
		return s.DisplayName
	case s.Name != "":
		return s.Name
	}
	return "<not available>"
}

// CreateSectionOptions 创建 section 的参数
type CreateSectionOptions struct {
	Body     string `json:"body,omitempty"`
	Template string `json:"template,omitempty"`
	Name     string `json:"name,omitempty"`
	Index    int    `json:"index,omitempty"`
	Result   bool   `json:"result,omitempty"`
}

// Button 注册到编辑器的按钮
type Button struct {
	Label  string         `json:"label"`
	CSS    string         `json:"css,omitempty"`
	Script string         `json:"script"`
	Params map[string]any `json:"params,omitempty"`
}

// EditorSDK 可视化编辑器的远程能力，所有调用都可能失败
type EditorSDK interface {
	GetPreviewElement(ctx context.Context) (string, error)
	SetPreviewElement(ctx context.Context, previewID string) error
	GetElementStatus(ctx context.Context, previewID string) (*ElementStatus, error)
	Execute(ctx context.Context, script string, params map[string]any) (json.RawMessage, error)
	CreateSection(ctx context.Context, previewID string, opts CreateSectionOptions) (json.RawMessage, error)
	RegisterButton(ctx context.Context, button Button, priority int) error
	TriggerRerenderView(ctx context.Context) error
	GetPreviewLanguage(ctx context.Context) (string, error)
	// ShowEditDialog 尽力而为的命令：立即返回，不等待结果，也不保证与后续调用的顺序
	ShowEditDialog(previewID string)
	ShowErrorDialog(ctx context.Context, key TranslationKey, params map[string]string) error
}

// Storefront 商城前端：导航和语言切换
type Storefront interface {
	// NavigateTo 导航到 "{PageType}:{id}" 形式的商城页面，目标无法解析为路由时返回 false
	NavigateTo(ctx context.Context, commercePageID string) (bool, error)
	SetActiveLanguage(ctx context.Context, lang string) error
}

// GetCommercePageID 读取元素表单中存储的商城页面 ID
// 没有映射时脚本会原样返回 uid；脚本返回 null 时结果为空字符串
func GetCommercePageID(ctx context.Context, editor EditorSDK, uid string) (string, error) {
	raw, err := editor.Execute(ctx, ScriptGetCommercePageID, map[string]any{"uid": uid})
	if err != nil {
		return "", fmt.Errorf("get commerce page id for %s: %w", uid, err)
	}
	if len(raw) == 0 {
		return "", nil
	}
	var pageID *string
	if err := json.Unmarshal(raw, &pageID); err != nil {
		return "", fmt.Errorf("decode commerce page id for %s: %w", uid, err)
	}
	if pageID == nil {
		return "", nil
	}
	return *pageID, nil
}

// SetCommercePageID 把商城页面 ID 写回元素表单
func SetCommercePageID(ctx context.Context, editor EditorSDK, uid, commercePageID string) error {
	_, err := editor.Execute(ctx, ScriptSetCommercePageID, map[string]any{
		"uid":          uid,
		"hybrisPageId": commercePageID,
	})
	if err != nil {
		return fmt.Errorf("set commerce page id for %s: %w", uid, err)
	}
	return nil
}
