package preview

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/retry"

	json "github.com/goccy/go-json"
)

// HomepageUID 首页在 CMS 中的 uid
const HomepageUID = "homepage"

const eventQueueSize = 32

// errAborted 新页面尚未同步到 CaaS：已提示用户，跳过最后一步
var errAborted = errors.New("preview request aborted")

// DocumentFetcher 按 uid 和语言读取 CaaS 文档，不存在时返回 nil
type DocumentFetcher interface {
	FindFirstByUID(ctx context.Context, uid, language string) (caas.Document, error)
}

// Options 协调器参数
type Options struct {
	PollAttempts     int
	PollInterval     time.Duration
	CaasFetchRetries int
	CaasRetryDelay   time.Duration
}

type eventKind int

const (
	eventRequestPreviewElement eventKind = iota
	eventPageChanged
	eventFocusHomepage
)

type event struct {
	kind      eventKind
	previewID string
}

// Coordinator 预览事件协调器
// 同一会话的事件通过队列严格串行处理，实时变更客户端的回调也走同一个队列
type Coordinator struct {
	session    *Session
	editor     EditorSDK
	storefront Storefront
	fetch      func(ctx context.Context, uid, language string) (caas.Document, bool, error)
	opts       Options

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
}

// NewCoordinator 构造函数
func NewCoordinator(session *Session, editor EditorSDK, storefront Storefront, fetcher DocumentFetcher, opts Options) *Coordinator {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 1
	}

	c := &Coordinator{
		session:    session,
		editor:     editor,
		storefront: storefront,
		opts:       opts,
		events:     make(chan event, eventQueueSize),
		done:       make(chan struct{}),
	}

	found := func(doc caas.Document) bool { return doc != nil && doc.UID() != "" }
	if opts.CaasFetchRetries > 0 {
		c.fetch = retry.Wrap2(fetcher.FindFirstByUID, found, retry.Config{
			InitialDelay: opts.CaasRetryDelay,
			RetryDelay:   opts.CaasRetryDelay,
			MaxRetries:   opts.CaasFetchRetries,
		})
	} else {
		c.fetch = func(ctx context.Context, uid, language string) (caas.Document, bool, error) {
			doc, err := fetcher.FindFirstByUID(ctx, uid, language)
			return doc, err == nil && found(doc), err
		}
	}
	return c
}

// Run 处理事件队列，直到 ctx 结束或 Close
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev := <-c.events:
			c.dispatch(ctx, ev)
		}
	}
}

// Close 停止处理事件，可重复调用
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// RequestPreviewElement 编辑器请求显示某个元素
func (c *Coordinator) RequestPreviewElement(previewID string) {
	c.enqueue(event{kind: eventRequestPreviewElement, previewID: previewID})
}

// PageChanged 商城前端渲染了新页面
func (c *Coordinator) PageChanged(previewID string) {
	c.enqueue(event{kind: eventPageChanged, previewID: previewID})
}

// FocusHomepage 当前元素被远程删除，切回首页
func (c *Coordinator) FocusHomepage() {
	c.enqueue(event{kind: eventFocusHomepage})
}

// CurrentPreviewID 实时客户端读取共享的当前元素
func (c *Coordinator) CurrentPreviewID() string {
	return c.session.CurrentPreviewID()
}

func (c *Coordinator) enqueue(ev event) {
	select {
	case <-c.done:
	case c.events <- ev:
	default:
		log.Printf("[Coordinator] ⚠️ 会话 %s 事件队列已满，丢弃事件 %d", c.session.ID, ev.kind)
	}
}

func (c *Coordinator) dispatch(ctx context.Context, ev event) {
	var err error
	switch ev.kind {
	case eventRequestPreviewElement:
		err = c.HandleRequestPreviewElement(ctx, ev.previewID)
	case eventPageChanged:
		err = c.HandlePageChanged(ctx, ev.previewID)
	case eventFocusHomepage:
		err = c.HandleFocusHomepage(ctx)
	}
	if err != nil {
		log.Printf("[Coordinator] ❌ 会话 %s 处理事件失败，已丢弃: %v", c.session.ID, err)
	}
}

// HandleRequestPreviewElement 处理 "请求预览元素" 事件
// 返回的错误表示编辑器调用意外失败，事件被丢弃；用户可见的错误通过对话框展示，不返回错误
func (c *Coordinator) HandleRequestPreviewElement(ctx context.Context, previewID string) error {
	if previewID == "" {
		return nil
	}

	current, err := c.pollForPreviewID(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		log.Printf("[Coordinator] ⚠️ 轮询 %d 次仍未获取到当前元素，放弃请求 %s", c.opts.PollAttempts, previewID)
		return nil
	}
	if current == previewID {
		return nil
	}

	log.Printf("[Coordinator] Requesting to display the element with previewId '%s'...", previewID)
	if err := c.resolveAndNavigate(ctx, previewID, current); err != nil {
		if errors.Is(err, errAborted) {
			return nil
		}
		return err
	}
	return c.applyPreviewElement(ctx, previewID)
}

func (c *Coordinator) resolveAndNavigate(ctx context.Context, previewID, current string) error {
	status, err := c.editor.GetElementStatus(ctx, previewID)
	if err != nil {
		return err
	}
	if status == nil || status.UID == "" {
		statusJSON, _ := json.Marshal(status)
		c.showError(ctx, KeyElementStatusHasNoUID, map[string]string{
			"previewId":           previewID,
			"elementStatusString": string(statusJSON),
		})
		return nil
	}
	log.Printf("[Coordinator] ... element status: displayName '%s' and uid '%s'", status.Label(), status.UID)

	pageID, err := GetCommercePageID(ctx, c.editor, status.UID)
	if err != nil {
		return err
	}
	if pageID == "" {
		c.showError(ctx, KeyCommercePageIDIsNull, map[string]string{"previewId": previewID, "uid": status.UID})
		return nil
	}

	pageNotAvailable := func() {
		c.showError(ctx, KeyPageNotAvailableYet, map[string]string{"pageUid": status.UID})
	}

	// 映射脚本原样返回 uid：页面刚在编辑器中创建，还没有商城页面 ID
	if pageID == status.UID {
		lang, err := c.activeLanguage(ctx)
		if err != nil {
			return err
		}
		doc, found, err := c.fetch(ctx, status.UID, lang)
		if err != nil {
			log.Printf("[Coordinator] ⚠️ 从 CaaS 读取页面 %s 失败: %v", status.UID, err)
		}
		if !found || doc.UID() == "" {
			pageNotAvailable()
			return errAborted
		}
		pageID = string(entity.PageTypeContent) + ":" + status.UID
		if err := SetCommercePageID(ctx, c.editor, status.UID, pageID); err != nil {
			return err
		}
		c.editor.ShowEditDialog(previewID)
	}

	currentPageID, err := c.commercePageIDOf(ctx, current)
	if err != nil {
		return err
	}
	if currentPageID == pageID {
		return nil
	}

	ok, err := c.storefront.NavigateTo(ctx, pageID)
	if err != nil {
		log.Printf("[Coordinator] ⚠️ 导航到 %s 失败: %v", pageID, err)
	}
	if err != nil || !ok {
		log.Printf("[Coordinator] ⚠️ Could not navigate to the element with previewId '%s' (hybris page id '%s')", previewID, pageID)
		pageNotAvailable()
	}
	return nil
}

// commercePageIDOf 当前元素对应的商城页面 ID
func (c *Coordinator) commercePageIDOf(ctx context.Context, previewID string) (string, error) {
	if previewID == "" {
		return "", nil
	}
	status, err := c.editor.GetElementStatus(ctx, previewID)
	if err != nil {
		return "", err
	}
	if status == nil || status.UID == "" {
		return "", nil
	}
	return GetCommercePageID(ctx, c.editor, status.UID)
}

// activeLanguage 会话当前语言；新会话还没有语言时以编辑器的预览语言为准
func (c *Coordinator) activeLanguage(ctx context.Context) (string, error) {
	if lang := c.session.Language(); lang != "" {
		return lang, nil
	}
	lang, err := c.editor.GetPreviewLanguage(ctx)
	if err != nil {
		return "", err
	}
	lang = strings.ToLower(lang)
	c.session.SetLanguage(lang)
	return lang, nil
}

// applyPreviewElement 最后一步：更新编辑器的当前元素并切换语言
func (c *Coordinator) applyPreviewElement(ctx context.Context, previewID string) error {
	if err := c.editor.SetPreviewElement(ctx, previewID); err != nil {
		return err
	}
	c.session.SetCurrentPreviewID(previewID)

	lang, err := c.editor.GetPreviewLanguage(ctx)
	if err != nil {
		return err
	}
	lang = strings.ToLower(lang)
	c.session.SetLanguage(lang)
	return c.storefront.SetActiveLanguage(ctx, lang)
}

// pollForPreviewID 编辑器状态落后于事件，先轮询确认当前元素
// 顺便在首次遇到首页时缓存首页 previewId
func (c *Coordinator) pollForPreviewID(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= c.opts.PollAttempts; attempt++ {
		previewID, err := c.editor.GetPreviewElement(ctx)
		if err != nil {
			return "", err
		}
		if previewID != "" {
			c.discoverHomepage(ctx, previewID)
			return previewID, nil
		}

		if attempt == c.opts.PollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.opts.PollInterval):
		}
	}
	return "", nil
}

func (c *Coordinator) discoverHomepage(ctx context.Context, previewID string) {
	if c.session.HomepagePreviewID() != "" {
		return
	}
	status, err := c.editor.GetElementStatus(ctx, previewID)
	if err != nil {
		log.Printf("[Coordinator] ⚠️ 读取元素 %s 状态失败: %v", previewID, err)
		return
	}
	if status == nil || !strings.EqualFold(status.UID, HomepageUID) {
		return
	}
	homepage := status.PreviewID
	if homepage == "" {
		homepage = previewID
	}
	if c.session.CacheHomepagePreviewID(homepage) {
		log.Printf("[Coordinator] ✅ 会话 %s 缓存首页 previewId: %s", c.session.ID, homepage)
	}
}

// HandlePageChanged 商城前端渲染的页面成为编辑器当前元素
func (c *Coordinator) HandlePageChanged(ctx context.Context, previewID string) error {
	if err := c.editor.SetPreviewElement(ctx, previewID); err != nil {
		return err
	}
	c.session.SetCurrentPreviewID(previewID)
	return nil
}

// HandleFocusHomepage 切回缓存的首页并重新渲染
func (c *Coordinator) HandleFocusHomepage(ctx context.Context) error {
	homepage := c.session.HomepagePreviewID()
	if homepage == "" {
		log.Printf("[Coordinator] ⚠️ 会话 %s 还没有缓存首页 previewId", c.session.ID)
	}
	if err := c.editor.SetPreviewElement(ctx, homepage); err != nil {
		return err
	}
	c.session.SetCurrentPreviewID(homepage)
	return c.editor.TriggerRerenderView(ctx)
}

func (c *Coordinator) showError(ctx context.Context, key TranslationKey, params map[string]string) {
	if err := c.editor.ShowErrorDialog(ctx, key, params); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Coordinator] ⚠️ 显示错误对话框 %s 失败: %v", key, err)
	}
}
