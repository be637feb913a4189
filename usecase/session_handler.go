package usecase

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/config"
	"fs-bridge-go-server/internal/preview"
	"fs-bridge-go-server/internal/realtime"
	"fs-bridge-go-server/internal/ws"

	json "github.com/goccy/go-json"
)

// changeStream CaaS 变更流的生命周期
type changeStream interface {
	Init(ctx context.Context, access *caas.AccessData, apiKey string) error
	Close()
}

// SessionHandlerFactory 为每个会话房间组装协调器、编辑器适配器和变更流客户端
type SessionHandlerFactory struct {
	cfg        *config.BridgeConfig
	caas       *caas.ClientFactory
	httpClient *http.Client
}

// NewSessionHandlerFactory 构造函数
func NewSessionHandlerFactory(cfg *config.BridgeConfig, caasFactory *caas.ClientFactory, httpClient *http.Client) *SessionHandlerFactory {
	return &SessionHandlerFactory{cfg: cfg, caas: caasFactory, httpClient: httpClient}
}

// New 实现 ws.HandlerFactory
func (f *SessionHandlerFactory) New(room *ws.Room, record *entity.PreviewSession) (ws.SessionHandler, error) {
	client, err := f.caas.ForSite(record.SiteID, record.Preview)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", record.SessionID, err)
	}

	session := preview.NewSession(record.SessionID, record.SiteID, record.Preview)
	if err := session.Restore(record.State); err != nil {
		log.Printf("[Session %s] ⚠️ 恢复会话状态失败，从空状态开始: %v", record.SessionID, err)
	}

	p := f.cfg.Preview
	coordinator := preview.NewCoordinator(session, ws.NewRoomEditor(room), NewNavigator(room), client, preview.Options{
		PollAttempts:     p.PollAttempts,
		PollInterval:     p.PollInterval,
		CaasFetchRetries: p.CaasFetchRetries,
		CaasRetryDelay:   p.PollInterval,
	})
	stream := realtime.NewClient(coordinator, realtime.Options{
		ConnectionTimeout: p.Reconnect.ConnectionTimeout,
		InitialDelay:      p.Reconnect.InitialDelay,
		MaxDelay:          p.Reconnect.MaxDelay,
		MaxRetries:        p.Reconnect.MaxRetries,
		Debug:             p.Debug,
	}, f.httpClient)

	return newSessionHandler(record.SessionID, session, coordinator, stream, client.Access()), nil
}

// sessionHandler 一个预览会话的业务逻辑，实现 ws.SessionHandler
type sessionHandler struct {
	id          string
	session     *preview.Session
	coordinator *preview.Coordinator
	stream      changeStream
	access      *caas.AccessData

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool

	// 串行化重复 editor-init 触发的 Init，Close 不获取它
	initMu sync.Mutex
}

func newSessionHandler(id string, session *preview.Session, coordinator *preview.Coordinator, stream changeStream, access *caas.AccessData) *sessionHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &sessionHandler{
		id:          id,
		session:     session,
		coordinator: coordinator,
		stream:      stream,
		access:      access,
		ctx:         ctx,
		cancel:      cancel,
	}
	go coordinator.Run(ctx)
	return h
}

// HandleEvent 编辑器事件分发，耗时操作都在后台执行
func (h *sessionHandler) HandleEvent(ctx context.Context, msg *ws.WSMessage) error {
	switch msg.Type {
	case ws.TypeEditorInit:
		var payload ws.EditorInitPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		if !payload.Success {
			log.Printf("[Session %s] ⚠️ 编辑器初始化失败，不启动变更流", h.id)
			return nil
		}
		go h.activateStream()

	case ws.TypeRequestPreviewElement, ws.TypePageChanged:
		var payload ws.PreviewElementPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		if msg.Type == ws.TypePageChanged {
			h.coordinator.PageChanged(payload.PreviewID)
		} else {
			h.coordinator.RequestPreviewElement(payload.PreviewID)
		}

	default:
		return fmt.Errorf("unsupported event type %q", msg.Type)
	}
	return nil
}

// activateStream 编辑器就绪后连接变更流，重复的 editor-init 会重建连接
// Init 可能阻塞到握手超时，不持有 h.mu，Close 不必等它
func (h *sessionHandler) activateStream() {
	h.initMu.Lock()
	defer h.initMu.Unlock()

	h.mu.Lock()
	closed, ctx := h.closed, h.ctx
	h.mu.Unlock()
	if closed {
		return
	}

	if err := h.stream.Init(ctx, h.access, h.access.APIKey); err != nil {
		log.Printf("[Session %s] ❌ 连接 CaaS 变更流失败: %v", h.id, err)
		return
	}

	h.mu.Lock()
	closed = h.closed
	h.mu.Unlock()
	if closed {
		// 握手期间会话已关闭
		h.stream.Close()
		return
	}
	log.Printf("[Session %s] ✅ CaaS 变更流已启动", h.id)
}

// State 会话状态快照
func (h *sessionHandler) State() ([]byte, uint64) {
	data, err := h.session.Snapshot()
	if err != nil {
		log.Printf("[Session %s] ⚠️ 序列化会话状态失败: %v", h.id, err)
		return nil, h.session.Changes()
	}
	return data, h.session.Changes()
}

// Close 停止协调器、关闭变更流并清空会话状态，可重复调用
// 房间在调用 Close 之前已完成最后一次写库
func (h *sessionHandler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.coordinator.Close()
	h.stream.Close()
	h.session.Reset()
	log.Printf("[Session %s] 🛑 会话逻辑已关闭", h.id)
}
