package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/preview"
	"fs-bridge-go-server/internal/ws"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// ========== sessionHandler 单元测试 ==========

func newTestHandler(t *testing.T, stream changeStream) *sessionHandler {
	t.Helper()
	cfg, _ := newTestConfig(t)
	factory := caas.NewClientFactory(cfg, nil)
	client, err := factory.ForSite("electronics-spa", true)
	require.NoError(t, err)

	session := preview.NewSession("s-1", "electronics-spa", true)
	coordinator := preview.NewCoordinator(session, nil, nil, client, preview.Options{})
	h := newSessionHandler("s-1", session, coordinator, stream, client.Access())
	t.Cleanup(h.Close)
	return h
}

func eventMessage(t *testing.T, msgType ws.MessageType, payload any) *ws.WSMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &ws.WSMessage{Type: msgType, Payload: data}
}

func TestSessionHandler_EditorInitActivatesStream(t *testing.T) {
	stream := new(MockStream)
	initialized := make(chan struct{})
	stream.On("Init", mock.Anything, mock.MatchedBy(func(a *caas.AccessData) bool {
		return a.Mode == caas.ModePreview
	}), "preview-key").Run(func(mock.Arguments) { close(initialized) }).Return(nil).Once()
	stream.On("Close")

	h := newTestHandler(t, stream)

	require.NoError(t, h.HandleEvent(context.Background(), eventMessage(t, ws.TypeEditorInit, ws.EditorInitPayload{Success: true})))

	select {
	case <-initialized:
	case <-time.After(time.Second):
		t.Fatal("change stream not activated")
	}
}

func TestSessionHandler_FailedEditorInitKeepsStreamClosed(t *testing.T) {
	stream := new(MockStream)
	stream.On("Close")
	h := newTestHandler(t, stream)

	require.NoError(t, h.HandleEvent(context.Background(), eventMessage(t, ws.TypeEditorInit, ws.EditorInitPayload{Success: false})))

	time.Sleep(20 * time.Millisecond)
	stream.AssertNotCalled(t, "Init", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_RejectsUnknownEvents(t *testing.T) {
	stream := new(MockStream)
	stream.On("Close")
	h := newTestHandler(t, stream)

	assert.Error(t, h.HandleEvent(context.Background(), &ws.WSMessage{Type: ws.TypeNavigate}))
	assert.Error(t, h.HandleEvent(context.Background(), &ws.WSMessage{Type: ws.TypeRequestPreviewElement, Payload: []byte(`[`)}))
}

func TestSessionHandler_StateAndClose(t *testing.T) {
	stream := new(MockStream)
	stream.On("Close").Once()
	h := newTestHandler(t, stream)

	h.session.SetCurrentPreviewID("X")
	h.session.SetLanguage("de")

	state, changes := h.State()
	assert.Equal(t, uint64(2), changes)
	assert.JSONEq(t, `{"currentPreviewId":"X","homepagePreviewId":"","language":"de"}`, string(state))

	h.Close()
	stream.AssertNumberOfCalls(t, "Close", 1)

	// 关闭后会话状态被清空
	state, _ = h.State()
	assert.JSONEq(t, `{"currentPreviewId":"","homepagePreviewId":"","language":""}`, string(state))

	// 关闭后 editor-init 不再启动变更流
	require.NoError(t, h.HandleEvent(context.Background(), eventMessage(t, ws.TypeEditorInit, ws.EditorInitPayload{Success: true})))
	time.Sleep(20 * time.Millisecond)
	stream.AssertNotCalled(t, "Init", mock.Anything, mock.Anything, mock.Anything)
}

// TestSessionHandler_CloseDuringStreamHandshake 握手阻塞时 Close 立即返回，握手完成后的连接随即关闭
func TestSessionHandler_CloseDuringStreamHandshake(t *testing.T) {
	stream := new(MockStream)
	started := make(chan struct{})
	release := make(chan struct{})
	stream.On("Init", mock.Anything, mock.Anything, "preview-key").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil).Once()
	var closes atomic.Int32
	stream.On("Close").Run(func(mock.Arguments) { closes.Add(1) })

	h := newTestHandler(t, stream)
	require.NoError(t, h.HandleEvent(context.Background(), eventMessage(t, ws.TypeEditorInit, ws.EditorInitPayload{Success: true})))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("change stream not activated")
	}

	closed := make(chan struct{})
	go func() {
		h.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on the stream handshake")
	}
	assert.Equal(t, int32(1), closes.Load())

	close(release)
	assert.Eventually(t, func() bool {
		return closes.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSessionHandlerFactory_RestoresState(t *testing.T) {
	cfg, _ := newTestConfig(t)
	factory := NewSessionHandlerFactory(cfg, caas.NewClientFactory(cfg, nil), nil)

	handler, err := factory.New(nil, &entity.PreviewSession{
		SessionID: "s-1",
		SiteID:    "electronics-spa",
		Preview:   true,
		State:     datatypes.JSON(`{"currentPreviewId":"X","homepagePreviewId":"H","language":"en"}`),
	})
	require.NoError(t, err)
	defer handler.Close()

	state, _ := handler.State()
	assert.JSONEq(t, `{"currentPreviewId":"X","homepagePreviewId":"H","language":"en"}`, string(state))

	_, err = factory.New(nil, &entity.PreviewSession{SessionID: "s-2", SiteID: "apparel-uk"})
	assert.Error(t, err)
}
