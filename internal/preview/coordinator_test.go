package preview

import (
	"context"
	"errors"
	"testing"
	"time"

	"fs-bridge-go-server/internal/caas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testOptions = Options{PollAttempts: 3, PollInterval: time.Millisecond}

type fixture struct {
	session    *Session
	editor     *MockEditor
	storefront *MockStorefront
	fetcher    *MockFetcher
	c          *Coordinator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		session:    NewSession("session-1", "BASESITE", true),
		editor:     new(MockEditor),
		storefront: new(MockStorefront),
		fetcher:    new(MockFetcher),
	}
	f.c = NewCoordinator(f.session, f.editor, f.storefront, f.fetcher, opts)
	return f
}

// currentIs 编辑器当前元素为 previewID，对应 uid
func (f *fixture) currentIs(previewID, uid string) {
	f.editor.On("GetPreviewElement").Return(previewID, nil)
	f.editor.On("GetElementStatus", previewID).Return(&ElementStatus{UID: uid, PreviewID: previewID}, nil)
}

func (f *fixture) pageIDOf(uid, pageID string) {
	result := "null"
	if pageID != "" {
		result = `"` + pageID + `"`
	}
	f.editor.On("Execute", ScriptGetCommercePageID, map[string]any{"uid": uid}).Return(result, nil)
}

func (f *fixture) expectFinalStep(previewID, lang string) {
	f.editor.On("SetPreviewElement", previewID).Return(nil).Once()
	f.editor.On("GetPreviewLanguage").Return(lang, nil).Once()
	f.storefront.On("SetActiveLanguage", mock.Anything).Return(nil).Once()
}

func TestCoordinator_NavigatesToRequestedPage(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("home#de", "homepage")
	f.pageIDOf("homepage", "ContentPage:homepage")
	f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "about", DisplayName: "About"}, nil)
	f.pageIDOf("about", "ContentPage:about")
	f.storefront.On("NavigateTo", "ContentPage:about").Return(true, nil).Once()
	f.expectFinalStep("req#de", "DE")

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	require.NoError(t, err)
	f.editor.AssertExpectations(t)
	f.storefront.AssertCalled(t, "SetActiveLanguage", "de")
	f.editor.AssertNotCalled(t, "ShowErrorDialog", mock.Anything, mock.Anything)

	state := f.session.State()
	assert.Equal(t, "req#de", state.CurrentPreviewID)
	assert.Equal(t, "home#de", state.HomepagePreviewID)
	assert.Equal(t, "de", state.Language)
}

// TestCoordinator_PollingExhausted 轮询不到当前元素时直接放弃，不导航也不更新编辑器
func TestCoordinator_PollingExhausted(t *testing.T) {
	f := newFixture(t, testOptions)
	f.editor.On("GetPreviewElement").Return("", nil)

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	require.NoError(t, err)
	f.editor.AssertNumberOfCalls(t, "GetPreviewElement", 3)
	f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
	f.storefront.AssertNotCalled(t, "NavigateTo", mock.Anything)
}

func TestCoordinator_PollingRecoversFromLag(t *testing.T) {
	f := newFixture(t, testOptions)
	f.editor.On("GetPreviewElement").Return("", nil).Twice()
	f.editor.On("GetPreviewElement").Return("req#de", nil).Once()
	f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "about"}, nil)

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	require.NoError(t, err)
	f.editor.AssertNumberOfCalls(t, "GetPreviewElement", 3)
	// 与当前元素相同，不做任何事
	f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
}

func TestCoordinator_SameElementIsNoop(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("req#de", "about")

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	require.NoError(t, err)
	f.editor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
	f.storefront.AssertNotCalled(t, "NavigateTo", mock.Anything)
}

func TestCoordinator_UserVisibleErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantKey   TranslationKey
		finalStep bool
	}{
		{
			name: "元素状态没有 uid",
			setup: func(f *fixture) {
				f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{Name: "broken"}, nil)
			},
			wantKey:   KeyElementStatusHasNoUID,
			finalStep: true,
		},
		{
			name: "没有商城页面 ID",
			setup: func(f *fixture) {
				f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "about"}, nil)
				f.pageIDOf("about", "")
			},
			wantKey:   KeyCommercePageIDIsNull,
			finalStep: true,
		},
		{
			name: "导航失败",
			setup: func(f *fixture) {
				f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "about"}, nil)
				f.pageIDOf("about", "ContentPage:about")
				f.pageIDOf("homepage", "ContentPage:homepage")
				f.storefront.On("NavigateTo", "ContentPage:about").Return(false, nil)
			},
			wantKey:   KeyPageNotAvailableYet,
			finalStep: true,
		},
		{
			name: "新建页面尚未同步到 CaaS",
			setup: func(f *fixture) {
				f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "new-page"}, nil)
				f.pageIDOf("new-page", "new-page")
				f.editor.On("GetPreviewLanguage").Return("EN", nil).Once()
				f.fetcher.On("FindFirstByUID", "new-page", "en").Return(nil, nil)
			},
			wantKey: KeyPageNotAvailableYet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testOptions)
			f.currentIs("home#de", "homepage")
			tt.setup(f)
			f.editor.On("ShowErrorDialog", tt.wantKey, mock.Anything).Return(nil).Once()
			if tt.finalStep {
				f.expectFinalStep("req#de", "en")
			}

			err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

			require.NoError(t, err)
			f.editor.AssertExpectations(t)
			f.editor.AssertNumberOfCalls(t, "ShowErrorDialog", 1)
			if !tt.finalStep {
				f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
				f.storefront.AssertNotCalled(t, "SetActiveLanguage", mock.Anything)
				assert.Empty(t, f.session.CurrentPreviewID())
			}
		})
	}
}

func TestCoordinator_NoCommercePageIDParams(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("home#de", "homepage")
	f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "about"}, nil)
	f.pageIDOf("about", "")
	f.editor.On("ShowErrorDialog", KeyCommercePageIDIsNull, map[string]string{"previewId": "req#de", "uid": "about"}).Return(nil).Once()
	f.expectFinalStep("req#de", "en")

	require.NoError(t, f.c.HandleRequestPreviewElement(context.Background(), "req#de"))
	f.storefront.AssertNotCalled(t, "NavigateTo", mock.Anything)
	f.editor.AssertExpectations(t)
}

// TestCoordinator_NewlyCreatedPage 映射脚本原样返回 uid 且 CaaS 中已存在：写回映射、打开编辑对话框并导航
func TestCoordinator_NewlyCreatedPage(t *testing.T) {
	f := newFixture(t, testOptions)
	f.session.SetLanguage("de")
	f.currentIs("home#de", "homepage")
	f.pageIDOf("homepage", "ContentPage:homepage")
	f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "new-page"}, nil)
	f.pageIDOf("new-page", "new-page")
	f.fetcher.On("FindFirstByUID", "new-page", "de").Return(caas.Document{"uid": "new-page"}, nil).Once()
	f.editor.On("Execute", ScriptSetCommercePageID, map[string]any{
		"uid":          "new-page",
		"hybrisPageId": "ContentPage:new-page",
	}).Return("true", nil).Once()
	f.editor.On("ShowEditDialog", "req#de").Return().Once()
	f.storefront.On("NavigateTo", "ContentPage:new-page").Return(true, nil).Once()
	f.expectFinalStep("req#de", "de")

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	require.NoError(t, err)
	f.editor.AssertExpectations(t)
	f.storefront.AssertExpectations(t)
	f.fetcher.AssertExpectations(t)
}

func TestCoordinator_NewlyCreatedPage_RetriesCaasFetch(t *testing.T) {
	opts := testOptions
	opts.CaasFetchRetries = 2
	opts.CaasRetryDelay = time.Millisecond
	f := newFixture(t, opts)
	f.currentIs("home#de", "homepage")
	f.editor.On("GetElementStatus", "req#de").Return(&ElementStatus{UID: "new-page"}, nil)
	f.pageIDOf("new-page", "new-page")
	f.editor.On("GetPreviewLanguage").Return("DE", nil).Once()
	f.fetcher.On("FindFirstByUID", "new-page", "de").Return(nil, nil)
	f.editor.On("ShowErrorDialog", KeyPageNotAvailableYet, map[string]string{"pageUid": "new-page"}).Return(nil).Once()

	require.NoError(t, f.c.HandleRequestPreviewElement(context.Background(), "req#de"))

	f.fetcher.AssertNumberOfCalls(t, "FindFirstByUID", 3)
	f.storefront.AssertNotCalled(t, "NavigateTo", mock.Anything)
	// 已提示用户后中止：编辑器当前元素与店面语言保持不变
	f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
	f.storefront.AssertNotCalled(t, "SetActiveLanguage", mock.Anything)
	assert.Empty(t, f.session.CurrentPreviewID())
}

// TestCoordinator_NewlyCreatedPage_FreshSessionUsesEditorLanguage 新会话还没有语言时按编辑器的预览语言读取 CaaS
func TestCoordinator_NewlyCreatedPage_FreshSessionUsesEditorLanguage(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("home#fr", "homepage")
	f.pageIDOf("homepage", "ContentPage:homepage")
	f.editor.On("GetElementStatus", "req#fr").Return(&ElementStatus{UID: "new-page"}, nil)
	f.pageIDOf("new-page", "new-page")
	f.editor.On("GetPreviewLanguage").Return("FR", nil).Once()
	f.fetcher.On("FindFirstByUID", "new-page", "fr").Return(caas.Document{"uid": "new-page"}, nil).Once()
	f.editor.On("Execute", ScriptSetCommercePageID, map[string]any{
		"uid":          "new-page",
		"hybrisPageId": "ContentPage:new-page",
	}).Return("true", nil).Once()
	f.editor.On("ShowEditDialog", "req#fr").Return().Once()
	f.storefront.On("NavigateTo", "ContentPage:new-page").Return(true, nil).Once()
	f.expectFinalStep("req#fr", "FR")

	require.NoError(t, f.c.HandleRequestPreviewElement(context.Background(), "req#fr"))

	f.fetcher.AssertExpectations(t)
	f.fetcher.AssertNotCalled(t, "FindFirstByUID", "new-page", "")
	f.storefront.AssertCalled(t, "SetActiveLanguage", "fr")
	assert.Equal(t, "fr", f.session.Language())
}

func TestCoordinator_SameCommercePageSkipsNavigation(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("home#de", "homepage")
	f.pageIDOf("homepage", "ContentPage:homepage")
	f.editor.On("GetElementStatus", "home#en").Return(&ElementStatus{UID: "homepage"}, nil)
	f.expectFinalStep("home#en", "EN")

	require.NoError(t, f.c.HandleRequestPreviewElement(context.Background(), "home#en"))

	f.storefront.AssertNotCalled(t, "NavigateTo", mock.Anything)
	assert.Equal(t, "en", f.session.Language())
}

// TestCoordinator_UnexpectedRejectionDropsEvent 编辑器调用意外失败时返回错误，不执行最后一步
func TestCoordinator_UnexpectedRejectionDropsEvent(t *testing.T) {
	f := newFixture(t, testOptions)
	f.currentIs("home#de", "homepage")
	f.editor.On("GetElementStatus", "req#de").Return(nil, errors.New("rpc timeout"))

	err := f.c.HandleRequestPreviewElement(context.Background(), "req#de")

	assert.Error(t, err)
	f.editor.AssertNotCalled(t, "SetPreviewElement", mock.Anything)
}

func TestCoordinator_HandleFocusHomepage(t *testing.T) {
	f := newFixture(t, testOptions)
	f.session.CacheHomepagePreviewID("home#de")
	f.session.SetCurrentPreviewID("deleted#de")
	f.editor.On("SetPreviewElement", "home#de").Return(nil).Once()
	f.editor.On("TriggerRerenderView").Return(nil).Once()

	require.NoError(t, f.c.HandleFocusHomepage(context.Background()))

	f.editor.AssertExpectations(t)
	assert.Equal(t, "home#de", f.session.CurrentPreviewID())
}

func TestCoordinator_Run_ProcessesQueuedEvents(t *testing.T) {
	f := newFixture(t, testOptions)
	f.editor.On("SetPreviewElement", "page#de").Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.c.Run(ctx)

	f.c.PageChanged("page#de")

	assert.Eventually(t, func() bool {
		return f.session.CurrentPreviewID() == "page#de"
	}, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		f.c.Close()
		f.c.Close()
	})
}

func TestSession_SnapshotRestore(t *testing.T) {
	s := NewSession("s", "site", true)
	s.SetCurrentPreviewID("a")
	s.SetLanguage("de")
	assert.True(t, s.CacheHomepagePreviewID("home"))
	assert.False(t, s.CacheHomepagePreviewID("other"))
	assert.Equal(t, uint64(3), s.Changes())

	data, err := s.Snapshot()
	require.NoError(t, err)

	restored := NewSession("s", "site", true)
	require.NoError(t, restored.Restore(data))
	assert.Equal(t, s.State(), restored.State())

	require.NoError(t, restored.Restore(nil))
	assert.Error(t, restored.Restore([]byte("{broken")))
}
