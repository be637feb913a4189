package preview

import (
	"context"

	"fs-bridge-go-server/internal/caas"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/mock"
)

// ========== MockEditor ==========
// 实现 EditorSDK 接口

type MockEditor struct {
	mock.Mock
}

func (m *MockEditor) GetPreviewElement(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockEditor) SetPreviewElement(ctx context.Context, previewID string) error {
	args := m.Called(previewID)
	return args.Error(0)
}

func (m *MockEditor) GetElementStatus(ctx context.Context, previewID string) (*ElementStatus, error) {
	args := m.Called(previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ElementStatus), args.Error(1)
}

func (m *MockEditor) Execute(ctx context.Context, script string, params map[string]any) (json.RawMessage, error) {
	args := m.Called(script, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return json.RawMessage(args.String(0)), args.Error(1)
}

func (m *MockEditor) CreateSection(ctx context.Context, previewID string, opts CreateSectionOptions) (json.RawMessage, error) {
	args := m.Called(previewID, opts)
	return nil, args.Error(0)
}

func (m *MockEditor) RegisterButton(ctx context.Context, button Button, priority int) error {
	args := m.Called(button, priority)
	return args.Error(0)
}

func (m *MockEditor) TriggerRerenderView(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEditor) GetPreviewLanguage(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockEditor) ShowEditDialog(previewID string) {
	m.Called(previewID)
}

func (m *MockEditor) ShowErrorDialog(ctx context.Context, key TranslationKey, params map[string]string) error {
	args := m.Called(key, params)
	return args.Error(0)
}

// ========== MockStorefront ==========

type MockStorefront struct {
	mock.Mock
}

func (m *MockStorefront) NavigateTo(ctx context.Context, commercePageID string) (bool, error) {
	args := m.Called(commercePageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorefront) SetActiveLanguage(ctx context.Context, lang string) error {
	args := m.Called(lang)
	return args.Error(0)
}

// ========== MockFetcher ==========
// 实现 DocumentFetcher 接口

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FindFirstByUID(ctx context.Context, uid, language string) (caas.Document, error) {
	args := m.Called(uid, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(caas.Document), args.Error(1)
}
