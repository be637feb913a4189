package usecase

import (
	"context"
	"testing"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/config"
	"fs-bridge-go-server/internal/merge"
	"fs-bridge-go-server/internal/ws"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========== MockPageSource ==========
// 同时用作商城和 CMS 页面来源

type MockPageSource struct {
	mock.Mock
}

func (m *MockPageSource) Load(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error) {
	args := m.Called(ctx, pageContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PageStructure), args.Error(1)
}

// ========== MockDrivenResolver ==========

type MockDrivenResolver struct {
	mock.Mock
}

func (m *MockDrivenResolver) Resolve(ctx context.Context, pageContext entity.PageContext, cmsPage *entity.PageStructure) (*entity.PageStructure, error) {
	args := m.Called(ctx, pageContext, cmsPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PageStructure), args.Error(1)
}

// ========== MockSessionRepository ==========
// 实现 repository.SessionRepository 接口

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetBySessionID(sessionID string) (*entity.PreviewSession, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PreviewSession), args.Error(1)
}

func (m *MockSessionRepository) Create(session *entity.PreviewSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateState(sessionID string, state []byte, oldVersion, newVersion int64) error {
	args := m.Called(sessionID, state, oldVersion, newVersion)
	return args.Error(0)
}

func (m *MockSessionRepository) ListByCreator(creatorID string) ([]entity.PreviewSession, error) {
	args := m.Called(creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PreviewSession), args.Error(1)
}

func (m *MockSessionRepository) Delete(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

// ========== MockRoomCloser ==========

type MockRoomCloser struct {
	mock.Mock
}

func (m *MockRoomCloser) CloseRoom(sessionID string, reason string) {
	m.Called(sessionID, reason)
}

// ========== MockCommandSender ==========

type MockCommandSender struct {
	mock.Mock
}

func (m *MockCommandSender) SendCommand(msgType ws.MessageType, payload any) error {
	args := m.Called(msgType, payload)
	return args.Error(0)
}

// ========== MockStream ==========

type MockStream struct {
	mock.Mock
}

func (m *MockStream) Init(ctx context.Context, access *caas.AccessData, apiKey string) error {
	args := m.Called(ctx, access, apiKey)
	return args.Error(0)
}

func (m *MockStream) Close() {
	m.Called()
}

// ========== 测试配置 ==========

const testBridgeConfig = `
bridge:
  electronics-spa:
    caas:
      baseUrl: https://caas.example.com
      project: spartacus
      apiKey: release-key
      apiKeyPreview: preview-key
      tenantId: defaultTenant
    commerce:
      baseUrl: https://occ.example.com
    firstSpiritManagedPages:
      - templateId: ContentPage1Template
        sapPageIdentifier: faq
        sapPageType: ContentPage
        slotStrategies:
          - slotName: Section2A
            strategyId: replace
      - templateId: FsLandingTemplate
        slotStrategies:
          - slotName: Section1
            strategyId: replace
          - slotName: Section2
            strategyId: append
preview:
  pollAttempts: 1
`

func newTestConfig(t *testing.T) (*config.BridgeConfig, merge.Pipelines) {
	t.Helper()
	cfg, err := config.Parse([]byte(testBridgeConfig))
	require.NoError(t, err)
	pipelines, err := merge.NewPipelines(cfg)
	require.NoError(t, err)
	return cfg, pipelines
}

func comp(uid string) entity.Component {
	return entity.Component{UID: uid, TypeCode: "CMSParagraphComponent"}
}
