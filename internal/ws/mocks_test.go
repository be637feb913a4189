package ws

import (
	"context"

	"fs-bridge-go-server/domain/entity"

	"github.com/stretchr/testify/mock"
)

// ========== MockSessionService ==========
// 实现 SessionService 接口，用于 Hub 和 Room 的单元测试

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) GetSession(sessionID string) (*entity.PreviewSession, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PreviewSession), args.Error(1)
}

func (m *MockSessionService) SaveSessionState(sessionID string, state []byte, oldVersion, newVersion int64) error {
	args := m.Called(sessionID, state, oldVersion, newVersion)
	return args.Error(0)
}

// ========== MockHandler ==========
// 实现 SessionHandler 接口

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) HandleEvent(ctx context.Context, msg *WSMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockHandler) State() ([]byte, uint64) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64)
	}
	return args.Get(0).([]byte), args.Get(1).(uint64)
}

func (m *MockHandler) Close() {
	m.Called()
}

func sessionRecord(id string) *entity.PreviewSession {
	return &entity.PreviewSession{SessionID: id, SiteID: "electronics-spa", Preview: true, Version: 1}
}
