package controller

import (
	"context"

	"fs-bridge-go-server/domain/entity"

	"github.com/stretchr/testify/mock"
)

// ========== MockPageLoader ==========

type MockPageLoader struct {
	mock.Mock
}

func (m *MockPageLoader) GetPage(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error) {
	args := m.Called(ctx, pageContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PageStructure), args.Error(1)
}

// ========== MockSessionManager ==========
// 同时实现 SessionManager 和 UserSessionCleaner

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) CreateSession(siteID string, preview bool, creatorID string) (*entity.PreviewSession, error) {
	args := m.Called(siteID, preview, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PreviewSession), args.Error(1)
}

func (m *MockSessionManager) ListSessions(creatorID string) ([]entity.PreviewSession, error) {
	args := m.Called(creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PreviewSession), args.Error(1)
}

func (m *MockSessionManager) DeleteSession(sessionID, userID string) error {
	args := m.Called(sessionID, userID)
	return args.Error(0)
}

func (m *MockSessionManager) DeleteUserSessions(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// ========== MockUserRepository ==========

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(userID string) (*entity.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Delete(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// ========== MockSessionService ==========
// 实现 ws.SessionService

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
