package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fs-bridge-go-server/api/middleware"
	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeVerifier 把 token 原样当作用户 ID，"bad" 视为无效
func fakeVerifier(_ *http.Request, token string) (string, error) {
	if token == "bad" {
		return "", errors.New("token expired")
	}
	return token, nil
}

func newSessionRouter(sessions SessionManager) *gin.Engine {
	router := gin.New()
	sc := NewSessionController(sessions)
	group := router.Group("/api/preview-sessions", middleware.BearerAuth(fakeVerifier))
	group.POST("", sc.CreateSession)
	group.GET("", sc.ListSessions)
	group.DELETE("/:sessionId", sc.DeleteSession)
	return router
}

func sessionRequest(method, path, body, token string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSessionController_CreateSession(t *testing.T) {
	sessions := new(MockSessionManager)
	sessions.On("CreateSession", "electronics-spa", true, "user_1").
		Return(&entity.PreviewSession{SessionID: "s-1", SiteID: "electronics-spa", Preview: true, Version: 1}, nil).Once()

	w := httptest.NewRecorder()
	newSessionRouter(sessions).ServeHTTP(w, sessionRequest(http.MethodPost, "/api/preview-sessions", `{"siteId":"electronics-spa"}`, "user_1"))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.True(t, resp.Preview)
	sessions.AssertExpectations(t)
}

func TestSessionController_CreateSession_ReleaseMode(t *testing.T) {
	sessions := new(MockSessionManager)
	sessions.On("CreateSession", "electronics-spa", false, "user_1").
		Return(&entity.PreviewSession{SessionID: "s-2", SiteID: "electronics-spa"}, nil).Once()

	w := httptest.NewRecorder()
	newSessionRouter(sessions).ServeHTTP(w, sessionRequest(http.MethodPost, "/api/preview-sessions", `{"siteId":"electronics-spa","preview":false}`, "user_1"))

	assert.Equal(t, http.StatusCreated, w.Code)
	sessions.AssertExpectations(t)
}

func TestSessionController_CreateSession_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		token    string
		err      error
		wantCode int
	}{
		{"缺少 Authorization", `{"siteId":"electronics-spa"}`, "", nil, http.StatusUnauthorized},
		{"Token 无效", `{"siteId":"electronics-spa"}`, "bad", nil, http.StatusUnauthorized},
		{"缺少 siteId", `{}`, "user_1", nil, http.StatusBadRequest},
		{"站点未配置", `{"siteId":"apparel-uk"}`, "user_1", domainErrors.ErrSiteNotConfigured, http.StatusBadRequest},
		{"数据库失败", `{"siteId":"electronics-spa"}`, "user_1", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionManager)
			if tt.err != nil {
				sessions.On("CreateSession", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			w := httptest.NewRecorder()
			newSessionRouter(sessions).ServeHTTP(w, sessionRequest(http.MethodPost, "/api/preview-sessions", tt.body, tt.token))

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSessionController_ListSessions(t *testing.T) {
	sessions := new(MockSessionManager)
	sessions.On("ListSessions", "user_1").Return([]entity.PreviewSession{
		{SessionID: "a", SiteID: "electronics-spa", Preview: true},
		{SessionID: "b", SiteID: "electronics-spa"},
	}, nil)

	w := httptest.NewRecorder()
	newSessionRouter(sessions).ServeHTTP(w, sessionRequest(http.MethodGet, "/api/preview-sessions", "", "user_1"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp []SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "a", resp[0].SessionID)
	assert.False(t, resp[1].Preview)
}

func TestSessionController_DeleteSession(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"删除成功", nil, http.StatusOK},
		{"会话不存在", domainErrors.ErrSessionNotFound, http.StatusNotFound},
		{"不是创建者", domainErrors.ErrUnauthorized, http.StatusForbidden},
		{"数据库失败", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionManager)
			sessions.On("DeleteSession", "s-1", "user_1").Return(tt.err).Once()

			w := httptest.NewRecorder()
			newSessionRouter(sessions).ServeHTTP(w, sessionRequest(http.MethodDelete, "/api/preview-sessions/s-1", "", "user_1"))

			assert.Equal(t, tt.wantCode, w.Code)
			sessions.AssertExpectations(t)
		})
	}
}
