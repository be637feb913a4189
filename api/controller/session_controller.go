package controller

import (
	"errors"
	"net/http"
	"time"

	"fs-bridge-go-server/api/middleware"
	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// SessionManager 预览会话管理（由 usecase.PreviewUseCase 实现）
type SessionManager interface {
	CreateSession(siteID string, preview bool, creatorID string) (*entity.PreviewSession, error)
	ListSessions(creatorID string) ([]entity.PreviewSession, error)
	DeleteSession(sessionID, userID string) error
}

var _ SessionManager = (*usecase.PreviewUseCase)(nil)

// SessionController 预览会话 HTTP 控制器
type SessionController struct {
	sessions SessionManager
}

// NewSessionController 构造函数
func NewSessionController(sessions SessionManager) *SessionController {
	return &SessionController{sessions: sessions}
}

// CreateSessionRequest 创建会话请求结构
type CreateSessionRequest struct {
	SiteID  string `json:"siteId" binding:"required"`
	Preview *bool  `json:"preview"` // 缺省为 true
}

// SessionResponse 会话响应结构
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	SiteID    string    `json:"siteId"`
	Preview   bool      `json:"preview"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSessionResponse(s *entity.PreviewSession) SessionResponse {
	return SessionResponse{
		SessionID: s.SessionID,
		SiteID:    s.SiteID,
		Preview:   s.Preview,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}

// CreateSession 创建预览会话
// POST /api/preview-sessions
// 请求体: { "siteId": "electronics-spa", "preview": true }
func (sc *SessionController) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "siteId 不能为空"})
		return
	}

	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未获取到用户信息"})
		return
	}

	preview := true
	if req.Preview != nil {
		preview = *req.Preview
	}

	session, err := sc.sessions.CreateSession(req.SiteID, preview, userID.(string))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSiteNotConfigured), errors.Is(err, domainErrors.ErrCaasConfigMissing):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "站点未配置 CaaS 访问数据", Details: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session))
}

// ListSessions 列出当前用户的预览会话
// GET /api/preview-sessions
func (sc *SessionController) ListSessions(c *gin.Context) {
	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未获取到用户信息"})
		return
	}

	sessions, err := sc.sessions.ListSessions(userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, toSessionResponse(&sessions[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSession 删除预览会话
// DELETE /api/preview-sessions/:sessionId
// 注意：此操作会关闭会话房间和 CaaS 变更流，断开所有编辑器
func (sc *SessionController) DeleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sessionId 不能为空"})
		return
	}

	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未获取到用户信息"})
		return
	}

	if err := sc.sessions.DeleteSession(sessionID, userID.(string)); err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "会话不存在"})
		case errors.Is(err, domainErrors.ErrUnauthorized):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "无权限删除此会话"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message:   "会话已删除",
		SessionID: sessionID,
	})
}
