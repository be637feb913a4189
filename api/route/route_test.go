package route

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fs-bridge-go-server/api/controller"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Setup(router, &Dependencies{
		PageController:    controller.NewPageController(nil),
		SessionController: controller.NewSessionController(nil),
		WSHandler:         controller.NewWSHandler(nil, nil, nil),
		WebhookController: controller.NewWebhookController(nil, nil, ""),
		Auth: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"fs-bridge-go-server"}`, w.Body.String())

	// 会话接口走认证中间件
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/preview-sessions", nil),
		httptest.NewRequest(http.MethodGet, "/api/preview-sessions", nil),
		httptest.NewRequest(http.MethodDelete, "/api/preview-sessions/s-1", nil),
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, req.Method+" "+req.URL.Path)
	}

	// 缺少 sessionId 时 ws 在升级前就被拒绝
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
