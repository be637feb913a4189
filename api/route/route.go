package route

import (
	"fs-bridge-go-server/api/controller"
	"fs-bridge-go-server/api/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖注入结构
type Dependencies struct {
	PageController    *controller.PageController
	SessionController *controller.SessionController
	WSHandler         *controller.WSHandler
	WebhookController *controller.WebhookController
	Auth              gin.HandlerFunc // 为空时使用 middleware.ClerkAuth()
}

// Setup 配置所有路由
func Setup(router *gin.Engine, deps *Dependencies) {
	// --- 公开路由 ---

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fs-bridge-go-server",
		})
	})

	// Clerk Webhook（使用签名验证，不使用 JWT）
	router.POST("/webhook/clerk", deps.WebhookController.HandleClerkWebhook)

	// --- WebSocket 路由 ---
	// WebSocket 自行在 Handler 中验证 Token
	router.GET("/ws", deps.WSHandler.HandleWS)

	// --- 店面读取合并页面（公开）---
	router.GET("/api/sites/:siteId/pages", deps.PageController.GetPage)

	// --- 会话路由（需要 Clerk JWT 认证）---
	auth := deps.Auth
	if auth == nil {
		auth = middleware.ClerkAuth()
	}
	sessions := router.Group("/api/preview-sessions")
	sessions.Use(auth)
	{
		sessions.POST("", deps.SessionController.CreateSession)
		sessions.GET("", deps.SessionController.ListSessions)
		sessions.DELETE("/:sessionId", deps.SessionController.DeleteSession)
	}
}
