package controller

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"fs-bridge-go-server/api/middleware"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 编辑器桥接 WebSocket 连接处理器
type WSHandler struct {
	hub      *ws.Hub
	verify   middleware.TokenVerifier
	upgrader websocket.Upgrader
}

// NewWSHandler 构造函数
func NewWSHandler(hub *ws.Hub, allowedOrigins []string, verify middleware.TokenVerifier) *WSHandler {
	return &WSHandler{
		hub:    hub,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 开发环境允许所有
				if origin == "" || strings.HasPrefix(origin, "http://localhost") {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] ⚠️ 拒绝来自 %s 的连接", origin)
				return false
			},
		},
	}
}

// HandleWS 处理 WebSocket 升级请求
// GET /ws?sessionId=xxx&token=xxx
// 编辑器通过该连接接收 sdk-call 并回传 sdk-result 与编辑器事件
func (h *WSHandler) HandleWS(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId 不能为空"})
		return
	}

	// 1. 取 Token（WebSocket 不支持自定义 Header）
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Sec-WebSocket-Protocol")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证 token"})
		return
	}

	// 2. 验证 JWT
	userID, err := h.verify(c.Request, token)
	if err != nil {
		log.Printf("[WS] ❌ Token 验证失败: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token 无效", "details": err.Error()})
		return
	}

	// 3. 获取或创建房间（会验证会话存在性并恢复状态）
	room, err := h.hub.GetOrCreateRoom(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
		case errors.Is(err, domainErrors.ErrRoomClosing):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "会话正在关闭，请稍后重试"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	// 4. 升级为 WebSocket 连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] ❌ 升级 WebSocket 失败: %v", err)
		return
	}

	userInfo := ws.UserInfo{
		UserID:   userID,
		UserName: userID,
		Color:    generateUserColor(userID),
	}
	client := ws.NewClient(h.hub, conn, sessionID, userInfo)

	if err := room.Register(client); err != nil {
		log.Printf("[WS] ❌ 注册客户端失败: %v", err)
		conn.Close()
		return
	}

	log.Printf("[WS] ✅ 编辑器 [%s] 连接到会话 [%s]", userInfo.UserID, sessionID)

	go client.WritePump()
	go client.ReadPump()
}

// generateUserColor 根据用户 ID 生成编辑器标识颜色
func generateUserColor(userID string) string {
	colors := []string{
		"#FF6B6B", // 红色
		"#4ECDC4", // 青色
		"#45B7D1", // 蓝色
		"#96CEB4", // 绿色
		"#FFEAA7", // 黄色
		"#DDA0DD", // 梅红
		"#98D8C8", // 薄荷
		"#F7DC6F", // 金色
	}

	var hash uint32
	for _, c := range userID {
		hash = hash*31 + uint32(c)
	}

	return colors[hash%uint32(len(colors))]
}
