package ws

import (
	"context"
	"log"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// 心跳配置
const (
	pongWait       = 60 * time.Second    // 等待 Pong 响应的最大时间
	pingPeriod     = (pongWait * 9) / 10 // Ping 发送间隔，必须小于 pongWait
	writeWait      = 10 * time.Second    // 写消息超时时间
	maxMessageSize = 512 * 1024          // 最大消息大小
)

// Client 一个编辑器标签页的 WebSocket 连接
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string
	UserInfo  UserInfo
	Room      *Room       // 所属房间引用
	send      chan []byte // 发送消息缓冲区

	// 房间与 ReadPump 都会写 send，关闭时需要互斥
	sendMu     sync.Mutex
	sendClosed bool
}

// NewClient 创建客户端实例
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, userInfo UserInfo) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		UserInfo:  userInfo,
		send:      make(chan []byte, 256),
	}
}

// WritePump 负责写消息和发送心跳 Ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// send channel 已关闭，发送关闭帧
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump 负责读消息和处理心跳 Pong
func (c *Client) ReadPump() {
	defer func() {
		if c.Room != nil {
			c.Room.Unregister(c)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))

	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] 连接异常关闭: %v", err)
			}
			break
		}

		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(message)
	}
}

// dispatch 按消息类型分发
func (c *Client) dispatch(message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError(ErrMessageInvalid, err.Error())
		return
	}
	if c.Room == nil {
		c.sendError(ErrRoomNotFound, c.SessionID)
		return
	}

	switch msg.Type {
	case TypeSDKResult:
		c.handleSDKResult(&msg)
	case TypeEditorInit, TypeRequestPreviewElement, TypePageChanged:
		msg.SenderID = c.UserInfo.UserID
		if err := c.Room.HandleEvent(context.Background(), &msg); err != nil {
			log.Printf("[Client] 用户 [%s] 事件 %s 处理失败: %v", c.UserInfo.UserName, msg.Type, err)
			c.sendError(ErrMessageInvalid, err.Error())
		}
	default:
		c.sendError(ErrMessageInvalid, "unknown message type: "+string(msg.Type))
	}
}

// handleSDKResult 把结果交给等待中的 SDK 调用
func (c *Client) handleSDKResult(msg *WSMessage) {
	if msg.MsgID == "" {
		c.sendError(ErrMessageInvalid, "sdk-result without msgId")
		return
	}
	var result SDKResultPayload
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		c.sendError(ErrMessageInvalid, err.Error())
		return
	}
	if !c.Room.ResolveCall(msg.MsgID, &result) {
		log.Printf("[Client] ⚠️ 未找到等待中的调用 %s（可能已超时）", msg.MsgID)
	}
}

// sendError 发送结构化错误消息
func (c *Client) sendError(code ErrorCode, message string) {
	data, err := newMessage(TypeError, "", ErrorPayload{Code: code, Message: message}, time.Now().UnixMilli())
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend 非阻塞写入发送缓冲区；缓冲区已满或已关闭时返回 false
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend 关闭发送缓冲区，WritePump 随后发送关闭帧退出，可重复调用
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}
