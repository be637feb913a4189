package ws

import (
	"fmt"

	json "github.com/goccy/go-json"
)

type MessageType string

const (
	// 编辑器 -> 服务端事件
	TypeEditorInit            MessageType = "editor-init"             // 编辑器 SDK 初始化完成
	TypeRequestPreviewElement MessageType = "request-preview-element" // 请求显示某个元素
	TypePageChanged           MessageType = "page-changed"            // 商城前端渲染了新页面
	TypeSDKResult             MessageType = "sdk-result"              // SDK 调用结果

	// 服务端 -> 编辑器命令
	TypeSDKCall     MessageType = "sdk-call"     // 调用编辑器 SDK
	TypeNavigate    MessageType = "navigate"     // 商城前端导航
	TypeSetLanguage MessageType = "set-language" // 切换激活语言

	// 系统消息
	TypeUserJoin  MessageType = "user-join"  // 用户加入会话
	TypeUserLeave MessageType = "user-leave" // 用户离开会话
	TypeSync      MessageType = "sync"       // 全量同步（新连接加入时发送）
	TypeError     MessageType = "error"      // 错误消息
)

// WSMessage 统一的 WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`            // 消息类型
	SenderID  string          `json:"senderId"`        // 发送者id
	MsgID     string          `json:"msgId,omitempty"` // SDK 调用与结果的关联 ID
	Payload   json.RawMessage `json:"payload"`         // 消息内容
	Timestamp int64           `json:"ts"`              // 时间戳
}

// EditorInitPayload editor-init 的 payload
type EditorInitPayload struct {
	Success bool `json:"success"`
}

// PreviewElementPayload request-preview-element / page-changed 的 payload
type PreviewElementPayload struct {
	PreviewID string `json:"previewId"`
}

// SDKCallPayload sdk-call 的 payload
type SDKCallPayload struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// SDKResultPayload sdk-result 的 payload，Error 非空表示调用被拒绝
type SDKResultPayload struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NavigatePayload navigate 命令的 payload
type NavigatePayload struct {
	Route  string `json:"route"`
	PageID string `json:"pageId"`
}

// LanguagePayload set-language 命令的 payload
type LanguagePayload struct {
	Lang string `json:"lang"`
}

// SyncPayload sync 消息的 payload（新连接加入时发送）
type SyncPayload struct {
	SessionID string          `json:"sessionId"`
	SiteID    string          `json:"siteId"`
	Preview   bool            `json:"preview"`
	State     json.RawMessage `json:"state"`
	Version   int64           `json:"version"`
	Users     []UserInfo      `json:"users"`
}

// UserInfo 用户基础信息
type UserInfo struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Color    string `json:"color,omitempty"`
}

// ========== 错误码系统 ==========
// 前端根据 Code 判断错误类型，而不是匹配 Message 字符串

type ErrorCode string

const (
	ErrMessageInvalid ErrorCode = "MESSAGE_INVALID" // 消息格式错误
	ErrRoomNotFound   ErrorCode = "ROOM_NOT_FOUND"  // 会话房间不存在
	ErrSessionClosed  ErrorCode = "SESSION_CLOSED"  // 会话已被删除
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 未授权
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"  // 服务器内部错误
)

// ErrorPayload 错误消息的 payload 结构
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`    // 错误码（前端用于判断逻辑）
	Message string    `json:"message"` // 错误描述（用于调试/日志，可本地化）
}

// ========== 自定义错误类型 ==========

// RPCError 编辑器拒绝了 SDK 调用
type RPCError struct {
	Method  string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("sdk call %s rejected: %s", e.Method, e.Message)
}

// newMessage 编码一条服务端消息
func newMessage(msgType MessageType, msgID string, payload any, ts int64) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return json.Marshal(WSMessage{
		Type:      msgType,
		SenderID:  "server",
		MsgID:     msgID,
		Payload:   data,
		Timestamp: ts,
	})
}
