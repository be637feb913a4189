package ws

import (
	"context"
	"fmt"

	"fs-bridge-go-server/internal/preview"

	json "github.com/goccy/go-json"
)

// 编辑器侧 SDK 方法名
const (
	MethodGetPreviewElement   = "getPreviewElement"
	MethodSetPreviewElement   = "setPreviewElement"
	MethodGetElementStatus    = "getElementStatus"
	MethodExecute             = "execute"
	MethodCreateSection       = "createSection"
	MethodRegisterButton      = "registerButton"
	MethodTriggerRerenderView = "triggerRerenderView"
	MethodGetPreviewLanguage  = "getPreviewLanguage"
	MethodShowEditDialog      = "showEditDialog"
	MethodShowErrorDialog     = "showErrorDialog"
)

// caller 房间的 SDK 调用能力
type caller interface {
	Call(ctx context.Context, method string, args ...any) (json.RawMessage, error)
	Notify(method string, args ...any)
}

// RoomEditor 通过会话房间调用编辑器 SDK，实现 preview.EditorSDK
type RoomEditor struct {
	room caller
}

var _ preview.EditorSDK = (*RoomEditor)(nil)

// NewRoomEditor 构造函数
func NewRoomEditor(room *Room) *RoomEditor {
	return &RoomEditor{room: room}
}

func (e *RoomEditor) GetPreviewElement(ctx context.Context) (string, error) {
	raw, err := e.room.Call(ctx, MethodGetPreviewElement)
	if err != nil {
		return "", err
	}
	return decodeString(MethodGetPreviewElement, raw)
}

func (e *RoomEditor) SetPreviewElement(ctx context.Context, previewID string) error {
	_, err := e.room.Call(ctx, MethodSetPreviewElement, previewID)
	return err
}

func (e *RoomEditor) GetElementStatus(ctx context.Context, previewID string) (*preview.ElementStatus, error) {
	raw, err := e.room.Call(ctx, MethodGetElementStatus, previewID)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	var status preview.ElementStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", MethodGetElementStatus, err)
	}
	return &status, nil
}

func (e *RoomEditor) Execute(ctx context.Context, script string, params map[string]any) (json.RawMessage, error) {
	return e.room.Call(ctx, MethodExecute, script, params)
}

func (e *RoomEditor) CreateSection(ctx context.Context, previewID string, opts preview.CreateSectionOptions) (json.RawMessage, error) {
	return e.room.Call(ctx, MethodCreateSection, previewID, opts)
}

func (e *RoomEditor) RegisterButton(ctx context.Context, button preview.Button, priority int) error {
	_, err := e.room.Call(ctx, MethodRegisterButton, button, priority)
	return err
}

func (e *RoomEditor) TriggerRerenderView(ctx context.Context) error {
	_, err := e.room.Call(ctx, MethodTriggerRerenderView)
	return err
}

func (e *RoomEditor) GetPreviewLanguage(ctx context.Context) (string, error) {
	raw, err := e.room.Call(ctx, MethodGetPreviewLanguage)
	if err != nil {
		return "", err
	}
	return decodeString(MethodGetPreviewLanguage, raw)
}

func (e *RoomEditor) ShowEditDialog(previewID string) {
	e.room.Notify(MethodShowEditDialog, previewID)
}

func (e *RoomEditor) ShowErrorDialog(ctx context.Context, key preview.TranslationKey, params map[string]string) error {
	_, err := e.room.Call(ctx, MethodShowErrorDialog, string(key), params)
	return err
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeString null 结果视为空字符串
func decodeString(method string, raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("decode %s result: %w", method, err)
	}
	return value, nil
}
