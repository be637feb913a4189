package realtime

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ChangeType CaaS 变更流中的操作类型
type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeDelete  ChangeType = "delete"
	ChangeInsert  ChangeType = "insert"
	ChangeModify  ChangeType = "modify"
	ChangeRename  ChangeType = "rename"
	ChangeReplace ChangeType = "replace"
	ChangeUpdate  ChangeType = "update"
)

// ChangeEvent 一条文档变更
type ChangeEvent struct {
	DocumentID string
	ChangeType ChangeType
	Raw        json.RawMessage
}

// MalformedEventError 消息缺少文档 ID 或变更类型
type MalformedEventError struct {
	MissingDocumentID bool
	MissingChangeType bool
}

func (e *MalformedEventError) Error() string {
	var missing []string
	if e.MissingDocumentID {
		missing = append(missing, "documentId")
	}
	if e.MissingChangeType {
		missing = append(missing, "changeType")
	}
	return "message is missing crucial information: " + strings.Join(missing, " and ")
}

// wireEvent 变更流消息的线上格式
type wireEvent struct {
	DocumentKey *struct {
		ID string `json:"_id"`
	} `json:"documentKey"`
	OperationType string `json:"operationType"`
	FullDocument  *struct {
		FsType string `json:"fsType"`
		ID     string `json:"_id"`
	} `json:"fullDocument,omitempty"`
}

// ParseChangeEvent 解析一条变更流消息 {documentKey: {_id}, operationType}
// 结构不完整返回 *MalformedEventError
func ParseChangeEvent(data []byte) (*ChangeEvent, error) {
	var wire *wireEvent
	if len(data) > 0 {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode change event: %w", err)
		}
	}

	var documentID string
	var changeType string
	if wire != nil {
		if wire.DocumentKey != nil {
			documentID = wire.DocumentKey.ID
		}
		changeType = wire.OperationType
	}

	if documentID == "" || changeType == "" {
		return nil, &MalformedEventError{
			MissingDocumentID: documentID == "",
			MissingChangeType: changeType == "",
		}
	}

	return &ChangeEvent{
		DocumentID: documentID,
		ChangeType: ChangeType(changeType),
		Raw:        json.RawMessage(data),
	}, nil
}
