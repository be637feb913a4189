package caas

import (
	json "github.com/goccy/go-json"
)

// Document CaaS 中的一条文档（结构由 CMS 决定，这里保持原样）
type Document map[string]any

// UID 文档 uid 字段
func (d Document) UID() string {
	uid, _ := d["uid"].(string)
	return uid
}

// FindDocuments 从 HAL 响应 {_embedded: {'rh:doc': [...]}} 中取出文档列表
// 任何空或畸形的响应都归一化为空列表，不返回错误
func FindDocuments(response any) []Document {
	root, ok := response.(map[string]any)
	if !ok {
		return []Document{}
	}
	embedded, ok := root["_embedded"].(map[string]any)
	if !ok {
		return []Document{}
	}
	rawDocs, ok := embedded["rh:doc"].([]any)
	if !ok {
		return []Document{}
	}

	docs := make([]Document, 0, len(rawDocs))
	for _, raw := range rawDocs {
		if doc, ok := raw.(map[string]any); ok {
			docs = append(docs, Document(doc))
		}
	}
	return docs
}

// FindDocumentsInBody 解析原始响应体后再提取文档
func FindDocumentsInBody(body []byte) []Document {
	if len(body) == 0 {
		return []Document{}
	}
	var response any
	if err := json.Unmarshal(body, &response); err != nil {
		return []Document{}
	}
	return FindDocuments(response)
}
