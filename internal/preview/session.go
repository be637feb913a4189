package preview

import (
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// SessionState 可持久化的会话状态快照
type SessionState struct {
	CurrentPreviewID  string `json:"currentPreviewId"`
	HomepagePreviewID string `json:"homepagePreviewId"`
	Language          string `json:"language"`
}

// Session 一个预览会话的共享状态
// 事件协调器和实时变更客户端持有同一个 Session，会话结束时随 Room 一起销毁
type Session struct {
	ID      string
	SiteID  string
	Preview bool

	mu      sync.RWMutex
	state   SessionState
	changes uint64 // 每次状态变化 +1，Room 据此判断是否需要落库
}

// NewSession 创建会话
func NewSession(id, siteID string, preview bool) *Session {
	return &Session{ID: id, SiteID: siteID, Preview: preview}
}

// CurrentPreviewID 编辑器当前聚焦的元素
func (s *Session) CurrentPreviewID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentPreviewID
}

// SetCurrentPreviewID 更新当前元素
func (s *Session) SetCurrentPreviewID(previewID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentPreviewID != previewID {
		s.state.CurrentPreviewID = previewID
		s.changes++
	}
}

// HomepagePreviewID 缓存的首页 previewId（未发现时为空）
func (s *Session) HomepagePreviewID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HomepagePreviewID
}

// CacheHomepagePreviewID 只在尚未缓存时写入，返回是否写入
func (s *Session) CacheHomepagePreviewID(previewID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previewID == "" || s.state.HomepagePreviewID != "" {
		return false
	}
	s.state.HomepagePreviewID = previewID
	s.changes++
	return true
}

// Language 当前激活语言（小写）
func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Language
}

// SetLanguage 更新激活语言
func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Language != lang {
		s.state.Language = lang
		s.changes++
	}
}

// Changes 状态变化计数
func (s *Session) Changes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes
}

// State 返回当前状态副本
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot 序列化当前状态
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.state)
}

// Restore 从持久化的快照恢复状态，空数据视为初始状态
func (s *Session) Restore(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("restore session %s: %w", s.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// Reset 会话结束时清空状态
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{}
	s.changes++
}
