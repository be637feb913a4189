package repository

import "fs-bridge-go-server/domain/entity"

// SessionRepository 预览会话数据仓库接口
type SessionRepository interface {
	// GetBySessionID 根据业务 ID 获取会话，不存在时返回 (nil, nil)
	GetBySessionID(sessionID string) (*entity.PreviewSession, error)

	// Create 创建新会话
	// 注意：禁止使用 GORM Save，它会覆盖 state 和 version
	Create(session *entity.PreviewSession) error

	// UpdateState 更新会话状态快照（房间刷盘的热路径）
	// oldVersion: 上次持久化的版本号，用于乐观锁检查
	// newVersion: 要写入的新版本号（允许跳跃）
	// 如果版本不匹配，返回 ErrOptimisticLock
	UpdateState(sessionID string, state []byte, oldVersion, newVersion int64) error

	// ListByCreator 列出某个用户创建的全部会话
	ListByCreator(creatorID string) ([]entity.PreviewSession, error)

	// Delete 删除会话
	// 注意：删除前必须先通过 Hub.CloseRoom 关闭内存中的房间（同时关闭 CaaS 变更流）
	Delete(sessionID string) error
}
