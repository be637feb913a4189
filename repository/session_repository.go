package repository

import (
	"errors"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	domainRepo "fs-bridge-go-server/domain/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// sessionRepository GORM 实现 SessionRepository 接口
// 同时实现 ws.SessionService 接口供 Hub 使用
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 构造函数
func NewSessionRepository(db *gorm.DB) domainRepo.SessionRepository {
	return &sessionRepository{db: db}
}

// ================= domain.SessionRepository 接口实现 =================

// GetBySessionID 根据业务 ID 查询会话
func (r *sessionRepository) GetBySessionID(sessionID string) (*entity.PreviewSession, error) {
	var session entity.PreviewSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 返回 nil 表示不存在，调用方需处理
	}
	return &session, err
}

// Create 创建新会话（仅用于首次创建）
func (r *sessionRepository) Create(session *entity.PreviewSession) error {
	return r.db.Create(session).Error
}

// UpdateState 只更新 State 字段
// oldVersion: 上次持久化的版本号（用于 WHERE 条件）
// newVersion: 要写入的新版本号（允许跳跃）
func (r *sessionRepository) UpdateState(sessionID string, state []byte, oldVersion, newVersion int64) error {
	result := r.db.Model(&entity.PreviewSession{}).
		Where("session_id = ? AND version = ?", sessionID, oldVersion).
		Updates(map[string]interface{}{
			"state":   datatypes.JSON(state),
			"version": newVersion,
		})

	if result.Error != nil {
		return result.Error
	}

	// RowsAffected == 0 说明版本冲突或会话不存在
	if result.RowsAffected == 0 {
		return domainErrors.ErrOptimisticLock
	}

	return nil
}

// ListByCreator 列出用户的全部会话
func (r *sessionRepository) ListByCreator(creatorID string) ([]entity.PreviewSession, error) {
	var sessions []entity.PreviewSession
	err := r.db.Where("creator_id = ?", creatorID).Find(&sessions).Error
	return sessions, err
}

// Delete 删除会话
func (r *sessionRepository) Delete(sessionID string) error {
	result := r.db.Where("session_id = ?", sessionID).Delete(&entity.PreviewSession{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

// ================= ws.SessionService 接口实现 =================
// 这些方法供 Hub 直接调用，无需额外适配器

// GetSession 获取会话（供 Hub 使用）
// 会话不存在时返回明确错误，阻止幽灵房间的创建
func (r *sessionRepository) GetSession(sessionID string) (*entity.PreviewSession, error) {
	session, err := r.GetBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domainErrors.ErrSessionNotFound
	}
	return session, nil
}

// SaveSessionState 保存会话状态（供 Hub 使用），支持版本跳跃
func (r *sessionRepository) SaveSessionState(sessionID string, state []byte, oldVersion, newVersion int64) error {
	return r.UpdateState(sessionID, state, oldVersion, newVersion)
}
