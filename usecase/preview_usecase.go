package usecase

import (
	"log"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/domain/repository"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/config"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoomCloser 关闭内存中的会话房间（同时关闭变更流）
type RoomCloser interface {
	CloseRoom(sessionID string, reason string)
}

// PreviewUseCase 预览会话的创建、列举和删除
type PreviewUseCase struct {
	repo  repository.SessionRepository
	rooms RoomCloser
	cfg   *config.BridgeConfig
}

// NewPreviewUseCase 构造函数
func NewPreviewUseCase(repo repository.SessionRepository, rooms RoomCloser, cfg *config.BridgeConfig) *PreviewUseCase {
	return &PreviewUseCase{repo: repo, rooms: rooms, cfg: cfg}
}

// CreateSession 为站点创建新的预览会话
// 站点必须配置了完整的 CaaS 访问数据
func (uc *PreviewUseCase) CreateSession(siteID string, preview bool, creatorID string) (*entity.PreviewSession, error) {
	if _, err := caas.Resolve(uc.cfg, siteID, preview); err != nil {
		return nil, err
	}

	session := &entity.PreviewSession{
		SessionID: uuid.NewString(),
		SiteID:    siteID,
		Preview:   preview,
		State:     datatypes.JSON(`{}`),
		Version:   1,
		CreatorID: creatorID,
	}
	if err := uc.repo.Create(session); err != nil {
		return nil, err
	}
	log.Printf("[Preview] ✅ 用户 %s 创建预览会话 %s（站点 %s）", creatorID, session.SessionID, siteID)
	return session, nil
}

// ListSessions 列出用户的预览会话
func (uc *PreviewUseCase) ListSessions(creatorID string) ([]entity.PreviewSession, error) {
	return uc.repo.ListByCreator(creatorID)
}

// DeleteSession 删除会话：先关闭房间（刷盘 + 断开变更流），再删数据库
func (uc *PreviewUseCase) DeleteSession(sessionID, userID string) error {
	session, err := uc.repo.GetBySessionID(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return domainErrors.ErrSessionNotFound
	}
	if session.CreatorID != userID {
		return domainErrors.ErrUnauthorized
	}

	uc.rooms.CloseRoom(sessionID, "preview session deleted")
	return uc.repo.Delete(sessionID)
}

// DeleteUserSessions 用户被删除时清理其全部会话
func (uc *PreviewUseCase) DeleteUserSessions(userID string) error {
	sessions, err := uc.repo.ListByCreator(userID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		uc.rooms.CloseRoom(s.SessionID, "user deleted")
		if err := uc.repo.Delete(s.SessionID); err != nil {
			log.Printf("[Preview] ⚠️ 删除会话 %s 失败: %v", s.SessionID, err)
		}
	}
	return nil
}
