package entity

import (
	"time"

	"gorm.io/datatypes"
)

// PreviewSession 预览会话数据库模型
// 一个会话 = 一个站点 + 预览/发布模式 + 一组编辑器连接
type PreviewSession struct {
	ID        uint           `gorm:"primaryKey"`
	SessionID string         `gorm:"uniqueIndex;size:64"`
	SiteID    string         `gorm:"size:64"`
	Preview   bool           `gorm:"default:true"`
	State     datatypes.JSON `gorm:"type:jsonb"` // 会话共享状态快照（当前元素、首页 previewId、语言）
	Version   int64          `gorm:"default:0"`
	CreatorID string         `gorm:"size:64"` // Clerk user_id
	CreatedAt time.Time
	UpdatedAt time.Time
}
