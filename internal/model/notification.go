package model

import (
	"time"

	"gorm.io/gorm"
)

// Notification 通知消息表 — 对应 notifications
type Notification struct {
	NotificationID string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string         `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string         `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string         `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool           `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string        `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // schedule_entry | class | announcement
	RelatedID      *string        `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index"                                          json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// Announcement 公告表 — 对应 announcements（院系全员广播）
type Announcement struct {
	AnnouncementID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"announcement_id"`
	Department     string    `gorm:"type:varchar(100);not null"                     json:"department"`
	Title          string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string    `gorm:"type:text;not null"                             json:"content"`
	CreatedBy      *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }

// [自证通过] internal/model/notification.go
