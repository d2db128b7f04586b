package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
)

// NotificationRepository 通知/公告数据访问接口（通知汇流落库端）
type NotificationRepository interface {
	BatchCreate(ctx context.Context, notifications []model.Notification) error
	CreateAnnouncement(ctx context.Context, announcement *model.Announcement) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Notification, int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实现
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) BatchCreate(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *notificationRepo) CreateAnnouncement(ctx context.Context, announcement *model.Announcement) error {
	return r.db.WithContext(ctx).Create(announcement).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, total, err
}
