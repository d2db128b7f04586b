package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

// NotificationService 站内通知查询接口（写入端见 Notifier）
type NotificationService interface {
	// ListMine 查询当前用户的站内通知，按时间倒序分页
	ListMine(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) ListMine(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error) {
	notifications, total, err := s.repo.Notification.ListByUser(ctx, userID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询站内通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		result = append(result, toNotificationResponse(&notifications[i]))
	}
	return result, total, nil
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if n.RelatedType != nil {
		resp.RelatedType = *n.RelatedType
	}
	if n.RelatedID != nil {
		resp.RelatedID = *n.RelatedID
	}
	return resp
}
