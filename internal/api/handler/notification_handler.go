package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/service"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/response"
)

// NotificationHandler 站内通知 Handler
type NotificationHandler struct {
	svc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler 实例
func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// ListMine 查询当前用户的站内通知
// GET /api/v1/notifications
func (h *NotificationHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}

	notifications, total, err := h.svc.ListMine(c.Request.Context(), userID, &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, notifications, total, page.GetPage(), page.GetPageSize())
}
