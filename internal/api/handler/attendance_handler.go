package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/service"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/response"
)

// AttendanceHandler 考勤模块 Handler
type AttendanceHandler struct {
	svc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler 实例
func NewAttendanceHandler(svc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// CanMark 查询当前是否在考勤窗口内
// GET /api/v1/attendance/can-mark?class_id=...
//
// teacher_id 取当前登录用户，不信任查询参数
func (h *AttendanceHandler) CanMark(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classID := c.Query("class_id")
	if classID == "" {
		response.BadRequest(c, 18000, "缺少 class_id 参数")
		return
	}

	resp, err := h.svc.CanMark(c.Request.Context(), teacherID, classID)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, resp)
}

// Mark 提交考勤
// POST /api/v1/attendance
func (h *AttendanceHandler) Mark(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 18000, err.Error())
		return
	}

	resp, err := h.svc.Mark(c.Request.Context(), &req, teacherID)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListBySession 查询某课程某天的考勤记录
// GET /api/v1/attendance?class_id=...&date=2026-03-02
func (h *AttendanceHandler) ListBySession(c *gin.Context) {
	classID := c.Query("class_id")
	date := c.Query("date")
	if classID == "" || date == "" {
		response.BadRequest(c, 18000, "缺少 class_id 或 date 参数")
		return
	}

	resp, err := h.svc.ListBySession(c.Request.Context(), classID, date)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleAttendanceError 统一考勤模块错误映射
func handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 18001, err.Error())
	case errors.Is(err, service.ErrAttendanceForbidden):
		response.Error(c, http.StatusForbidden, 18002, err.Error())
	case errors.Is(err, service.ErrInvalidSlotRequest):
		response.BadRequest(c, 18003, "日期参数无效")
	default:
		response.InternalError(c)
	}
}
