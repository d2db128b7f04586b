package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/service"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/response"
)

// VenueHandler 场地模块 Handler（含课表条目上的场地分配与代课安排）
type VenueHandler struct {
	svc         service.VenueService
	replacement service.ReplacementService
}

// NewVenueHandler 创建 VenueHandler 实例
func NewVenueHandler(svc service.VenueService, replacement service.ReplacementService) *VenueHandler {
	return &VenueHandler{svc: svc, replacement: replacement}
}

// CreateVenue 创建场地
// POST /api/v1/venues
func (h *VenueHandler) CreateVenue(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17000, err.Error())
		return
	}

	resp, err := h.svc.CreateVenue(c.Request.Context(), &req, userID)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.Created(c, resp)
}

// GetVenue 查询场地
// GET /api/v1/venues/:id
func (h *VenueHandler) GetVenue(c *gin.Context) {
	resp, err := h.svc.GetVenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListVenues 查询场地列表
// GET /api/v1/venues?only_available=true
func (h *VenueHandler) ListVenues(c *gin.Context) {
	onlyAvailable, _ := strconv.ParseBool(c.DefaultQuery("only_available", "false"))

	resp, err := h.svc.ListVenues(c.Request.Context(), onlyAvailable)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// UpdateVenue 更新场地
// PUT /api/v1/venues/:id
func (h *VenueHandler) UpdateVenue(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17000, err.Error())
		return
	}

	resp, err := h.svc.UpdateVenue(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteVenue 删除场地
// DELETE /api/v1/venues/:id
func (h *VenueHandler) DeleteVenue(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteVenue(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListAvailableVenues 查询指定时段空闲场地
// GET /api/v1/venues/available
func (h *VenueHandler) ListAvailableVenues(c *gin.Context) {
	var req dto.AvailableVenuesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 17000, err.Error())
		return
	}

	resp, err := h.svc.ListAvailableVenues(c.Request.Context(), &req)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// AssignVenue 为课表条目分配场地
// PUT /api/v1/timetable/entries/:id/venue
func (h *VenueHandler) AssignVenue(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17000, err.Error())
		return
	}

	resp, err := h.svc.AssignVenue(c.Request.Context(), c.Param("id"), req.VenueID, userID)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// AssignReplacement 安排/更新/清除代课
// PUT /api/v1/timetable/entries/:id/replacement
func (h *VenueHandler) AssignReplacement(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17000, err.Error())
		return
	}

	resp, err := h.replacement.AssignReplacement(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		handleVenueError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleVenueError 统一场地模块错误映射
func handleVenueError(c *gin.Context, err error) {
	var conflict *service.VenueConflictError
	switch {
	case errors.As(err, &conflict):
		response.Conflict(c, 17001, "场地时段冲突", buildConflictResponse(conflict))
	case errors.Is(err, service.ErrVenueNotFound):
		response.NotFound(c, 17002, err.Error())
	case errors.Is(err, service.ErrVenueNameTaken):
		response.Conflict(c, 17003, err.Error(), nil)
	case errors.Is(err, service.ErrVenueUnavailable):
		response.BadRequest(c, 17004, err.Error())
	case errors.Is(err, service.ErrInvalidSlotRequest):
		response.BadRequest(c, 17005, err.Error())
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 16005, err.Error())
	case errors.Is(err, service.ErrSubstituteNotFound):
		response.NotFound(c, 17006, err.Error())
	default:
		response.InternalError(c)
	}
}

// buildConflictResponse 组装 409 冲突响应体
func buildConflictResponse(conflict *service.VenueConflictError) dto.VenueConflictResponse {
	resp := dto.VenueConflictResponse{}
	if conflict.Entry != nil {
		resp.ConflictingEntry = &dto.EntryResponse{
			ID:         conflict.Entry.EntryID,
			Subject:    conflict.Entry.Subject,
			Department: conflict.Entry.Department,
			DayOfWeek:  conflict.Entry.DayOfWeek,
			StartTime:  conflict.Entry.StartTime,
			EndTime:    conflict.Entry.EndTime,
			Term:       conflict.Entry.Term,
			WeekNumber: conflict.Entry.WeekNumber,
		}
	}
	for _, v := range conflict.Suggestions {
		resp.Suggestions = append(resp.Suggestions, dto.VenueBrief{ID: v.VenueID, Name: v.Name, Capacity: v.Capacity})
	}
	return resp
}
