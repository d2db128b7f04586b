package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/service"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTerm 导出学期课表
// GET /api/v1/timetable/export?department=xxx&term=xxx
func (h *ExportHandler) ExportTerm(c *gin.Context) {
	department := c.Query("department")
	term := c.Query("term")
	if department == "" || term == "" {
		response.BadRequest(c, 19000, "department 与 term 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportTerm(c.Request.Context(), department, term)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEntries):
		response.NotFound(c, 19001, "该院系该学期暂无课表数据")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
