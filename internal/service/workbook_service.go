package service

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
)

// ── 工作簿解析业务错误 ──

var (
	ErrWorkbookUnreadable = errors.New("无法读取 Excel 文件")
	ErrWorkbookEmpty      = errors.New("Excel 文件中没有工作表")
	ErrSheetTooLarge      = errors.New("工作表行数超出上限")
)

// WorkbookService 电子表格解析业务接口
//
// 只负责把上传的 .xlsx 还原为按表名组织的行集合，周范围解析、行校验
// 与教师解析都留给导入流程，保证两个入口（文件上传 / JSON 直传）走
// 完全相同的校验路径。
type WorkbookService interface {
	// ParseWorkbook 解析上传的 Excel 为逐表行集合
	ParseWorkbook(r io.Reader) ([]dto.Sheet, error)
}

type workbookService struct {
	maxRows int
	logger  *zap.Logger
}

// NewWorkbookService 创建 WorkbookService 实例
func NewWorkbookService(cfg *config.TimetableConfig, logger *zap.Logger) WorkbookService {
	return &workbookService{maxRows: cfg.MaxSheetRows, logger: logger}
}

// 表头别名（全小写比对）
var headerAliases = map[string]string{
	"subject":       "subject",
	"course":        "subject",
	"科目":            "subject",
	"teacher":       "teacher_email",
	"teacher email": "teacher_email",
	"email":         "teacher_email",
	"教师邮箱":          "teacher_email",
	"day":           "day",
	"day of week":   "day",
	"星期":            "day",
	"start":         "start_time",
	"start time":    "start_time",
	"开始时间":          "start_time",
	"end":           "end_time",
	"end time":      "end_time",
	"结束时间":          "end_time",
}

// ════════════════════════════════════════════════════════════
// ParseWorkbook — Excel 解析
// ════════════════════════════════════════════════════════════
//
// 每个工作表的首行视为表头，按别名映射到五个字段；表头无法识别时
// 退回按列序取前五列。空行跳过，单元格内容一律 TrimSpace。

func (s *workbookService) ParseWorkbook(r io.Reader) ([]dto.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		s.logger.Warn("打开 Excel 文件失败", zap.Error(err))
		return nil, ErrWorkbookUnreadable
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, ErrWorkbookEmpty
	}

	sheets := make([]dto.Sheet, 0, len(sheetNames))
	for _, name := range sheetNames {
		rows, err := f.GetRows(name)
		if err != nil {
			s.logger.Warn("读取工作表失败", zap.String("sheet", name), zap.Error(err))
			return nil, ErrWorkbookUnreadable
		}
		if len(rows) > s.maxRows {
			return nil, ErrSheetTooLarge
		}

		sheet := dto.Sheet{Name: name}
		if len(rows) > 0 {
			cols := mapHeader(rows[0])
			for _, raw := range rows[1:] {
				row := extractRow(raw, cols)
				if row == (dto.SheetRow{}) {
					continue
				}
				sheet.Rows = append(sheet.Rows, row)
			}
		}
		sheets = append(sheets, sheet)
	}

	return sheets, nil
}

// mapHeader 表头列号映射；识别不出任何列时退回默认列序
func mapHeader(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := headerAliases[key]; ok {
			if _, taken := cols[field]; !taken {
				cols[field] = i
			}
		}
	}
	if len(cols) == 0 {
		cols = map[string]int{"subject": 0, "teacher_email": 1, "day": 2, "start_time": 3, "end_time": 4}
	}
	return cols
}

func extractRow(raw []string, cols map[string]int) dto.SheetRow {
	get := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[idx])
	}
	return dto.SheetRow{
		Subject:      get("subject"),
		TeacherEmail: get("teacher_email"),
		Day:          get("day"),
		StartTime:    get("start_time"),
		EndTime:      get("end_time"),
	}
}
