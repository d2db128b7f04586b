package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries    = errors.New("该院系该学期暂无课表数据")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 课表导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// Excel 格式：按周序分 Sheet，行按星期 + 开始时间排序。
type ExportService interface {
	// ExportTerm 导出某院系某学期课表为 Excel
	ExportTerm(ctx context.Context, department, term string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ExportTerm — 导出学期课表为 Excel
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportTerm(ctx context.Context, department, term string) (*bytes.Buffer, string, error) {
	// 1. 取全量条目（分页上限放开）
	entries, _, err := s.repo.ScheduleEntry.List(ctx, department, term, nil, "", 0, 10000)
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", ErrExportNoEntries
	}

	// 2. 按周序分组
	byWeek := make(map[int][]model.ScheduleEntry)
	var weeks []int
	for i := range entries {
		wn := 0
		if entries[i].WeekNumber != nil {
			wn = *entries[i].WeekNumber
		}
		if _, ok := byWeek[wn]; !ok {
			weeks = append(weeks, wn)
		}
		byWeek[wn] = append(byWeek[wn], entries[i])
	}
	sort.Ints(weeks)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for idx, wn := range weeks {
		sheetName := fmt.Sprintf("第%d周", wn)
		if wn == 0 {
			sheetName = "未分周"
		}

		if idx == 0 {
			f.SetSheetName("Sheet1", sheetName)
		} else {
			f.NewSheet(sheetName)
		}

		f.SetColWidth(sheetName, "A", "A", 24)
		f.SetColWidth(sheetName, "B", "B", 16)
		f.SetColWidth(sheetName, "C", "D", 10)
		f.SetColWidth(sheetName, "E", "G", 18)

		// 表头
		headers := []string{"科目", "星期", "开始", "结束", "教师", "代课", "场地"}
		for i, h := range headers {
			f.SetCellValue(sheetName, cell(colName(i), 1), h)
		}
		f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

		// 行排序：星期 + 开始时间
		rows := byWeek[wn]
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].DayOfWeek != rows[j].DayOfWeek {
				return dayOrder(rows[i].DayOfWeek) < dayOrder(rows[j].DayOfWeek)
			}
			return rows[i].StartTime < rows[j].StartTime
		})

		for r, e := range rows {
			row := r + 2
			f.SetCellValue(sheetName, cell("A", row), e.Subject)
			f.SetCellValue(sheetName, cell("B", row), e.DayOfWeek)
			f.SetCellValue(sheetName, cell("C", row), e.StartTime)
			f.SetCellValue(sheetName, cell("D", row), e.EndTime)

			teacherName := "-"
			if e.Teacher != nil {
				teacherName = e.Teacher.Name
			}
			f.SetCellValue(sheetName, cell("E", row), teacherName)

			subName := "-"
			if e.Sub.IsSet() {
				subName = e.Sub.Name
			}
			f.SetCellValue(sheetName, cell("F", row), subName)

			venueName := "未分配"
			if e.Venue != nil {
				venueName = e.Venue.Name
			}
			f.SetCellValue(sheetName, cell("G", row), venueName)
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s_%s.xlsx", department, term)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
