package service

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else {
			f.NewSheet(name)
		}
		for r, row := range rows {
			for c, val := range row {
				cellName, _ := excelize.CoordinatesToCellName(c+1, r+1)
				f.SetCellValue(name, cellName, val)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成测试工作簿失败: %v", err)
	}
	return buf
}

func newTestWorkbookService() WorkbookService {
	return NewWorkbookService(&config.TimetableConfig{MaxSheetRows: 100}, zap.NewNop())
}

func TestParseWorkbook_HeaderMapping(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]string{
		"Weeks 1-5": {
			{"Subject", "Teacher Email", "Day", "Start Time", "End Time"},
			{"数据结构", "wang@school.edu", "Monday", "8:00", "10:00"},
			{"", "", "", "", ""}, // 空行
			{"操作系统", "li@school.edu", "Wednesday", "14:00", "16:00"},
		},
	})

	sheets, err := newTestWorkbookService().ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("ParseWorkbook 失败: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("期望 1 个工作表, 实际 %d", len(sheets))
	}
	if sheets[0].Name != "Weeks 1-5" {
		t.Errorf("表名期望 Weeks 1-5, 实际 %s", sheets[0].Name)
	}
	if len(sheets[0].Rows) != 2 {
		t.Fatalf("空行应跳过, 期望 2 行, 实际 %d", len(sheets[0].Rows))
	}
	row := sheets[0].Rows[0]
	if row.Subject != "数据结构" || row.TeacherEmail != "wang@school.edu" || row.Day != "Monday" {
		t.Errorf("行内容解析不正确: %+v", row)
	}
	if row.StartTime != "8:00" {
		t.Errorf("解析阶段不做时间规范化, 期望原样 8:00, 实际 %s", row.StartTime)
	}
}

func TestParseWorkbook_ShuffledColumns(t *testing.T) {
	// 表头顺序打乱，按别名映射而非列序
	buf := buildWorkbook(t, map[string][][]string{
		"Week 3": {
			{"Day", "End", "Subject", "Start", "Email"},
			{"friday", "16:00", "体育", "14:00", "coach@school.edu"},
		},
	})

	sheets, err := newTestWorkbookService().ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("ParseWorkbook 失败: %v", err)
	}
	row := sheets[0].Rows[0]
	if row.Subject != "体育" || row.TeacherEmail != "coach@school.edu" ||
		row.Day != "friday" || row.StartTime != "14:00" || row.EndTime != "16:00" {
		t.Errorf("乱序表头解析不正确: %+v", row)
	}
}

func TestParseWorkbook_NoHeaderFallsBackToPosition(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]string{
		"Week 1": {
			{"不认识", "的", "表", "头", "们"},
			{"数据结构", "wang@school.edu", "Monday", "08:00", "10:00"},
		},
	})

	sheets, err := newTestWorkbookService().ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("ParseWorkbook 失败: %v", err)
	}
	row := sheets[0].Rows[0]
	if row.Subject != "数据结构" || row.Day != "Monday" {
		t.Errorf("无法识别表头时应退回列序解析: %+v", row)
	}
}

func TestParseWorkbook_TooManyRows(t *testing.T) {
	rows := [][]string{{"Subject", "Email", "Day", "Start", "End"}}
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{"课程", "t@school.edu", "Monday", "08:00", "10:00"})
	}
	buf := buildWorkbook(t, map[string][][]string{"Week 1": rows})

	_, err := newTestWorkbookService().ParseWorkbook(buf)
	if err != ErrSheetTooLarge {
		t.Fatalf("超行数工作表应返回 ErrSheetTooLarge, 实际 %v", err)
	}
}

func TestParseWorkbook_GarbageInput(t *testing.T) {
	_, err := newTestWorkbookService().ParseWorkbook(bytes.NewReader([]byte("不是 xlsx")))
	if err != ErrWorkbookUnreadable {
		t.Fatalf("非 xlsx 输入应返回 ErrWorkbookUnreadable, 实际 %v", err)
	}
}
