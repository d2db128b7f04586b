package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

func newTestTimetableService(repo *repository.Repository, m *testMocks) TimetableService {
	cfg := &config.TimetableConfig{
		Timezone:               "Africa/Nairobi",
		AttendanceGraceMinutes: 30,
		ImportLockTTL:          2 * time.Minute,
	}
	loc, _ := time.LoadLocation("Africa/Nairobi")
	return NewTimetableService(cfg, repo, nil, m.sink, loc, zap.NewNop())
}

func seedTeacher(m *testMocks, id, name, email string) {
	m.users.users[id] = &model.User{UserID: id, Name: name, Email: email, Role: "teacher", Department: "CS"}
}

// 2026-01-05 是周一；termEnd 取 10 周后的周一，恰好 10 个完整周窗口
func importRequest(sheets []dto.Sheet) *dto.ImportTermRequest {
	return &dto.ImportTermRequest{
		Department: "CS",
		Term:       "2026-T1",
		TermStart:  "2026-01-05",
		TermEnd:    "2026-03-16",
		Sheets:     sheets,
	}
}

// ════════════════════════════════════════════════════════════
// 学期展开测试
// ════════════════════════════════════════════════════════════

func TestImportTerm_ExpandsWeekRange(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Weeks 1-5",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "8:00", EndTime: "10:00"},
		},
	}})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("ImportTerm 失败: %v", err)
	}
	if resp.EntriesCreated != 5 {
		t.Fatalf("期望生成 5 条条目, 实际 %d", resp.EntriesCreated)
	}

	entries, _, _ := m.entries.List(context.Background(), "CS", "2026-T1", nil, "", 0, 100)
	if len(entries) != 5 {
		t.Fatalf("入库条目期望 5 条, 实际 %d", len(entries))
	}

	// 按周序校验：连续 7 天窗口，起始日期依次相差 7 天
	seen := make(map[int]model.ScheduleEntry)
	for _, e := range entries {
		if e.WeekNumber == nil {
			t.Fatal("条目缺少周序")
		}
		seen[*e.WeekNumber] = e
	}
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, mustLoc(t))
	for week := 1; week <= 5; week++ {
		e, ok := seen[week]
		if !ok {
			t.Fatalf("缺少第 %d 周的条目", week)
		}
		wantStart := base.AddDate(0, 0, (week-1)*7)
		if !e.StartDate.Equal(wantStart) {
			t.Errorf("第 %d 周起始日期期望 %s, 实际 %s", week, wantStart.Format("2006-01-02"), e.StartDate.Format("2006-01-02"))
		}
		if !e.EndDate.Equal(wantStart.AddDate(0, 0, 6)) {
			t.Errorf("第 %d 周结束日期应为起始 +6 天", week)
		}
		if e.StartTime != "08:00" || e.EndTime != "10:00" {
			t.Errorf("时间应规范化为零填充, 实际 %s-%s", e.StartTime, e.EndTime)
		}
		if e.DayOfWeek != "monday" {
			t.Errorf("星期应规范化为 monday, 实际 %s", e.DayOfWeek)
		}
		if e.VenueID != nil {
			t.Error("导入的条目不应自带场地")
		}
	}
}

func TestImportTerm_SingleWeekSheet(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Week 6",
		Rows: []dto.SheetRow{
			{Subject: "操作系统", TeacherEmail: "wang@school.edu", Day: "fri", StartTime: "14:00", EndTime: "16:00"},
		},
	}})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("ImportTerm 失败: %v", err)
	}
	if resp.EntriesCreated != 1 {
		t.Fatalf("单周表期望 1 条条目, 实际 %d", resp.EntriesCreated)
	}

	entries, _, _ := m.entries.List(context.Background(), "CS", "2026-T1", nil, "", 0, 100)
	e := entries[0]
	wantStart := time.Date(2026, 2, 9, 0, 0, 0, 0, mustLoc(t)) // 第 6 周窗口起点
	if !e.StartDate.Equal(wantStart) {
		t.Errorf("第 6 周起始日期期望 2026-02-09, 实际 %s", e.StartDate.Format("2006-01-02"))
	}
	if e.DayOfWeek != "friday" {
		t.Errorf("缩写 fri 应规范化为 friday, 实际 %s", e.DayOfWeek)
	}
}

func TestImportTerm_RangeBeyondTermTruncated(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	// 学期只有 10 个周窗口，Weeks 8-15 截断为 8/9/10
	req := importRequest([]dto.Sheet{{
		Name: "Weeks 8-15",
		Rows: []dto.SheetRow{
			{Subject: "编译原理", TeacherEmail: "wang@school.edu", Day: "tuesday", StartTime: "10:00", EndTime: "12:00"},
		},
	}})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("ImportTerm 失败: %v", err)
	}
	if resp.EntriesCreated != 3 {
		t.Fatalf("超出学期的周应被截断, 期望 3 条, 实际 %d", resp.EntriesCreated)
	}
}

// ════════════════════════════════════════════════════════════
// 行校验与拒绝语义测试
// ════════════════════════════════════════════════════════════

func TestImportTerm_StructuralRowsSkippedSilently(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Week 1",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{Subject: "", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},   // 缺科目
			{Subject: "无效星期", TeacherEmail: "wang@school.edu", Day: "someday", StartTime: "08:00", EndTime: "10:00"}, // 星期无效
			{Subject: "区间倒置", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "10:00", EndTime: "08:00"},  // start >= end
			{Subject: "缺邮箱", TeacherEmail: "", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("结构性缺陷行不应导致失败: %v", err)
	}
	if resp.EntriesCreated != 1 {
		t.Errorf("仅结构完整的行应入库, 期望 1, 实际 %d", resp.EntriesCreated)
	}
}

func TestImportTerm_UnknownTeacherRejectsWholeImport(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Weeks 1-3",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{Subject: "幽灵课程", TeacherEmail: "nobody@school.edu", Day: "Tuesday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})

	_, err := svc.ImportTerm(context.Background(), req, "admin-1")
	var rejected *ImportRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("期望 ImportRejectedError, 实际 %v", err)
	}
	if len(rejected.Warnings) != 1 {
		t.Errorf("期望 1 条教师告警, 实际 %d", len(rejected.Warnings))
	}

	// 整体拒绝时不得写入任何条目或课程
	if len(m.entries.entries) != 0 {
		t.Errorf("拒绝的导入不应写入条目, 实际 %d 条", len(m.entries.entries))
	}
	if len(m.classes.classes) != 0 {
		t.Errorf("拒绝的导入不应派生课程, 实际 %d 门", len(m.classes.classes))
	}
}

func TestImportTerm_UnparseableSheetWarnsNotRejects(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{
		{Name: "Week 1", Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		}},
		{Name: "Notes", Rows: []dto.SheetRow{
			{Subject: "不应被读取", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		}},
	})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("表名不可识别只应告警, 实际失败: %v", err)
	}
	if resp.EntriesCreated != 1 {
		t.Errorf("Notes 表不应贡献条目, 期望 1, 实际 %d", resp.EntriesCreated)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("期望 1 条表名告警, 实际 %d", len(resp.Warnings))
	}
}

func TestImportTerm_AllSheetsUnparseable(t *testing.T) {
	repo, m := newTestRepo()
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{Name: "Cover"}, {Name: "Notes"}})
	_, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if !errors.Is(err, ErrNoValidSheets) {
		t.Fatalf("全部表名不可识别应返回 ErrNoValidSheets, 实际 %v", err)
	}
}

func TestImportTerm_InvalidTermDates(t *testing.T) {
	repo, m := newTestRepo()
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{Name: "Week 1"}})
	req.TermStart = "2026-03-16"
	req.TermEnd = "2026-01-05"
	if _, err := svc.ImportTerm(context.Background(), req, "admin-1"); !errors.Is(err, ErrTermDatesInvalid) {
		t.Fatalf("起止倒置应返回 ErrTermDatesInvalid, 实际 %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// 重复导入与课程派生测试
// ════════════════════════════════════════════════════════════

func TestImportTerm_ReimportReplacesOldEntries(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	first := importRequest([]dto.Sheet{{
		Name: "Weeks 1-2",
		Rows: []dto.SheetRow{
			{Subject: "旧课程", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})
	if _, err := svc.ImportTerm(context.Background(), first, "admin-1"); err != nil {
		t.Fatalf("首次导入失败: %v", err)
	}

	second := importRequest([]dto.Sheet{{
		Name: "Week 1",
		Rows: []dto.SheetRow{
			{Subject: "新课程", TeacherEmail: "wang@school.edu", Day: "Tuesday", StartTime: "10:00", EndTime: "12:00"},
		},
	}})
	if _, err := svc.ImportTerm(context.Background(), second, "admin-1"); err != nil {
		t.Fatalf("重复导入失败: %v", err)
	}

	entries, _, _ := m.entries.List(context.Background(), "CS", "2026-T1", nil, "", 0, 100)
	if len(entries) != 1 {
		t.Fatalf("重复导入应整体替换, 期望 1 条, 实际 %d", len(entries))
	}
	if entries[0].Subject != "新课程" {
		t.Errorf("旧条目应被清除, 实际保留 %s", entries[0].Subject)
	}
}

func TestImportTerm_DerivesClassWithCreditWeight(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	// 同一科目周一 + 周三各一次 → 学分权重 2，与周数无关
	req := importRequest([]dto.Sheet{{
		Name: "Weeks 1-10",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Wednesday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})

	resp, err := svc.ImportTerm(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("ImportTerm 失败: %v", err)
	}
	if resp.ClassesUpserted != 1 {
		t.Fatalf("期望派生 1 门课程, 实际 %d", resp.ClassesUpserted)
	}

	tid := "t1"
	class, err := m.classes.GetByKey(context.Background(), "数据结构", "CS", &tid)
	if err != nil {
		t.Fatalf("未找到派生课程: %v", err)
	}
	if class.CreditWeight != 2 {
		t.Errorf("学分权重期望 2, 实际 %d", class.CreditWeight)
	}
	if len(class.PatternDays) != 2 || class.PatternDays[0] != "monday" || class.PatternDays[1] != "wednesday" {
		t.Errorf("星期模式期望 [monday wednesday], 实际 %v", class.PatternDays)
	}
	if !class.AutoGenerated {
		t.Error("派生课程应标记 auto_generated")
	}
	if class.EnrolledCount() != 0 {
		t.Error("新派生课程名册应为空")
	}
}

func TestImportTerm_ReimportPreservesRoster(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Week 1",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})
	if _, err := svc.ImportTerm(context.Background(), req, "admin-1"); err != nil {
		t.Fatalf("首次导入失败: %v", err)
	}

	// 选课流程写入名册
	tid := "t1"
	class, _ := m.classes.GetByKey(context.Background(), "数据结构", "CS", &tid)
	class.StudentIDs = model.StringArray{"s1", "s2", "s3"}

	// 重复导入加了周三课：权重更新，名册保持
	req2 := importRequest([]dto.Sheet{{
		Name: "Week 1",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Wednesday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})
	if _, err := svc.ImportTerm(context.Background(), req2, "admin-1"); err != nil {
		t.Fatalf("重复导入失败: %v", err)
	}

	class, _ = m.classes.GetByKey(context.Background(), "数据结构", "CS", &tid)
	if class.CreditWeight != 2 {
		t.Errorf("权重应更新为 2, 实际 %d", class.CreditWeight)
	}
	if class.EnrolledCount() != 3 {
		t.Errorf("名册不应被派生覆盖, 期望 3 人, 实际 %d", class.EnrolledCount())
	}
}

func TestImportTerm_PublishesDepartmentEvent(t *testing.T) {
	repo, m := newTestRepo()
	seedTeacher(m, "t1", "王老师", "wang@school.edu")
	svc := newTestTimetableService(repo, m)

	req := importRequest([]dto.Sheet{{
		Name: "Week 1",
		Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		},
	}})
	if _, err := svc.ImportTerm(context.Background(), req, "admin-1"); err != nil {
		t.Fatalf("ImportTerm 失败: %v", err)
	}

	events := m.sink.byType("timetable_updated")
	if len(events) != 1 {
		t.Fatalf("期望 1 条 timetable_updated 事件, 实际 %d", len(events))
	}
	if events[0].Room != "department:CS" {
		t.Errorf("事件房间期望 department:CS, 实际 %s", events[0].Room)
	}
}

// ════════════════════════════════════════════════════════════
// 导入预检测试
// ════════════════════════════════════════════════════════════

func TestPreviewImport(t *testing.T) {
	repo, m := newTestRepo()
	svc := newTestTimetableService(repo, m)

	req := &dto.PreviewImportRequest{Sheets: []dto.Sheet{
		{Name: "Weeks 1-5", Rows: []dto.SheetRow{
			{Subject: "数据结构", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{Subject: "", TeacherEmail: "wang@school.edu", Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		}},
		{Name: "Notes"},
	}}

	resp, err := svc.PreviewImport(context.Background(), req)
	if err != nil {
		t.Fatalf("PreviewImport 失败: %v", err)
	}
	if len(resp.Sheets) != 1 {
		t.Fatalf("期望 1 个可识别工作表, 实际 %d", len(resp.Sheets))
	}
	sp := resp.Sheets[0]
	if sp.WeekStart != 1 || sp.WeekEnd != 5 {
		t.Errorf("周范围期望 [1,5], 实际 [%d,%d]", sp.WeekStart, sp.WeekEnd)
	}
	if sp.RowCount != 1 {
		t.Errorf("有效行数期望 1, 实际 %d", sp.RowCount)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("期望 1 条表名告警, 实际 %d", len(resp.Warnings))
	}
	if len(resp.Errors) != 1 {
		t.Errorf("期望 1 条行级错误, 实际 %d", len(resp.Errors))
	}
}

func TestListClasses(t *testing.T) {
	repo, m := newTestRepo()
	m.classes.classes["c1"] = &model.Class{
		ClassID: "c1", Subject: "数据结构", TeacherID: strPtr("t1"), Department: "CS",
		CreditWeight: 2, PatternDays: model.StringArray{"monday", "wednesday"},
		StudentIDs: model.StringArray{"s1", "s2"}, AutoGenerated: true,
		Teacher: &model.User{UserID: "t1", Name: "张老师", Email: "zhang@hssm.edu"},
	}
	m.classes.classes["c2"] = &model.Class{
		ClassID: "c2", Subject: "离散数学", Department: "Math",
	}
	svc := newTestTimetableService(repo, m)

	resp, err := svc.ListClasses(context.Background(), "CS")
	if err != nil {
		t.Fatalf("ListClasses 失败: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("期望仅 CS 院系 1 门课程, 实际 %d", len(resp))
	}
	c := resp[0]
	if c.Subject != "数据结构" || c.CreditWeight != 2 || c.EnrolledCount != 2 || !c.AutoGenerated {
		t.Errorf("课程响应不正确: %+v", c)
	}
	if c.Teacher == nil || c.Teacher.Name != "张老师" {
		t.Error("课程响应应携带教师简要信息")
	}
}

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}
	return loc
}
