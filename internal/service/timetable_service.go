package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
	pkgerrors "github.com/Jasper-ops698/HSSM-Services-sub001/pkg/errors"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/redis"
)

// ── 课表模块业务错误 ──

var (
	ErrEntryNotFound    = errors.New("课表条目不存在")
	ErrTermDatesInvalid = errors.New("学期起止日期无效")
	ErrNoValidSheets    = errors.New("没有任何可识别的工作表")
)

// ImportRejectedError 导入整体被拒：存在教师无法解析的行。
// 此时不写入任何数据；缺字段的行另行静默跳过，不触发整体拒绝。
type ImportRejectedError struct {
	Warnings []string
}

func (e *ImportRejectedError) Error() string {
	return fmt.Sprintf("导入被拒绝：%d 条教师无法解析", len(e.Warnings))
}

// TimetableService 课表导入与查询业务接口
type TimetableService interface {
	// ImportTerm 导入学期课表：解析各工作表周范围，按周展开为带日期的
	// 具体条目，整体替换（院系, 学期）旧数据，并派生自动课程
	ImportTerm(ctx context.Context, req *dto.ImportTermRequest, callerID string) (*dto.ImportTermResponse, error)
	// PreviewImport 导入预检（不落库）
	PreviewImport(ctx context.Context, req *dto.PreviewImportRequest) (*dto.PreviewImportResponse, error)
	// ListEntries 查询课表条目
	ListEntries(ctx context.Context, req *dto.EntryListRequest) ([]dto.EntryResponse, int64, error)
	// GetEntry 查询单条
	GetEntry(ctx context.Context, id string) (*dto.EntryResponse, error)
	// ListClasses 查询院系的自动派生课程
	ListClasses(ctx context.Context, department string) ([]dto.ClassResponse, error)
}

type timetableService struct {
	repo    *repository.Repository
	rdb     *redis.Client
	sink    EventSink
	loc     *time.Location
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(cfg *config.TimetableConfig, repo *repository.Repository, rdb *redis.Client, sink EventSink, loc *time.Location, logger *zap.Logger) TimetableService {
	return &timetableService{
		repo:    repo,
		rdb:     rdb,
		sink:    sink,
		loc:     loc,
		lockTTL: cfg.ImportLockTTL,
		logger:  logger,
	}
}

// ── 代表性周模式 ──

// patternRow 结构校验与教师解析均通过的代表性模式行
type patternRow struct {
	subject     string
	teacherID   *string
	teacherName string
	day         string // 规范星期键
	startTime   string // HH:MM
	endTime     string // HH:MM
}

func (p patternRow) key() string {
	tid := ""
	if p.teacherID != nil {
		tid = *p.teacherID
	}
	return strings.Join([]string{p.subject, tid, p.day, p.startTime, p.endTime}, "|")
}

// ════════════════════════════════════════════════════════════
// ImportTerm — 学期课表导入
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 获取（院系, 学期）导入互斥锁，串行化并发导入
//  2. 逐表解析周范围；无法识别的表名记告警后整表跳过
//  3. 逐行结构校验（缺科目/星期/时间 → 静默跳过）与教师解析
//     （查无此人 → 记告警跳过该行）
//  4. 在内存中完成全部展开；教师告警非空则整体拒绝，不落库
//  5. 事务内整体替换旧条目，随后派生自动课程、异步广播

func (s *timetableService) ImportTerm(ctx context.Context, req *dto.ImportTermRequest, callerID string) (*dto.ImportTermResponse, error) {
	termStart, termEnd, err := s.parseTermDates(req.TermStart, req.TermEnd)
	if err != nil {
		return nil, err
	}

	// 1. 导入互斥锁（Redis 不可用时降级为不加锁运行）
	if s.rdb != nil {
		token, err := s.rdb.AcquireImportLock(ctx, req.Department, req.Term, s.lockTTL)
		if err != nil {
			s.logger.Warn("获取导入互斥锁失败，降级为无锁导入", zap.Error(err))
		} else if token == "" {
			return nil, pkgerrors.ErrImportInProgress
		} else {
			defer func() {
				if err := s.rdb.ReleaseImportLock(context.WithoutCancel(ctx), req.Department, req.Term, token); err != nil {
					s.logger.Warn("释放导入互斥锁失败", zap.Error(err))
				}
			}()
		}
	}

	// 2-3. 解析 + 展开（全程在内存，未落任何库）
	// 两类告警分开收：表名不可识别只上报不拦截，教师无法解析则整体拒绝
	var (
		sheetWarnings   []string
		teacherWarnings []string
		entries         []model.ScheduleEntry
		patterns        []patternRow
		patternSet      = make(map[string]bool)
		validSheet      = false
		userCache       = make(map[string]*model.User)
		userMisses      = make(map[string]bool)
	)

	for _, sheet := range req.Sheets {
		rng, ok := ParseWeekRange(sheet.Name)
		if !ok {
			sheetWarnings = append(sheetWarnings, fmt.Sprintf("工作表 %q 名称无法识别为周范围，已跳过", sheet.Name))
			continue
		}
		validSheet = true

		for _, row := range sheet.Rows {
			p, ok := s.validateRow(row)
			if !ok {
				continue // 结构性缺陷静默跳过（容忍稀疏表格）
			}

			email := strings.TrimSpace(row.TeacherEmail)
			teacher, found, err := s.resolveTeacher(ctx, email, userCache, userMisses)
			if err != nil {
				s.logger.Error("解析教师身份失败", zap.String("email", email), zap.Error(err))
				return nil, err
			}
			if !found {
				teacherWarnings = append(teacherWarnings, fmt.Sprintf("教师 %q 不存在（科目 %s），该行未导入", email, p.subject))
				continue
			}
			p.teacherID = &teacher.UserID
			p.teacherName = teacher.Name

			entries = append(entries, expandPattern(p, rng, termStart, termEnd, req.Department, req.Term, callerID)...)

			if !patternSet[p.key()] {
				patternSet[p.key()] = true
				patterns = append(patterns, p)
			}
		}
	}

	if !validSheet {
		return nil, ErrNoValidSheets
	}

	// 4. 教师解析告警非空 → 整体拒绝（此时尚未写库）
	if len(teacherWarnings) > 0 {
		return nil, &ImportRejectedError{Warnings: teacherWarnings}
	}

	// 5. 事务内删旧写新
	if err := s.repo.ScheduleEntry.ReplaceTermEntries(ctx, req.Department, req.Term, entries); err != nil {
		s.logger.Error("替换学期课表失败", zap.Error(err))
		return nil, err
	}

	// 派生自动课程（按去重后的代表性模式，与学期长度无关）
	classesUpserted, err := deriveClasses(ctx, s.repo, req.Department, patterns, callerID, s.logger)
	if err != nil {
		s.logger.Error("派生自动课程失败", zap.Error(err))
		return nil, err
	}

	// 异步广播（永不阻塞、永不回滚导入）
	s.sink.Publish(Event{
		Type:       "timetable_updated",
		Department: req.Department,
		Title:      fmt.Sprintf("%s %s 课表已更新", req.Department, req.Term),
		Content:    fmt.Sprintf("共生成 %d 条课表条目，请查看最新安排", len(entries)),
		Room:       "department:" + req.Department,
		ActorID:    callerID,
	})

	s.logger.Info("学期课表导入完成",
		zap.String("department", req.Department),
		zap.String("term", req.Term),
		zap.Int("entries", len(entries)),
		zap.Int("classes", classesUpserted),
	)

	return &dto.ImportTermResponse{
		EntriesCreated:  len(entries),
		ClassesUpserted: classesUpserted,
		Warnings:        sheetWarnings,
	}, nil
}

// ════════════════════════════════════════════════════════════
// PreviewImport — 导入预检（不落库、不解析教师）
// ════════════════════════════════════════════════════════════

func (s *timetableService) PreviewImport(_ context.Context, req *dto.PreviewImportRequest) (*dto.PreviewImportResponse, error) {
	resp := &dto.PreviewImportResponse{Sheets: make([]dto.SheetPreview, 0, len(req.Sheets))}

	for _, sheet := range req.Sheets {
		rng, ok := ParseWeekRange(sheet.Name)
		if !ok {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("工作表 %q 名称无法识别为周范围", sheet.Name))
			continue
		}

		rowCount := 0
		for i, row := range sheet.Rows {
			if _, ok := s.validateRow(row); !ok {
				resp.Errors = append(resp.Errors, fmt.Sprintf("工作表 %q 第 %d 行缺少必填字段或格式无效", sheet.Name, i+1))
				continue
			}
			rowCount++
		}

		resp.Sheets = append(resp.Sheets, dto.SheetPreview{
			Name:      sheet.Name,
			WeekStart: rng.Start,
			WeekEnd:   rng.End,
			RowCount:  rowCount,
		})
	}

	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ListEntries / GetEntry — 课表查询
// ════════════════════════════════════════════════════════════

func (s *timetableService) ListEntries(ctx context.Context, req *dto.EntryListRequest) ([]dto.EntryResponse, int64, error) {
	entries, total, err := s.repo.ScheduleEntry.List(ctx, req.Department, req.Term, req.Week, req.TeacherID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询课表条目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toEntryResponse(&entries[i]))
	}
	return result, total, nil
}

func (s *timetableService) GetEntry(ctx context.Context, id string) (*dto.EntryResponse, error) {
	entry, err := s.repo.ScheduleEntry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toEntryResponse(entry)
	return &resp, nil
}

func (s *timetableService) ListClasses(ctx context.Context, department string) ([]dto.ClassResponse, error) {
	classes, err := s.repo.Class.ListByDepartment(ctx, department)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("department", department), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, toClassResponse(&classes[i]))
	}
	return result, nil
}

func toClassResponse(class *model.Class) dto.ClassResponse {
	resp := dto.ClassResponse{
		ID:            class.ClassID,
		Subject:       class.Subject,
		Department:    class.Department,
		CreditWeight:  class.CreditWeight,
		PatternDays:   class.PatternDays,
		EnrolledCount: class.EnrolledCount(),
		AutoGenerated: class.AutoGenerated,
	}
	if class.Teacher != nil {
		resp.Teacher = &dto.UserBrief{ID: class.Teacher.UserID, Name: class.Teacher.Name, Email: class.Teacher.Email}
	} else if class.TeacherID != nil {
		resp.Teacher = &dto.UserBrief{ID: *class.TeacherID}
	}
	return resp
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

func (s *timetableService) parseTermDates(start, end string) (time.Time, time.Time, error) {
	termStart, err := time.ParseInLocation("2006-01-02", start, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrTermDatesInvalid
	}
	termEnd, err := time.ParseInLocation("2006-01-02", end, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrTermDatesInvalid
	}
	if !termStart.Before(termEnd) {
		return time.Time{}, time.Time{}, ErrTermDatesInvalid
	}
	return termStart, termEnd, nil
}

// validateRow 行结构校验：科目/星期/起止时间缺一不可，区间必须正向
func (s *timetableService) validateRow(row dto.SheetRow) (patternRow, bool) {
	subject := strings.TrimSpace(row.Subject)
	if subject == "" || strings.TrimSpace(row.TeacherEmail) == "" {
		return patternRow{}, false
	}
	day, ok := NormalizeDay(row.Day)
	if !ok {
		return patternRow{}, false
	}
	start, ok := NormalizeClock(row.StartTime)
	if !ok {
		return patternRow{}, false
	}
	end, ok := NormalizeClock(row.EndTime)
	if !ok {
		return patternRow{}, false
	}
	if start >= end {
		return patternRow{}, false
	}
	return patternRow{subject: subject, day: day, startTime: start, endTime: end}, true
}

// resolveTeacher 带缓存的教师邮箱解析；查无此人是正常业务结果
func (s *timetableService) resolveTeacher(ctx context.Context, email string, cache map[string]*model.User, misses map[string]bool) (*model.User, bool, error) {
	key := strings.ToLower(email)
	if u, ok := cache[key]; ok {
		return u, true, nil
	}
	if misses[key] {
		return nil, false, nil
	}
	user, err := s.repo.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			misses[key] = true
			return nil, false, nil
		}
		return nil, false, err
	}
	cache[key] = user
	return user, true, nil
}

// expandPattern 将一条代表性模式按周范围展开为带日期的具体条目。
// 从学期首日起按 7 天窗口推进，窗口序号从 1 递增；窗口起点到达学期
// 终点即停止。落在范围内的每个窗口生成一条条目，场地留空待分配。
func expandPattern(p patternRow, rng WeekRange, termStart, termEnd time.Time, department, term, callerID string) []model.ScheduleEntry {
	var entries []model.ScheduleEntry

	week := 1
	for ws := termStart; ws.Before(termEnd); ws = ws.AddDate(0, 0, 7) {
		if rng.Contains(week) {
			weekNumber := week
			startDate := ws
			endDate := ws.AddDate(0, 0, 6)

			entry := model.ScheduleEntry{
				Subject:    p.subject,
				TeacherID:  p.teacherID,
				Department: department,
				DayOfWeek:  p.day,
				StartTime:  p.startTime,
				EndTime:    p.endTime,
				Term:       term,
				WeekNumber: &weekNumber,
				StartDate:  &startDate,
				EndDate:    &endDate,
			}
			entry.CreatedBy = &callerID
			entry.UpdatedBy = &callerID
			entries = append(entries, entry)
		}
		week++
	}

	return entries
}

// toEntryResponse 转换课表条目为响应
func toEntryResponse(entry *model.ScheduleEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:         entry.EntryID,
		Subject:    entry.Subject,
		Department: entry.Department,
		DayOfWeek:  entry.DayOfWeek,
		StartTime:  entry.StartTime,
		EndTime:    entry.EndTime,
		Term:       entry.Term,
		WeekNumber: entry.WeekNumber,
		Archived:   entry.Archived,
		CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  entry.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}

	if entry.StartDate != nil {
		resp.StartDate = entry.StartDate.Format("2006-01-02")
	}
	if entry.EndDate != nil {
		resp.EndDate = entry.EndDate.Format("2006-01-02")
	}

	if entry.Teacher != nil {
		resp.Teacher = &dto.UserBrief{
			ID:         entry.Teacher.UserID,
			Name:       entry.Teacher.Name,
			Email:      entry.Teacher.Email,
			Department: entry.Teacher.Department,
		}
	}

	if entry.Venue != nil {
		resp.Venue = &dto.VenueBrief{
			ID:       entry.Venue.VenueID,
			Name:     entry.Venue.Name,
			Capacity: entry.Venue.Capacity,
		}
	}

	if entry.Sub.IsSet() {
		brief := &dto.ReplacementBrief{
			TeacherID:  entry.Sub.TeacherID,
			Name:       entry.Sub.Name,
			Reason:     entry.Sub.Reason,
			AssignedBy: entry.Sub.AssignedBy,
		}
		if entry.Sub.AssignedAt != nil {
			brief.AssignedAt = entry.Sub.AssignedAt.Format("2006-01-02T15:04:05Z")
		}
		resp.Replacement = brief
	}

	return resp
}
