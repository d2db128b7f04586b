package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

var (
	ErrClassNotFound       = errors.New("课程不存在")
	ErrAttendanceForbidden = errors.New("当前不在该课程的考勤时段内")
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// CanMark 判断教师此刻能否为课程考勤：当天存在该课程的课表条目，
	// 且当前时刻落在上课时段前后宽限窗口内。完全查不到当天条目时
	// 放行（旧数据或未排课的课程不应锁死考勤）。
	CanMark(ctx context.Context, teacherID, classID string) (*dto.CanMarkAttendanceResponse, error)
	// Mark 提交考勤；同一（课程, 学生, 日期）重复提交为覆盖而非累加
	Mark(ctx context.Context, req *dto.MarkAttendanceRequest, teacherID string) (*dto.AttendanceResponse, error)
	// ListBySession 查询某课程某天的考勤记录
	ListBySession(ctx context.Context, classID string, sessionDate string) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	repo         *repository.Repository
	loc          *time.Location
	graceMinutes int
	logger       *zap.Logger

	// now 可注入，测试用
	now func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.TimetableConfig, repo *repository.Repository, loc *time.Location, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:         repo,
		loc:          loc,
		graceMinutes: cfg.AttendanceGraceMinutes,
		logger:       logger,
		now:          time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// CanMark — 考勤窗口判定
// ════════════════════════════════════════════════════════════

func (s *attendanceService) CanMark(ctx context.Context, teacherID, classID string) (*dto.CanMarkAttendanceResponse, error) {
	class, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	allowed, reason, err := s.withinWindow(ctx, teacherID, class)
	if err != nil {
		return nil, err
	}
	return &dto.CanMarkAttendanceResponse{Allowed: allowed, Reason: reason}, nil
}

// withinWindow 核心窗口判定。所有时刻换算均在机构时区完成。
func (s *attendanceService) withinWindow(ctx context.Context, teacherID string, class *model.Class) (bool, string, error) {
	now := s.now().In(s.loc)
	day, _ := NormalizeDay(now.Weekday().String())

	entries, err := s.repo.ScheduleEntry.ListByTeacherDay(ctx, teacherID, day)
	if err != nil {
		s.logger.Error("查询教师当日课表失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return false, "", err
	}

	// 过滤：同科目 + 今天落在条目的周窗口内（无日期的旧条目视为命中）
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	var candidates []model.ScheduleEntry
	for i := range entries {
		e := &entries[i]
		if e.Subject != class.Subject {
			continue
		}
		if e.StartDate != nil && today.Before(truncateDate(*e.StartDate, s.loc)) {
			continue
		}
		if e.EndDate != nil && today.After(truncateDate(*e.EndDate, s.loc)) {
			continue
		}
		candidates = append(candidates, *e)
	}

	// 查不到任何当天条目时放行，避免把无课表数据的课程锁死
	if len(candidates) == 0 {
		return true, "", nil
	}

	grace := time.Duration(s.graceMinutes) * time.Minute
	for i := range candidates {
		e := &candidates[i]
		start, ok1 := clockOn(today, e.StartTime, s.loc)
		end, ok2 := clockOn(today, e.EndTime, s.loc)
		if !ok1 || !ok2 {
			continue
		}
		if !now.Before(start.Add(-grace)) && !now.After(end.Add(grace)) {
			return true, "", nil
		}
	}

	first := candidates[0]
	return false, fmt.Sprintf("当前不在考勤时段内（%s %s-%s，前后各 %d 分钟）", first.DayOfWeek, first.StartTime, first.EndTime, s.graceMinutes), nil
}

// ════════════════════════════════════════════════════════════
// Mark — 考勤提交（幂等覆盖）
// ════════════════════════════════════════════════════════════

func (s *attendanceService) Mark(ctx context.Context, req *dto.MarkAttendanceRequest, teacherID string) (*dto.AttendanceResponse, error) {
	class, err := s.getClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}

	allowed, _, err := s.withinWindow(ctx, teacherID, class)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAttendanceForbidden
	}

	now := s.now().In(s.loc)
	sessionDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	att := &model.Attendance{
		ClassID:     req.ClassID,
		StudentID:   req.StudentID,
		SessionDate: sessionDate,
		Status:      req.Status,
		MarkedBy:    &teacherID,
	}
	if err := s.repo.Attendance.Upsert(ctx, att); err != nil {
		s.logger.Error("提交考勤失败",
			zap.String("class_id", req.ClassID),
			zap.String("student_id", req.StudentID),
			zap.Error(err),
		)
		return nil, err
	}

	saved, err := s.repo.Attendance.Get(ctx, req.ClassID, req.StudentID, sessionDate)
	if err != nil {
		return nil, err
	}
	resp := toAttendanceResponse(saved)
	return &resp, nil
}

func (s *attendanceService) ListBySession(ctx context.Context, classID string, sessionDate string) ([]dto.AttendanceResponse, error) {
	date, err := time.ParseInLocation("2006-01-02", sessionDate, s.loc)
	if err != nil {
		return nil, ErrInvalidSlotRequest
	}

	records, err := s.repo.Attendance.ListByClassDate(ctx, classID, date)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		result = append(result, toAttendanceResponse(&records[i]))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

func (s *attendanceService) getClass(ctx context.Context, classID string) (*model.Class, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", classID), zap.Error(err))
		return nil, err
	}
	return class, nil
}

// clockOn 把 HH:MM 挂到指定日期上。
// 条目时间在读取钩子已规范化，这里仍先过 NormalizeClock 兜底
// 带秒形态（HH:MM:SS），避免单个脏值把整个窗口判定跳空。
func clockOn(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	normalized, ok := NormalizeClock(clock)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", normalized)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

func truncateDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func toAttendanceResponse(att *model.Attendance) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID:          att.AttendanceID,
		ClassID:     att.ClassID,
		StudentID:   att.StudentID,
		SessionDate: att.SessionDate.Format("2006-01-02"),
		Status:      att.Status,
		CreatedAt:   att.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   att.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if att.MarkedBy != nil {
		resp.MarkedBy = *att.MarkedBy
	}
	return resp
}
