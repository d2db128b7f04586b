package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	pkgerrors "github.com/Jasper-ops698/HSSM-Services-sub001/pkg/errors"
)

// pgExclusionViolation PostgreSQL 排除约束冲突 SQLSTATE
const pgExclusionViolation = "23P01"

// ScheduleEntryRepository 课表条目数据访问接口
type ScheduleEntryRepository interface {
	// ReplaceTermEntries 以事务方式整体替换（院系, 学期）的全部条目：
	// 先删后批量写，二者同生共死
	ReplaceTermEntries(ctx context.Context, department, term string, entries []model.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error)
	List(ctx context.Context, department, term string, week *int, teacherID string, offset, limit int) ([]model.ScheduleEntry, int64, error)
	// ListByVenueSlot 查询同场地同天同学期同周的全部已分配条目（冲突检测域）
	ListByVenueSlot(ctx context.Context, venueID, day, term string, week *int) ([]model.ScheduleEntry, error)
	// ListBySlot 查询同天同学期同周所有已分配场地的条目（空闲场地推荐用）
	ListBySlot(ctx context.Context, day, term string, week *int) ([]model.ScheduleEntry, error)
	// ListByTeacherDay 查询某教师（含代课）在某星期的条目（考勤窗口判定用）
	ListByTeacherDay(ctx context.Context, teacherID, day string) ([]model.ScheduleEntry, error)
	// Update 带乐观锁的整条更新
	Update(ctx context.Context, entry *model.ScheduleEntry) error
	// AssignVenue 设置条目场地；数据库排除约束兜底并发双订
	AssignVenue(ctx context.Context, entry *model.ScheduleEntry, venueID *string) error
	// UpdateReplacement 整体覆盖代课记录
	UpdateReplacement(ctx context.Context, entryID string, sub model.Replacement, updatedBy string) error
	// ArchivePast 将结束日期早于 before 的条目标记归档（外部定时任务的存储钩子）
	ArchivePast(ctx context.Context, before time.Time) (int64, error)
}

type scheduleEntryRepo struct {
	db *gorm.DB
}

// NewScheduleEntryRepo 创建 ScheduleEntryRepository 实现
func NewScheduleEntryRepo(db *gorm.DB) ScheduleEntryRepository {
	return &scheduleEntryRepo{db: db}
}

func (r *scheduleEntryRepo) ReplaceTermEntries(ctx context.Context, department, term string, entries []model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("department = ? AND term = ?", department, term).
			Delete(&model.ScheduleEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(&entries, 200).Error
	})
}

func (r *scheduleEntryRepo) GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Venue").
		Where("entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo) List(ctx context.Context, department, term string, week *int, teacherID string, offset, limit int) ([]model.ScheduleEntry, int64, error) {
	var entries []model.ScheduleEntry
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ScheduleEntry{}).
		Where("department = ?", department)
	if term != "" {
		q = q.Where("term = ?", term)
	}
	if week != nil {
		q = q.Where("week_number = ?", *week)
	}
	if teacherID != "" {
		q = q.Where("teacher_id = ? OR sub_teacher_id = ?", teacherID, teacherID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.
		Preload("Teacher").
		Preload("Venue").
		Order("week_number ASC, day_of_week ASC, start_time ASC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

func (r *scheduleEntryRepo) ListByVenueSlot(ctx context.Context, venueID, day, term string, week *int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	q := r.db.WithContext(ctx).
		Where("venue_id = ? AND day_of_week = ? AND term = ?", venueID, day, term)
	if week != nil {
		q = q.Where("week_number = ?", *week)
	}
	err := q.Order("start_time ASC").Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListBySlot(ctx context.Context, day, term string, week *int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	q := r.db.WithContext(ctx).
		Where("venue_id IS NOT NULL AND day_of_week = ? AND term = ?", day, term)
	if week != nil {
		q = q.Where("week_number = ?", *week)
	}
	err := q.Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListByTeacherDay(ctx context.Context, teacherID, day string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("day_of_week = ? AND archived = FALSE AND (teacher_id = ? OR sub_teacher_id = ?)",
			day, teacherID, teacherID).
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) Update(ctx context.Context, entry *model.ScheduleEntry) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("entry_id = ? AND version = ?", entry.EntryID, oldVersion).
		Updates(map[string]interface{}{
			"subject":     entry.Subject,
			"teacher_id":  entry.TeacherID,
			"day_of_week": entry.DayOfWeek,
			"start_time":  entry.StartTime,
			"end_time":    entry.EndTime,
			"venue_id":    entry.VenueID,
			"archived":    entry.Archived,
			"updated_by":  entry.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return translateVenueConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	entry.Version = oldVersion + 1
	return nil
}

func (r *scheduleEntryRepo) AssignVenue(ctx context.Context, entry *model.ScheduleEntry, venueID *string) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("entry_id = ? AND version = ?", entry.EntryID, oldVersion).
		Updates(map[string]interface{}{
			"venue_id":   venueID,
			"updated_by": entry.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return translateVenueConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	entry.VenueID = venueID
	entry.Version = oldVersion + 1
	return nil
}

func (r *scheduleEntryRepo) UpdateReplacement(ctx context.Context, entryID string, sub model.Replacement, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("entry_id = ?", entryID).
		Updates(map[string]interface{}{
			"sub_teacher_id":  sub.TeacherID,
			"sub_name":        sub.Name,
			"sub_reason":      sub.Reason,
			"sub_assigned_by": sub.AssignedBy,
			"sub_assigned_at": sub.AssignedAt,
			"updated_by":      updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *scheduleEntryRepo) ArchivePast(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("archived = FALSE AND end_date IS NOT NULL AND end_date < ?", before).
		Update("archived", true)
	return result.RowsAffected, result.Error
}

// translateVenueConflict 将排除约束冲突（并发双订被数据库拦截）翻译为业务错误
func translateVenueConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return pkgerrors.ErrVenueSlotTaken
	}
	return err
}
