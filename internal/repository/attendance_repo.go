package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// Upsert 按 (class_id, student_id, session_date) 幂等写入：
	// 唯一约束冲突时按"更新既有记录"处理而非报错
	Upsert(ctx context.Context, att *model.Attendance) error
	Get(ctx context.Context, classID, studentID string, sessionDate time.Time) (*model.Attendance, error)
	ListByClassDate(ctx context.Context, classID string, sessionDate time.Time) ([]model.Attendance, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实现
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Upsert(ctx context.Context, att *model.Attendance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "class_id"}, {Name: "student_id"}, {Name: "session_date"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     att.Status,
				"marked_by":  att.MarkedBy,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(att).Error
}

func (r *attendanceRepo) Get(ctx context.Context, classID, studentID string, sessionDate time.Time) (*model.Attendance, error) {
	var att model.Attendance
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ? AND session_date = ?", classID, studentID, sessionDate).
		First(&att).Error
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attendanceRepo) ListByClassDate(ctx context.Context, classID string, sessionDate time.Time) ([]model.Attendance, error) {
	var atts []model.Attendance
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND session_date = ?", classID, sessionDate).
		Find(&atts).Error
	return atts, err
}
