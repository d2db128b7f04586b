package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	pkgerrors "github.com/Jasper-ops698/HSSM-Services-sub001/pkg/errors"
)

// ClassRepository 课程数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id string) (*model.Class, error)
	// GetByKey 按派生键（科目, 院系, 教师）查找，自动派生的匹配维度
	GetByKey(ctx context.Context, subject, department string, teacherID *string) (*model.Class, error)
	ListByDepartment(ctx context.Context, department string) ([]model.Class, error)
	Update(ctx context.Context, class *model.Class) error
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实现
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) GetByKey(ctx context.Context, subject, department string, teacherID *string) (*model.Class, error) {
	var class model.Class
	q := r.db.WithContext(ctx).
		Where("subject = ? AND department = ?", subject, department)
	if teacherID != nil {
		q = q.Where("teacher_id = ?", *teacherID)
	} else {
		q = q.Where("teacher_id IS NULL")
	}
	err := q.First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) ListByDepartment(ctx context.Context, department string) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("department = ?", department).
		Order("subject ASC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	oldVersion := class.Version
	result := r.db.WithContext(ctx).
		Model(class).
		Where("class_id = ? AND version = ?", class.ClassID, oldVersion).
		Updates(map[string]interface{}{
			"credit_weight": class.CreditWeight,
			"pattern_days":  class.PatternDays,
			"student_ids":   class.StudentIDs,
			"updated_by":    class.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	class.Version = oldVersion + 1
	return nil
}
