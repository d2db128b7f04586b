package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

// deriveClasses 从去重后的代表性模式派生自动课程。
//
// 以（科目, 教师）为分组键，学分权重 = 该组覆盖的不同星期数。
// 已存在的课程仅更新权重与星期模式，不触碰名册；新课程以空名册创建。
// 返回实际新建或更新的课程数。
func deriveClasses(ctx context.Context, repo *repository.Repository, department string, patterns []patternRow, callerID string, logger *zap.Logger) (int, error) {
	type group struct {
		subject   string
		teacherID *string
		days      map[string]bool
	}

	groups := make(map[string]*group)
	var order []string

	for _, p := range patterns {
		tid := ""
		if p.teacherID != nil {
			tid = *p.teacherID
		}
		key := p.subject + "|" + tid
		g, ok := groups[key]
		if !ok {
			g = &group{subject: p.subject, teacherID: p.teacherID, days: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		g.days[p.day] = true
	}

	upserted := 0
	for _, key := range order {
		g := groups[key]

		days := make([]string, 0, len(g.days))
		for d := range g.days {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return dayOrder(days[i]) < dayOrder(days[j]) })
		weight := len(days)

		existing, err := repo.Class.GetByKey(ctx, g.subject, department, g.teacherID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return upserted, err
		}

		if existing != nil {
			// 名册（student_ids）由选课流程维护，派生过程不覆盖
			if existing.CreditWeight == weight && strings.Join(existing.PatternDays, ",") == strings.Join(days, ",") {
				continue
			}
			existing.CreditWeight = weight
			existing.PatternDays = model.StringArray(days)
			existing.UpdatedBy = &callerID
			if err := repo.Class.Update(ctx, existing); err != nil {
				return upserted, err
			}
			upserted++
			continue
		}

		class := &model.Class{
			Subject:       g.subject,
			TeacherID:     g.teacherID,
			Department:    department,
			CreditWeight:  weight,
			PatternDays:   model.StringArray(days),
			StudentIDs:    model.StringArray{},
			AutoGenerated: true,
		}
		class.CreatedBy = &callerID
		class.UpdatedBy = &callerID
		if err := repo.Class.Create(ctx, class); err != nil {
			return upserted, err
		}
		logger.Info("派生自动课程",
			zap.String("subject", g.subject),
			zap.String("department", department),
			zap.Int("credit_weight", weight),
		)
		upserted++
	}

	return upserted, nil
}

// dayOrder 星期排序权重（周日为一周之始）
func dayOrder(day string) int {
	for i, d := range canonicalDays {
		if d == day {
			return i
		}
	}
	return len(canonicalDays)
}
