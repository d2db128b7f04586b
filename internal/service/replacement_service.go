package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

var (
	ErrSubstituteNotFound = errors.New("代课教师不存在")
)

// ReplacementService 代课安排业务接口
//
// 代课是课表条目上的覆盖层：原始排课字段保持不变，生效教师在读取时
// 按「代课优先、原排课兜底」解析。写入为整体覆盖，重复安排不叠加。
type ReplacementService interface {
	// AssignReplacement 安排/更新/清除代课（请求字段全空视为清除）
	AssignReplacement(ctx context.Context, entryID string, req *dto.AssignReplacementRequest, callerID string) (*dto.EntryResponse, error)
}

type replacementService struct {
	repo   *repository.Repository
	sink   EventSink
	logger *zap.Logger
}

// NewReplacementService 创建 ReplacementService 实例
func NewReplacementService(repo *repository.Repository, sink EventSink, logger *zap.Logger) ReplacementService {
	return &replacementService{repo: repo, sink: sink, logger: logger}
}

// ════════════════════════════════════════════════════════════
// AssignReplacement — 安排代课
// ════════════════════════════════════════════════════════════

func (s *replacementService) AssignReplacement(ctx context.Context, entryID string, req *dto.AssignReplacementRequest, callerID string) (*dto.EntryResponse, error) {
	entry, err := s.repo.ScheduleEntry.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.String("id", entryID), zap.Error(err))
		return nil, err
	}

	sub, clearing, err := s.buildReplacement(ctx, req, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ScheduleEntry.UpdateReplacement(ctx, entryID, sub, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("更新代课安排失败", zap.String("id", entryID), zap.Error(err))
		return nil, err
	}

	s.notify(entry, sub, clearing, callerID)

	updated, err := s.repo.ScheduleEntry.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(updated)
	return &resp, nil
}

// buildReplacement 将请求规整为覆盖值。三字段全空 → 零值（清除）。
// 指定 substitute_id 时校验其存在并以档案姓名为准。
func (s *replacementService) buildReplacement(ctx context.Context, req *dto.AssignReplacementRequest, callerID string) (model.Replacement, bool, error) {
	name := strings.TrimSpace(req.Name)
	reason := strings.TrimSpace(req.Reason)

	if req.SubstituteID == nil && name == "" && reason == "" {
		return model.Replacement{}, true, nil
	}

	sub := model.Replacement{Name: name, Reason: reason}

	if req.SubstituteID != nil {
		user, err := s.repo.User.GetByID(ctx, *req.SubstituteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.Replacement{}, false, ErrSubstituteNotFound
			}
			s.logger.Error("查询代课教师失败", zap.String("id", *req.SubstituteID), zap.Error(err))
			return model.Replacement{}, false, err
		}
		sub.TeacherID = &user.UserID
		sub.Name = user.Name
	}

	now := time.Now()
	sub.AssignedBy = &callerID
	sub.AssignedAt = &now
	return sub, false, nil
}

// notify 代课变更通知：通知代课教师本人 + 院系公告 + 实时房间广播
func (s *replacementService) notify(entry *model.ScheduleEntry, sub model.Replacement, clearing bool, callerID string) {
	if clearing {
		s.sink.Publish(Event{
			Type:       "replacement_cleared",
			Department: entry.Department,
			Title:      fmt.Sprintf("%s 代课已取消", entry.Subject),
			Content:    fmt.Sprintf("%s %s-%s 恢复原排课教师", entry.DayOfWeek, entry.StartTime, entry.EndTime),
			Room:       "department:" + entry.Department,
			ActorID:    callerID,
		})
		return
	}

	event := Event{
		Type:       "replacement_assigned",
		Department: entry.Department,
		Title:      fmt.Sprintf("%s 代课安排", entry.Subject),
		Content:    fmt.Sprintf("%s %s-%s 由 %s 代课", entry.DayOfWeek, entry.StartTime, entry.EndTime, sub.Name),
		Room:       "department:" + entry.Department,
		ActorID:    callerID,
	}
	if sub.TeacherID != nil {
		event.UserIDs = []string{*sub.TeacherID}
	}
	s.sink.Publish(event)
}
