package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/dto"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
	pkgerrors "github.com/Jasper-ops698/HSSM-Services-sub001/pkg/errors"
)

// ── 场地模块业务错误 ──

var (
	ErrVenueNotFound      = errors.New("场地不存在")
	ErrVenueNameTaken     = errors.New("场地名称已存在")
	ErrVenueUnavailable   = errors.New("场地已停用")
	ErrInvalidSlotRequest = errors.New("时段参数无效")
)

// VenueConflictError 场地时段冲突：携带冲突方条目与可替代场地建议。
// 冲突不是系统故障，调用方需要足够的上下文自行纠正，因此建成结构化
// 错误而非裸 sentinel。
type VenueConflictError struct {
	Entry       *model.ScheduleEntry
	Suggestions []model.Venue
}

func (e *VenueConflictError) Error() string {
	if e.Entry != nil {
		return fmt.Sprintf("场地时段冲突：%s %s-%s 已被 %q 占用", e.Entry.DayOfWeek, e.Entry.StartTime, e.Entry.EndTime, e.Entry.Subject)
	}
	return "场地时段冲突"
}

// VenueService 场地管理与冲突检测业务接口
type VenueService interface {
	CreateVenue(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error)
	GetVenue(ctx context.Context, id string) (*dto.VenueResponse, error)
	ListVenues(ctx context.Context, onlyAvailable bool) ([]dto.VenueResponse, error)
	UpdateVenue(ctx context.Context, id string, req *dto.UpdateVenueRequest, callerID string) (*dto.VenueResponse, error)
	DeleteVenue(ctx context.Context, id string, callerID string) error
	// AssignVenue 为课表条目分配场地；同场地同时段已被占用时返回
	// *VenueConflictError，条目保持原状
	AssignVenue(ctx context.Context, entryID, venueID, callerID string) (*dto.EntryResponse, error)
	// ListAvailableVenues 查询指定时段内未被占用的可用场地
	ListAvailableVenues(ctx context.Context, req *dto.AvailableVenuesRequest) ([]dto.VenueBrief, error)
}

type venueService struct {
	repo   *repository.Repository
	sink   EventSink
	logger *zap.Logger
}

// NewVenueService 创建 VenueService 实例
func NewVenueService(repo *repository.Repository, sink EventSink, logger *zap.Logger) VenueService {
	return &venueService{repo: repo, sink: sink, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 场地 CRUD
// ════════════════════════════════════════════════════════════

func (s *venueService) CreateVenue(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error) {
	if _, err := s.repo.Venue.GetByName(ctx, req.Name); err == nil {
		return nil, ErrVenueNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("检查场地名称失败", zap.Error(err))
		return nil, err
	}

	venue := &model.Venue{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		venue.IsAvailable = *req.IsAvailable
	}
	venue.CreatedBy = &callerID
	venue.UpdatedBy = &callerID

	if err := s.repo.Venue.Create(ctx, venue); err != nil {
		s.logger.Error("创建场地失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	resp := toVenueResponse(venue)
	return &resp, nil
}

func (s *venueService) GetVenue(ctx context.Context, id string) (*dto.VenueResponse, error) {
	venue, err := s.getVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toVenueResponse(venue)
	return &resp, nil
}

func (s *venueService) ListVenues(ctx context.Context, onlyAvailable bool) ([]dto.VenueResponse, error) {
	venues, err := s.repo.Venue.List(ctx, onlyAvailable)
	if err != nil {
		s.logger.Error("查询场地列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.VenueResponse, 0, len(venues))
	for i := range venues {
		result = append(result, toVenueResponse(&venues[i]))
	}
	return result, nil
}

func (s *venueService) UpdateVenue(ctx context.Context, id string, req *dto.UpdateVenueRequest, callerID string) (*dto.VenueResponse, error) {
	venue, err := s.getVenue(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != venue.Name {
		if _, err := s.repo.Venue.GetByName(ctx, *req.Name); err == nil {
			return nil, ErrVenueNameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		venue.Name = *req.Name
	}
	if req.Location != nil {
		venue.Location = *req.Location
	}
	if req.Capacity != nil {
		venue.Capacity = *req.Capacity
	}
	if req.IsAvailable != nil {
		venue.IsAvailable = *req.IsAvailable
	}
	venue.UpdatedBy = &callerID

	if err := s.repo.Venue.Update(ctx, venue); err != nil {
		s.logger.Error("更新场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toVenueResponse(venue)
	return &resp, nil
}

func (s *venueService) DeleteVenue(ctx context.Context, id string, callerID string) error {
	if _, err := s.getVenue(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Venue.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除场地失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// AssignVenue — 场地分配与冲突检测
// ════════════════════════════════════════════════════════════
//
// 两道防线：先在应用层预检同场地同时段的重叠，命中则带建议返回；
// 预检通过后落库，数据库排他约束兜底并发竞争，竞争失败时重查冲突方
// 再走同一条冲突返回路径。

func (s *venueService) AssignVenue(ctx context.Context, entryID, venueID, callerID string) (*dto.EntryResponse, error) {
	entry, err := s.repo.ScheduleEntry.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	venue, err := s.getVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !venue.IsAvailable {
		return nil, ErrVenueUnavailable
	}

	// 预检：同场地、同星期、同学期、同周序的已占用时段
	occupied, err := s.repo.ScheduleEntry.ListByVenueSlot(ctx, venueID, entry.DayOfWeek, entry.Term, entry.WeekNumber)
	if err != nil {
		s.logger.Error("查询场地占用失败", zap.String("venue_id", venueID), zap.Error(err))
		return nil, err
	}
	if conflict := firstOverlap(occupied, entry.EntryID, entry.StartTime, entry.EndTime); conflict != nil {
		return nil, s.buildConflict(ctx, conflict, entry)
	}

	entry.UpdatedBy = &callerID
	if err := s.repo.ScheduleEntry.AssignVenue(ctx, entry, &venueID); err != nil {
		if errors.Is(err, pkgerrors.ErrVenueSlotTaken) {
			// 预检之后、提交之前被并发导入或分配抢占，重查冲突方
			occupied, qerr := s.repo.ScheduleEntry.ListByVenueSlot(ctx, venueID, entry.DayOfWeek, entry.Term, entry.WeekNumber)
			if qerr != nil {
				return nil, err
			}
			conflict := firstOverlap(occupied, entry.EntryID, entry.StartTime, entry.EndTime)
			return nil, s.buildConflict(ctx, conflict, entry)
		}
		s.logger.Error("分配场地失败", zap.String("entry_id", entryID), zap.Error(err))
		return nil, err
	}

	s.sink.Publish(Event{
		Type:       "venue_assigned",
		Department: entry.Department,
		Room:       "department:" + entry.Department,
		ActorID:    callerID,
	})

	updated, err := s.repo.ScheduleEntry.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(updated)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ListAvailableVenues — 空闲场地查询
// ════════════════════════════════════════════════════════════

func (s *venueService) ListAvailableVenues(ctx context.Context, req *dto.AvailableVenuesRequest) ([]dto.VenueBrief, error) {
	day, ok := NormalizeDay(req.Day)
	if !ok {
		return nil, ErrInvalidSlotRequest
	}
	start, ok := NormalizeClock(req.StartTime)
	if !ok {
		return nil, ErrInvalidSlotRequest
	}
	end, ok := NormalizeClock(req.EndTime)
	if !ok || start >= end {
		return nil, ErrInvalidSlotRequest
	}

	venues, err := s.repo.Venue.List(ctx, true)
	if err != nil {
		return nil, err
	}

	// 该时段所有已占用场地
	booked, err := s.repo.ScheduleEntry.ListBySlot(ctx, day, req.Term, req.Week)
	if err != nil {
		return nil, err
	}
	takenVenues := make(map[string]bool)
	for i := range booked {
		e := &booked[i]
		if e.VenueID != nil && overlaps(start, end, e.StartTime, e.EndTime) {
			takenVenues[*e.VenueID] = true
		}
	}

	// 指定课程时按名册人数过滤容量
	minCapacity := 0
	if req.ClassID != "" {
		class, err := s.repo.Class.GetByID(ctx, req.ClassID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if class != nil {
			minCapacity = class.EnrolledCount()
		}
	}

	result := make([]dto.VenueBrief, 0, len(venues))
	for i := range venues {
		v := &venues[i]
		if takenVenues[v.VenueID] {
			continue
		}
		if minCapacity > 0 && v.Capacity > 0 && v.Capacity < minCapacity {
			continue
		}
		result = append(result, dto.VenueBrief{ID: v.VenueID, Name: v.Name, Capacity: v.Capacity})
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

func (s *venueService) getVenue(ctx context.Context, id string) (*model.Venue, error) {
	venue, err := s.repo.Venue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		s.logger.Error("查询场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return venue, nil
}

// firstOverlap 返回与 [start, end) 重叠的首个条目；selfID 用于排除自身
func firstOverlap(entries []model.ScheduleEntry, selfID, start, end string) *model.ScheduleEntry {
	for i := range entries {
		e := &entries[i]
		if e.EntryID == selfID {
			continue
		}
		if overlaps(start, end, e.StartTime, e.EndTime) {
			return e
		}
	}
	return nil
}

// buildConflict 组装冲突错误：冲突方 + 同时段仍空闲的替代场地建议。
// 建议按条目所属课程的选课人数过滤容量，容量不足的场地不建议。
func (s *venueService) buildConflict(ctx context.Context, conflict *model.ScheduleEntry, entry *model.ScheduleEntry) error {
	cErr := &VenueConflictError{Entry: conflict}

	req := &dto.AvailableVenuesRequest{
		Day:       entry.DayOfWeek,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		Term:      entry.Term,
		Week:      entry.WeekNumber,
	}
	if class, err := s.repo.Class.GetByKey(ctx, entry.Subject, entry.Department, entry.TeacherID); err == nil {
		req.ClassID = class.ClassID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("解析条目所属课程失败", zap.String("entry_id", entry.EntryID), zap.Error(err))
	}
	briefs, err := s.ListAvailableVenues(ctx, req)
	if err != nil {
		// 建议只是锦上添花，查询失败不吞掉冲突本身
		s.logger.Warn("查询替代场地失败", zap.Error(err))
		return cErr
	}
	for _, b := range briefs {
		cErr.Suggestions = append(cErr.Suggestions, model.Venue{VenueID: b.ID, Name: b.Name, Capacity: b.Capacity})
	}
	return cErr
}

func toVenueResponse(venue *model.Venue) dto.VenueResponse {
	return dto.VenueResponse{
		ID:          venue.VenueID,
		Name:        venue.Name,
		Location:    venue.Location,
		Capacity:    venue.Capacity,
		IsAvailable: venue.IsAvailable,
		CreatedAt:   venue.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   venue.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
