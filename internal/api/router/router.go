package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/config"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/api/handler"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/api/middleware"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/jwt"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.RateLimit(rdb, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	r.Use(middleware.BodyLimit(10 << 20)) // 10MB，覆盖整学期 Excel 上传

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr))
	{
		// 课表模块
		timetable := authorized.Group("/timetable")
		{
			timetable.POST("/import", middleware.RoleAuth("admin", "hod"), h.Timetable.ImportTerm)
			timetable.POST("/preview", middleware.RoleAuth("admin", "hod"), h.Timetable.PreviewImport)
			timetable.GET("/entries", h.Timetable.ListEntries)
			timetable.GET("/entries/:id", h.Timetable.GetEntry)
			timetable.PUT("/entries/:id/venue", middleware.RoleAuth("admin", "hod"), h.Venue.AssignVenue)
			timetable.PUT("/entries/:id/replacement", middleware.RoleAuth("admin", "hod"), h.Venue.AssignReplacement)
			timetable.GET("/export", middleware.RoleAuth("admin", "hod", "teacher"), h.Export.ExportTerm)
		}

		// 场地模块
		venues := authorized.Group("/venues")
		{
			venues.GET("", h.Venue.ListVenues)
			venues.GET("/available", h.Venue.ListAvailableVenues)
			venues.GET("/:id", h.Venue.GetVenue)
			venues.POST("", middleware.RoleAuth("admin"), h.Venue.CreateVenue)
			venues.PUT("/:id", middleware.RoleAuth("admin"), h.Venue.UpdateVenue)
			venues.DELETE("/:id", middleware.RoleAuth("admin"), h.Venue.DeleteVenue)
		}

		// 课程模块（学期导入自动派生）
		authorized.GET("/classes", h.Timetable.ListClasses)

		// 考勤模块
		attendance := authorized.Group("/attendance")
		{
			attendance.GET("/can-mark", middleware.RoleAuth("teacher", "admin"), h.Attendance.CanMark)
			attendance.POST("", middleware.RoleAuth("teacher", "admin"), h.Attendance.Mark)
			attendance.GET("", middleware.RoleAuth("teacher", "hod", "admin"), h.Attendance.ListBySession)
		}

		// 站内通知
		authorized.GET("/notifications", h.Notification.ListMine)
	}

	return r
}
