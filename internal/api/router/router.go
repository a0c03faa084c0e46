package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classroll/backend/config"
	"classroll/backend/internal/api/handler"
	"classroll/backend/internal/api/middleware"
	"classroll/backend/pkg/jwt"
)

// 批量提交限流：每个用户每分钟 30 次
const (
	bulkRateLimit  = 30
	bulkRateWindow = time.Minute
)

// HealthPinger 健康检查依赖（*sql.DB 即满足）
type HealthPinger interface {
	PingContext(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
// blacklist、limiter 可为 nil（Redis 不可用时降级）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	blacklist middleware.TokenBlacklist,
	limiter middleware.RateLimiter,
	db HealthPinger,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("健康检查失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			// 考勤模块
			// 静态前缀（bulk、group、stats、export）优先于 /:id
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("", middleware.RoleAuth("admin", "teacher"), h.Attendance.CreateAttendance)
				attendance.POST("/bulk",
					middleware.RoleAuth("admin", "teacher"),
					middleware.RateLimit(limiter, bulkRateLimit, bulkRateWindow, logger),
					h.Attendance.BulkAttendance,
				)

				attendance.GET("/group/:groupId/current-week", h.Attendance.GetCurrentWeek)
				attendance.GET("/group/:groupId/date/:date", h.Attendance.GetGroupAttendanceByDate)
				attendance.GET("/group/:groupId/class-today", h.Attendance.GetClassToday)
				attendance.GET("/stats/:groupId", h.Attendance.GetStats)
				attendance.GET("/export/:groupId", middleware.RoleAuth("admin", "teacher"), h.Export.ExportAttendance)

				attendance.GET("/:id", h.Attendance.GetAttendance)
				attendance.PUT("/:id", middleware.RoleAuth("admin", "teacher"), h.Attendance.UpdateAttendance)
				attendance.DELETE("/:id", middleware.RoleAuth("admin"), h.Attendance.DeleteAttendance)
			}
		}
	}

	return r
}
