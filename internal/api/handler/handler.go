package handler

import "classroll/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合，并注册自定义校验标签
func NewHandler(svc *service.Service) *Handler {
	RegisterValidators()
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Attendance, svc.Cycle, svc.Stats),
		Export:     NewExportHandler(svc.Export),
	}
}
