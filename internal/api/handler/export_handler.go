package handler

import (
	"github.com/gin-gonic/gin"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/service"
	"classroll/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAttendance 导出班级考勤明细
// GET /api/v1/attendance/export/:groupId?startDate=&endDate=
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	groupID, ok := uuidParam(c, "groupId")
	if !ok {
		return
	}
	var req dto.AttendanceRangeRequest
	if !bindQuery(c, &req) {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), groupID, &req, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}
