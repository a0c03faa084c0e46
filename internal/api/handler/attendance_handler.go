package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/service"
	pkgerrors "classroll/backend/pkg/errors"
	"classroll/backend/pkg/response"
)

// 考勤模块错误码
const (
	CodeAttendanceNotFound      = 16001
	CodeAttendanceInvalidConfig = 16002
	CodeAttendanceConflict      = 16003
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	cycleSvc      service.AttendanceCycleService
	statsSvc      service.AttendanceStatsService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(
	attendanceSvc service.AttendanceService,
	cycleSvc service.AttendanceCycleService,
	statsSvc service.AttendanceStatsService,
) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, cycleSvc: cycleSvc, statsSvc: statsSvc}
}

// CreateAttendance 单条创建考勤
// POST /api/v1/attendance
func (h *AttendanceHandler) CreateAttendance(c *gin.Context) {
	var req dto.CreateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.RecordOne(c.Request.Context(), &req, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.Created(c, record)
}

// BulkAttendance 批量提交考勤
// POST /api/v1/attendance/bulk
// 部分条目失败时仍返回 200，逐条结果见 results
func (h *AttendanceHandler) BulkAttendance(c *gin.Context) {
	var req dto.BulkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.RecordBulk(c.Request.Context(), &req, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCurrentWeek 本周期考勤视图
// GET /api/v1/attendance/group/:groupId/current-week
func (h *AttendanceHandler) GetCurrentWeek(c *gin.Context) {
	groupID, ok := uuidParam(c, "groupId")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	view, err := h.cycleSvc.CurrentCycleView(c.Request.Context(), groupID, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, view)
}

// GetGroupAttendanceByDate 班级某天的考勤记录
// GET /api/v1/attendance/group/:groupId/date/:date
func (h *AttendanceHandler) GetGroupAttendanceByDate(c *gin.Context) {
	groupID, ok := uuidParam(c, "groupId")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	records, err := h.attendanceSvc.ListByGroupAndDate(c.Request.Context(), groupID, c.Param("date"), caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// GetClassToday 今天是否上课
// GET /api/v1/attendance/group/:groupId/class-today
func (h *AttendanceHandler) GetClassToday(c *gin.Context) {
	groupID, ok := uuidParam(c, "groupId")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.cycleSvc.ClassToday(c.Request.Context(), groupID, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetStats 考勤统计
// GET /api/v1/attendance/stats/:groupId?startDate=&endDate=
func (h *AttendanceHandler) GetStats(c *gin.Context) {
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

	stats, err := h.statsSvc.Stats(c.Request.Context(), groupID, &req, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetAttendance 考勤记录详情
// GET /api/v1/attendance/:id
func (h *AttendanceHandler) GetAttendance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.GetByID(c.Request.Context(), id, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// UpdateAttendance 修改考勤记录
// PUT /api/v1/attendance/:id
func (h *AttendanceHandler) UpdateAttendance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.Update(c.Request.Context(), id, &req, caller)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// DeleteAttendance 删除考勤记录
// DELETE /api/v1/attendance/:id
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.Delete(c.Request.Context(), id, caller); err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// uuidParam 读取并校验 UUID 路径参数
func uuidParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, name+" 格式无效")
		return "", false
	}
	return raw, true
}

// handleAttendanceError 统一处理考勤模块业务错误
func handleAttendanceError(c *gin.Context, err error) {
	msg := "服务器内部错误"
	details := ""
	if appErr, ok := pkgerrors.As(err); ok {
		msg = appErr.Message
		details = appErr.Error()
	}

	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.ErrorWithDetails(c, http.StatusNotFound, CodeAttendanceNotFound, msg, details)
	case errors.Is(err, pkgerrors.ErrInvalidConfiguration):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, CodeAttendanceInvalidConfig, msg, details)
	case errors.Is(err, pkgerrors.ErrConflict):
		response.ErrorWithDetails(c, http.StatusConflict, CodeAttendanceConflict, msg, details)
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParams, msg, details)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
