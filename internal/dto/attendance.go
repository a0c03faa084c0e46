package dto

// ── 考勤模块 DTO ──
// 字段名与对外 API 约定一致（camelCase）

// CreateAttendanceRequest 单条考勤创建请求
type CreateAttendanceRequest struct {
	EnrollmentID string  `json:"enrollmentId" binding:"required,uuid"`
	Date         string  `json:"date"         binding:"required,calendar_date"` // "2026-10-13"
	Status       string  `json:"status"       binding:"required,attendance_status"`
	Note         *string `json:"note"         binding:"omitempty,max=500"`
}

// BulkAttendanceRequest 批量考勤请求
type BulkAttendanceRequest struct {
	GroupID           string               `json:"groupId"           binding:"required,uuid"`
	Date              string               `json:"date"              binding:"required,calendar_date"`
	AttendanceRecords []BulkAttendanceItem `json:"attendanceRecords" binding:"required,min=1,dive"`
}

// BulkAttendanceItem 批量考勤中的单个学生
type BulkAttendanceItem struct {
	StudentID string  `json:"studentId" binding:"required"`
	Status    string  `json:"status"    binding:"required,attendance_status"`
	Note      *string `json:"note"      binding:"omitempty,max=500"`
}

// UpdateAttendanceRequest 直接修改考勤记录
type UpdateAttendanceRequest struct {
	Status *string `json:"status" binding:"omitempty,attendance_status"`
	Note   *string `json:"note"   binding:"omitempty,max=500"`
}

// AttendanceRangeRequest 日期范围查询参数（统计、导出）
type AttendanceRangeRequest struct {
	StartDate string `form:"startDate" binding:"omitempty,calendar_date"`
	EndDate   string `form:"endDate"   binding:"omitempty,calendar_date"`
}

// AttendanceRecordResponse 考勤记录响应
type AttendanceRecordResponse struct {
	ID           string  `json:"id"`
	EnrollmentID string  `json:"enrollmentId"`
	StudentID    string  `json:"studentId,omitempty"`
	StudentName  string  `json:"studentName,omitempty"`
	Date         string  `json:"date"`
	Status       string  `json:"status"`
	Note         *string `json:"note,omitempty"`
	RecordedBy   *string `json:"recordedBy,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// 批量考勤单条结果
const (
	BulkOutcomeCreated = "created"
	BulkOutcomeUpdated = "updated"
	BulkOutcomeFailed  = "failed"
)

// 批量考勤单条失败原因
const (
	BulkErrorValidation  = "VALIDATION_ERROR"
	BulkErrorNotEnrolled = "NOT_ENROLLED"
	BulkErrorConflict    = "CONFLICT"
	BulkErrorStorage     = "STORAGE_ERROR"
)

// BulkAttendanceItemResult 批量考勤中单个学生的处理结果
type BulkAttendanceItemResult struct {
	StudentID string                    `json:"studentId"`
	Outcome   string                    `json:"outcome"` // created | updated | failed
	Record    *AttendanceRecordResponse `json:"record,omitempty"`
	ErrorCode string                    `json:"errorCode,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// BulkAttendanceResponse 批量考勤响应，调用方可只重试 failed 项
type BulkAttendanceResponse struct {
	GroupID   string                     `json:"groupId"`
	Date      string                     `json:"date"`
	Total     int                        `json:"total"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Results   []BulkAttendanceItemResult `json:"results"`
}

// GroupAttendanceStatus 本周期内单个学生的预填状态
type GroupAttendanceStatus struct {
	EnrollmentID       string  `json:"enrollmentId"`
	StudentID          string  `json:"studentId"`
	StudentName        string  `json:"studentName"`
	CurrentWeekStatus  *string `json:"currentWeekStatus"`
	LastAttendanceDate *string `json:"lastAttendanceDate"`
	Note               *string `json:"note,omitempty"`
	HasAttendanceToday bool    `json:"hasAttendanceToday"`
}

// WeekCycleAttendanceResponse 本周期考勤视图
type WeekCycleAttendanceResponse struct {
	GroupID          string                  `json:"groupId"`
	GroupName        string                  `json:"groupName"`
	Today            string                  `json:"today"`
	TodayWeekday     string                  `json:"todayWeekday"`
	IsClassToday     bool                    `json:"isClassToday"`
	ClassDays        []string                `json:"classDays"`
	AnchorWeekday    string                  `json:"anchorWeekday"`
	WeekStart        string                  `json:"weekStart"`
	WeekEnd          string                  `json:"weekEnd"` // 不含
	AttendanceExists bool                    `json:"attendanceExists"`
	AttendanceDate   string                  `json:"attendanceDate"`
	Students         []GroupAttendanceStatus `json:"students"`
}

// ClassTodayResponse 今天是否上课
type ClassTodayResponse struct {
	IsClassToday bool     `json:"isClassToday"`
	ClassDays    []string `json:"classDays"`
	Today        string   `json:"today"` // 星期名称，如 "Thursday"
	Date         string   `json:"date"`
}

// AttendanceStatsResponse 考勤统计
type AttendanceStatsResponse struct {
	GroupID        string  `json:"groupId"`
	StartDate      *string `json:"startDate,omitempty"`
	EndDate        *string `json:"endDate,omitempty"`
	Present        int64   `json:"present"`
	Absent         int64   `json:"absent"`
	Late           int64   `json:"late"`
	Total          int64   `json:"total"`
	AttendanceRate int     `json:"attendanceRate"` // 百分比，四舍五入取整
}
