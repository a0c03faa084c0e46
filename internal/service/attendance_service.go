package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classroll/backend/config"
	"classroll/backend/internal/dto"
	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// ── 考勤记录模块业务错误 ──

var (
	ErrAttendanceAlreadyRecorded = &pkgerrors.AppError{
		Kind: pkgerrors.ErrConflict, Entity: "attendance", Message: "该学生当天已有考勤记录，请使用修改或批量提交",
	}
	ErrAttendanceNoChanges = pkgerrors.Validation("status", "至少需要修改一个字段")
)

// maxUpsertAttempts 读-改-写重试上限
const maxUpsertAttempts = 3

// 等待批量提交锁的轮询间隔
const (
	lockPollMin = 50 * time.Millisecond
	lockPollMax = time.Second
)

// SubmissionLocker 批量提交互斥锁（Redis 实现见 pkg/redis）
type SubmissionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// AttendanceService 考勤记录业务接口
type AttendanceService interface {
	// RecordOne 单条创建；同一报名同一天已有记录时返回冲突，不覆盖
	RecordOne(ctx context.Context, req *dto.CreateAttendanceRequest, caller Caller) (*dto.AttendanceRecordResponse, error)
	// RecordBulk 按 (报名, 日期) 幂等写入，逐条报告结果
	RecordBulk(ctx context.Context, req *dto.BulkAttendanceRequest, caller Caller) (*dto.BulkAttendanceResponse, error)
	GetByID(ctx context.Context, id string, caller Caller) (*dto.AttendanceRecordResponse, error)
	ListByGroupAndDate(ctx context.Context, groupID, date string, caller Caller) ([]dto.AttendanceRecordResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAttendanceRequest, caller Caller) (*dto.AttendanceRecordResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error
}

type attendanceService struct {
	repo           *repository.Repository
	groups         groupLoader
	locker         SubmissionLocker // 可为 nil：不做跨请求互斥
	lockTTL        time.Duration
	lockWait       time.Duration
	maxBulkEntries int
	logger         *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	cfg *config.AttendanceConfig,
	repo *repository.Repository,
	locker SubmissionLocker,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{
		repo:           repo,
		groups:         groupLoader{repo: repo, logger: logger},
		locker:         locker,
		lockTTL:        cfg.BulkLockTTL,
		lockWait:       cfg.BulkLockWait,
		maxBulkEntries: cfg.MaxBulkEntries,
		logger:         logger,
	}
}

// ────────────────────── RecordOne ──────────────────────

func (s *attendanceService) RecordOne(ctx context.Context, req *dto.CreateAttendanceRequest, caller Caller) (*dto.AttendanceRecordResponse, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	status, err := model.ParseAttendanceStatus(req.Status)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment.GetByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("enrollment", req.EnrollmentID, "报名不存在")
		}
		s.logger.Error("查询报名失败", zap.String("enrollment_id", req.EnrollmentID), zap.Error(err))
		return nil, err
	}
	// 已退出的报名或已停用的学生按未报名处理
	if !enrollment.IsActive || enrollment.Student == nil || !enrollment.Student.IsActive {
		return nil, pkgerrors.NotFound("enrollment", req.EnrollmentID, "报名不存在")
	}
	ok, err := s.groups.enrollmentInScope(ctx, enrollment, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.NotFound("enrollment", req.EnrollmentID, "报名不存在")
	}

	if _, err := s.repo.Attendance.FindByEnrollmentAndDate(ctx, enrollment.EnrollmentID, date); err == nil {
		return nil, ErrAttendanceAlreadyRecorded
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询考勤记录失败", zap.String("enrollment_id", enrollment.EnrollmentID), zap.Error(err))
		return nil, err
	}

	record := &model.AttendanceRecord{
		EnrollmentID: enrollment.EnrollmentID,
		Date:         date,
		Status:       status,
		Note:         req.Note,
		RecordedBy:   caller.recordedBy(),
	}
	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		// 与并发写者竞争唯一索引失败
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrAttendanceAlreadyRecorded
		}
		s.logger.Error("创建考勤记录失败",
			zap.String("enrollment_id", enrollment.EnrollmentID),
			zap.String("date", date.Key()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("考勤记录已创建",
		zap.String("record_id", record.RecordID),
		zap.String("enrollment_id", record.EnrollmentID),
		zap.String("date", date.Key()),
	)
	return toAttendanceResponse(record, enrollment.Student), nil
}

// ────────────────────── RecordBulk ──────────────────────

func (s *attendanceService) RecordBulk(ctx context.Context, req *dto.BulkAttendanceRequest, caller Caller) (*dto.BulkAttendanceResponse, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if len(req.AttendanceRecords) == 0 {
		return nil, pkgerrors.Validation("attendanceRecords", "考勤列表不能为空")
	}
	if s.maxBulkEntries > 0 && len(req.AttendanceRecords) > s.maxBulkEntries {
		return nil, pkgerrors.Validation("attendanceRecords",
			fmt.Sprintf("单次最多提交 %d 条考勤", s.maxBulkEntries))
	}

	group, err := s.groups.load(ctx, req.GroupID, caller)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireBulkLock(ctx, group.GroupID, date)
	if err != nil {
		return nil, err
	}
	defer release()

	resp := &dto.BulkAttendanceResponse{
		GroupID: group.GroupID,
		Date:    date.Key(),
		Total:   len(req.AttendanceRecords),
		Results: make([]dto.BulkAttendanceItemResult, 0, len(req.AttendanceRecords)),
	}
	recordedBy := caller.recordedBy()

	for _, entry := range req.AttendanceRecords {
		// 已写入的条目保持不变，重新提交即可收敛
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := s.recordBulkEntry(ctx, group.GroupID, date, entry, recordedBy)
		if result.Outcome == dto.BulkOutcomeFailed {
			resp.Failed++
			s.logger.Warn("批量考勤条目失败",
				zap.String("group_id", group.GroupID),
				zap.String("student_id", entry.StudentID),
				zap.String("error_code", result.ErrorCode),
				zap.String("error", result.Error),
			)
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}

	s.logger.Info("批量考勤已提交",
		zap.String("group_id", group.GroupID),
		zap.String("date", date.Key()),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// recordBulkEntry 处理单个学生，失败只影响本条
func (s *attendanceService) recordBulkEntry(
	ctx context.Context,
	groupID string,
	date calendar.Date,
	entry dto.BulkAttendanceItem,
	recordedBy *string,
) dto.BulkAttendanceItemResult {
	result := dto.BulkAttendanceItemResult{StudentID: entry.StudentID}
	fail := func(code, msg string) dto.BulkAttendanceItemResult {
		result.Outcome = dto.BulkOutcomeFailed
		result.ErrorCode = code
		result.Error = msg
		return result
	}

	if entry.StudentID == "" {
		return fail(dto.BulkErrorValidation, "studentId 不能为空")
	}
	status, err := model.ParseAttendanceStatus(entry.Status)
	if err != nil {
		return fail(dto.BulkErrorValidation, err.Error())
	}

	enrollment, err := s.repo.Enrollment.FindByGroupAndStudent(ctx, groupID, entry.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(dto.BulkErrorNotEnrolled, fmt.Sprintf("学生 %s 未报名该班级", entry.StudentID))
		}
		s.logger.Error("查询报名失败", zap.String("student_id", entry.StudentID), zap.Error(err))
		return fail(dto.BulkErrorStorage, "查询报名失败")
	}

	record, created, err := s.upsert(ctx, enrollment.EnrollmentID, date, status, entry.Note, recordedBy)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return fail(dto.BulkErrorConflict, err.Error())
		}
		s.logger.Error("写入考勤记录失败",
			zap.String("enrollment_id", enrollment.EnrollmentID),
			zap.String("date", date.Key()),
			zap.Error(err),
		)
		return fail(dto.BulkErrorStorage, "写入考勤记录失败")
	}

	result.Outcome = dto.BulkOutcomeUpdated
	if created {
		result.Outcome = dto.BulkOutcomeCreated
	}
	result.Record = toAttendanceResponse(record, enrollment.Student)
	return result
}

// upsert 以 (enrollment_id, date) 为键的读-改-写循环
// 创建撞上唯一索引说明并发写者抢先，下一轮改走更新；更新时行已被删除则下一轮改走创建
func (s *attendanceService) upsert(
	ctx context.Context,
	enrollmentID string,
	date calendar.Date,
	status model.AttendanceStatus,
	note *string,
	recordedBy *string,
) (*model.AttendanceRecord, bool, error) {
	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		existing, err := s.repo.Attendance.FindByEnrollmentAndDate(ctx, enrollmentID, date)
		switch {
		case err == nil:
			existing.Status = status
			existing.Note = note
			existing.RecordedBy = recordedBy
			err = s.repo.Attendance.Update(ctx, existing)
			if err == nil {
				return existing, false, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, err
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			record := &model.AttendanceRecord{
				EnrollmentID: enrollmentID,
				Date:         date,
				Status:       status,
				Note:         note,
				RecordedBy:   recordedBy,
			}
			err = s.repo.Attendance.Create(ctx, record)
			if err == nil {
				return record, true, nil
			}
			if !errors.Is(err, pkgerrors.ErrDuplicate) {
				return nil, false, err
			}

		default:
			return nil, false, err
		}

		s.logger.Debug("考勤写入遇到并发修改，重试",
			zap.String("enrollment_id", enrollmentID),
			zap.String("date", date.Key()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, false, pkgerrors.Conflict("enrollment", enrollmentID, "考勤记录并发写入冲突，请重试")
}

// acquireBulkLock 同一班级同一天的批量提交串行执行，后到者等待前者完成后再写入
// 等待超过 lockWait 或锁服务不可用时降级为不加锁，唯一索引仍保证不会产生重复记录
func (s *attendanceService) acquireBulkLock(ctx context.Context, groupID string, date calendar.Date) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := fmt.Sprintf("attendance:bulk:%s:%s", groupID, date.Key())
	deadline := time.Now().Add(s.lockWait)
	backoff := lockPollMin

	for {
		token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			s.logger.Warn("获取批量考勤锁失败，降级为无锁提交", zap.String("key", key), zap.Error(err))
			return noop, nil
		}
		if ok {
			return func() {
				// 请求已取消时仍需释放锁
				if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					s.logger.Warn("释放批量考勤锁失败", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.logger.Warn("等待批量考勤锁超时，降级为无锁提交", zap.String("key", key), zap.Duration("waited", s.lockWait))
			return noop, nil
		}
		wait := min(backoff, remaining)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, lockPollMax)
	}
}

// ────────────────────── GetByID ──────────────────────

func (s *attendanceService) GetByID(ctx context.Context, id string, caller Caller) (*dto.AttendanceRecordResponse, error) {
	record, err := s.loadRecord(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return toAttendanceResponse(record, studentOf(record)), nil
}

// ────────────────────── ListByGroupAndDate ──────────────────────

func (s *attendanceService) ListByGroupAndDate(ctx context.Context, groupID, rawDate string, caller Caller) ([]dto.AttendanceRecordResponse, error) {
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.load(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance.ListByGroupAndDate(ctx, group.GroupID, date)
	if err != nil {
		s.logger.Error("查询班级考勤失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, *toAttendanceResponse(&records[i], studentOf(&records[i])))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *attendanceService) Update(ctx context.Context, id string, req *dto.UpdateAttendanceRequest, caller Caller) (*dto.AttendanceRecordResponse, error) {
	if req.Status == nil && req.Note == nil {
		return nil, ErrAttendanceNoChanges
	}

	record, err := s.loadRecord(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		status, err := model.ParseAttendanceStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		record.Status = status
	}
	if req.Note != nil {
		record.Note = req.Note
	}
	record.RecordedBy = caller.recordedBy()

	if err := s.repo.Attendance.Update(ctx, record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("attendance", id, "考勤记录不存在")
		}
		s.logger.Error("更新考勤记录失败", zap.String("record_id", id), zap.Error(err))
		return nil, err
	}
	return toAttendanceResponse(record, studentOf(record)), nil
}

// ────────────────────── Delete ──────────────────────

func (s *attendanceService) Delete(ctx context.Context, id string, caller Caller) error {
	if _, err := s.loadRecord(ctx, id, caller); err != nil {
		return err
	}
	if err := s.repo.Attendance.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("attendance", id, "考勤记录不存在")
		}
		s.logger.Error("删除考勤记录失败", zap.String("record_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("考勤记录已删除", zap.String("record_id", id), zap.String("deleted_by", caller.UserID))
	return nil
}

// loadRecord 加载记录并校验中心范围，范围外与不存在同样返回 NotFound
func (s *attendanceService) loadRecord(ctx context.Context, id string, caller Caller) (*model.AttendanceRecord, error) {
	record, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("attendance", id, "考勤记录不存在")
		}
		s.logger.Error("查询考勤记录失败", zap.String("record_id", id), zap.Error(err))
		return nil, err
	}

	enrollment := record.Enrollment
	if enrollment == nil {
		enrollment, err = s.repo.Enrollment.GetByID(ctx, record.EnrollmentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if enrollment == nil {
			return nil, pkgerrors.NotFound("attendance", id, "考勤记录不存在")
		}
		record.Enrollment = enrollment
	}
	ok, err := s.groups.enrollmentInScope(ctx, enrollment, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.NotFound("attendance", id, "考勤记录不存在")
	}
	return record, nil
}

// ── 辅助函数 ──

func studentOf(record *model.AttendanceRecord) *model.Student {
	if record.Enrollment == nil {
		return nil
	}
	return record.Enrollment.Student
}

func toAttendanceResponse(record *model.AttendanceRecord, student *model.Student) *dto.AttendanceRecordResponse {
	resp := &dto.AttendanceRecordResponse{
		ID:           record.RecordID,
		EnrollmentID: record.EnrollmentID,
		Date:         record.Date.Key(),
		Status:       string(record.Status),
		Note:         record.Note,
		RecordedBy:   record.RecordedBy,
		CreatedAt:    record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    record.UpdatedAt.Format(time.RFC3339),
	}
	if student != nil {
		resp.StudentID = student.StudentID
		resp.StudentName = student.Name
	}
	return resp
}
