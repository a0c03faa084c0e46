package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportRangeRequired = pkgerrors.Validation("startDate", "导出必须指定开始与结束日期")
	ErrExportRangeTooLarge = pkgerrors.Validation("endDate", fmt.Sprintf("导出范围不能超过 %d 天", maxExportDays))
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// maxExportDays 单次导出的最大天数（含首尾）
const maxExportDays = 366

var statusLabels = map[model.AttendanceStatus]string{
	model.AttendanceStatusPresent: "出勤",
	model.AttendanceStatusAbsent:  "缺勤",
	model.AttendanceStatusLate:    "迟到",
}

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置下载响应头
type ExportService interface {
	// ExportAttendance 导出班级在 [startDate, endDate] 内的考勤明细
	ExportAttendance(ctx context.Context, groupID string, req *dto.AttendanceRangeRequest, caller Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	groups groupLoader
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{
		repo:   repo,
		groups: groupLoader{repo: repo, logger: logger},
		logger: logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance — 导出考勤明细为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：班级名称与日期范围
//   - 表头：学生 | 各有记录的日期 | 出勤 | 缺勤 | 迟到 | 出勤率
//   - 每个有效报名一行，无记录的单元格为 "-"
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAttendance(ctx context.Context, groupID string, req *dto.AttendanceRangeRequest, caller Caller) (*bytes.Buffer, string, error) {
	if req.StartDate == "" || req.EndDate == "" {
		return nil, "", ErrExportRangeRequired
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, "", err
	}
	if end.DaysSince(*start)+1 > maxExportDays {
		return nil, "", ErrExportRangeTooLarge
	}

	group, err := s.groups.load(ctx, groupID, caller)
	if err != nil {
		return nil, "", err
	}

	// 1. 名册与考勤
	roster, err := s.repo.Enrollment.ListActiveByGroup(ctx, group.GroupID)
	if err != nil {
		s.logger.Error("查询班级名册失败", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, "", err
	}
	ids := make([]string, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.EnrollmentID)
	}
	records, err := s.repo.Attendance.ListByEnrollmentsInRange(ctx, ids, *start, end.AddDays(1))
	if err != nil {
		s.logger.Error("查询考勤明细失败", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, "", err
	}

	// 2. 索引: enrollmentID → dateKey → status，并收集有记录的日期
	byEnrollment := make(map[string]map[string]model.AttendanceStatus, len(roster))
	dateSet := make(map[calendar.Date]bool)
	for _, r := range records {
		if byEnrollment[r.EnrollmentID] == nil {
			byEnrollment[r.EnrollmentID] = make(map[string]model.AttendanceStatus)
		}
		byEnrollment[r.EnrollmentID][r.Date.Key()] = r.Status
		dateSet[r.Date] = true
	}
	dates := make([]calendar.Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤明细"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	summaryCol := 1 + len(dates) // 汇总列起始下标（0 起）
	lastCol := summaryCol + 3

	f.SetColWidth(sheetName, "A", "A", 16)
	if len(dates) > 0 {
		f.SetColWidth(sheetName, colName(1), colName(len(dates)), 12)
	}
	f.SetColWidth(sheetName, colName(summaryCol), colName(lastCol), 8)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 考勤 %s ~ %s", group.Name, start.Key(), end.Key()))
	f.MergeCell(sheetName, "A1", cell(colName(lastCol), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "学生")
	for i, d := range dates {
		f.SetCellValue(sheetName, cell(colName(1+i), row), d.Key())
	}
	for i, title := range []string{"出勤", "缺勤", "迟到", "出勤率"} {
		f.SetCellValue(sheetName, cell(colName(summaryCol+i), row), title)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(lastCol), row), headerStyle)

	// 数据行
	row = 3
	for _, e := range roster {
		name := e.StudentID
		if e.Student != nil {
			name = e.Student.Name
		}
		f.SetCellValue(sheetName, cell("A", row), name)

		var present, absent, late int64
		statuses := byEnrollment[e.EnrollmentID]
		for i, d := range dates {
			status, ok := statuses[d.Key()]
			if !ok {
				f.SetCellValue(sheetName, cell(colName(1+i), row), "-")
				continue
			}
			f.SetCellValue(sheetName, cell(colName(1+i), row), statusLabels[status])
		}
		counts := make([]model.StatusCount, 0, len(statuses))
		for _, status := range statuses {
			counts = append(counts, model.StatusCount{Status: status, Count: 1})
		}
		if err := tallyStatusCounts(counts, &present, &absent, &late); err != nil {
			s.logger.Error("考勤状态数据异常", zap.String("enrollment_id", e.EnrollmentID), zap.Error(err))
			return nil, "", err
		}

		total := present + absent + late
		f.SetCellValue(sheetName, cell(colName(summaryCol), row), present)
		f.SetCellValue(sheetName, cell(colName(summaryCol+1), row), absent)
		f.SetCellValue(sheetName, cell(colName(summaryCol+2), row), late)
		f.SetCellValue(sheetName, cell(colName(summaryCol+3), row), fmt.Sprintf("%d%%", attendanceRate(present, total)))
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤_%s_%s_%s.xlsx", group.Name, start.Key(), end.Key())
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
