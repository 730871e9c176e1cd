package service

import (
	"bytes"
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const rosterSheet = "Roster"

var rosterHeaders = []string{
	"Student ID", "First Name", "Last Name", "Email", "Enrolled At",
	"Progress (%)", "Completed Lessons", "Completed", "Completed At", "Rating",
}

// ExportRoster 导出课程报名名单为 Excel，返回内容和建议文件名
func (s *CourseService) ExportRoster(ctx context.Context, actor *model.User, courseID uint) (*bytes.Buffer, string, error) {
	course, err := s.Authorize(ctx, actor, courseID)
	if err != nil {
		return nil, "", err
	}

	enrollments, err := s.EnrollmentRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, "", err
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	students, err := s.UserRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[uint]*model.User, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, h := range rosterHeaders {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(rosterSheet, c, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(rosterHeaders), 1)
	f.SetCellStyle(rosterSheet, "A1", last, headerStyle)
	f.SetColWidth(rosterSheet, "B", "D", 22)
	f.SetColWidth(rosterSheet, "E", "E", 20)
	f.SetColWidth(rosterSheet, "I", "I", 20)

	for i, e := range enrollments {
		row := i + 2
		values := []interface{}{e.StudentID, "", "", ""}
		if u, ok := byID[e.StudentID]; ok {
			values = []interface{}{u.ID, u.FirstName, u.LastName, u.Email}
		}
		values = append(values,
			e.EnrollmentDate.Format(time.RFC3339),
			e.Progress,
			len(e.CompletedLessons),
			yesNo(e.IsCompleted),
			formatOptionalTime(e.CompletionDate),
			formatOptionalRating(e.Rating),
		)

		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(rosterSheet, start, &values); err != nil {
			return nil, "", err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		logger.Log.Error("Failed to write roster workbook", zap.Uint("course_id", courseID), zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("course_%d_roster_%s.xlsx", course.ID, time.Now().Format("20060102"))
	return buf, filename, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatOptionalRating(r *int) interface{} {
	if r == nil {
		return ""
	}
	return *r
}
