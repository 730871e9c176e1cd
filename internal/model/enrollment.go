package model

import (
	"math"
	"time"
)

const (
	MinRating       = 1
	MaxRating       = 5
	MaxReviewLength = 500
)

// Enrollment 学生与课程的报名记录，(StudentID, CourseID) 唯一
// swagger:model Enrollment
type Enrollment struct {
	ID                   uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID            uint              `gorm:"not null;uniqueIndex:idx_student_course" json:"student"`
	CourseID             uint              `gorm:"not null;uniqueIndex:idx_student_course;index" json:"courseId"`
	Course               *Course           `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	EnrollmentDate       time.Time         `gorm:"not null" json:"enrollmentDate"`
	Progress             int               `gorm:"not null;default:0" json:"progress"`
	CompletedLessons     []CompletedLesson `gorm:"foreignKey:EnrollmentID" json:"completedLessons"`
	IsCompleted          bool              `gorm:"not null;default:false" json:"isCompleted"`
	CompletionDate       *time.Time        `json:"completionDate,omitempty"`
	LastAccessedLessonID *uint             `json:"lastAccessedLesson,omitempty"`
	LastAccessDate       time.Time         `json:"lastAccessDate"`
	Rating               *int              `json:"rating,omitempty"`
	Review               string            `gorm:"size:500" json:"review,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// CompletedLesson 已完成课时，同一报名下 LessonID 唯一
type CompletedLesson struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_lesson" json:"-"`
	LessonID     uint      `gorm:"not null;uniqueIndex:idx_enrollment_lesson" json:"lesson"`
	CompletedAt  time.Time `gorm:"not null" json:"completedAt"`
}

func (CompletedLesson) TableName() string {
	return "completed_lessons"
}

func NewEnrollment(studentID, courseID uint, now time.Time) *Enrollment {
	return &Enrollment{
		StudentID:        studentID,
		CourseID:         courseID,
		EnrollmentDate:   now,
		LastAccessDate:   now,
		CompletedLessons: []CompletedLesson{},
	}
}

// CalculateProgress round(100 * completed / total)，上限 100；total 为 0 时返回 -1 表示无法计算
func CalculateProgress(completed, total int) int {
	if total <= 0 {
		return -1
	}
	p := int(math.Round(float64(completed) * 100 / float64(total)))
	if p > 100 {
		p = 100
	}
	return p
}

func (e *Enrollment) HasCompleted(lessonID uint) bool {
	for _, cl := range e.CompletedLessons {
		if cl.LessonID == lessonID {
			return true
		}
	}
	return false
}

// CompleteLesson 记录课时完成并重算进度。课时已完成时返回 nil 且不做任何修改
func (e *Enrollment) CompleteLesson(lessonID uint, totalLessons int, now time.Time) *CompletedLesson {
	if e.HasCompleted(lessonID) {
		return nil
	}

	cl := CompletedLesson{
		EnrollmentID: e.ID,
		LessonID:     lessonID,
		CompletedAt:  now,
	}
	e.CompletedLessons = append(e.CompletedLessons, cl)

	id := lessonID
	e.LastAccessedLessonID = &id
	e.LastAccessDate = now

	e.UpdateProgress(totalLessons, now)
	return &cl
}

// UpdateProgress isCompleted 与 completionDate 只会被设置一次
func (e *Enrollment) UpdateProgress(totalLessons int, now time.Time) {
	p := CalculateProgress(len(e.CompletedLessons), totalLessons)
	if p < 0 {
		return
	}
	e.Progress = p

	if e.Progress >= 100 && !e.IsCompleted {
		e.IsCompleted = true
		if e.CompletionDate == nil {
			t := now
			e.CompletionDate = &t
		}
	}
}

func (e *Enrollment) SetReview(rating int, review string) {
	r := rating
	e.Rating = &r
	e.Review = review
}
