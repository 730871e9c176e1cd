package model

import (
	"time"

	"gorm.io/datatypes"
)

type CourseCategory string

const (
	CategoryProgramming CourseCategory = "Programming"
	CategoryDesign      CourseCategory = "Design"
	CategoryBusiness    CourseCategory = "Business"
	CategoryMarketing   CourseCategory = "Marketing"
	CategoryMusic       CourseCategory = "Music"
	CategoryPhotography CourseCategory = "Photography"
	CategoryOther       CourseCategory = "Other"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

const DefaultCourseThumbnail = "default-course.jpg"

// Course 课程，rating/numReviews/totalDuration 为派生字段，只能由服务端重算
// swagger:model Course
type Course struct {
	BaseModel
	Title            string                     `gorm:"size:100;not null" json:"title"`
	Description      string                     `gorm:"size:1000;not null" json:"description"`
	InstructorID     uint                       `gorm:"index;not null" json:"instructorId"`
	Instructor       *User                      `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Category         CourseCategory             `gorm:"size:30;not null;index" json:"category"`
	Level            CourseLevel                `gorm:"size:20;not null;index" json:"level"`
	Price            float64                    `gorm:"not null;default:0" json:"price"`
	Thumbnail        string                     `gorm:"size:255" json:"thumbnail"`
	Requirements     datatypes.JSONSlice[string] `json:"requirements"`
	WhatYouWillLearn datatypes.JSONSlice[string] `json:"whatYouWillLearn"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	IsPublished      bool                       `gorm:"not null;default:false;index" json:"isPublished"`
	Rating           float64                    `gorm:"not null;default:0" json:"rating"`
	NumReviews       int                        `gorm:"not null;default:0" json:"numReviews"`
	TotalDuration    int                        `gorm:"not null;default:0" json:"totalDuration"`

	Lessons          []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
	EnrolledStudents []User   `gorm:"many2many:course_students;joinForeignKey:CourseID;joinReferences:UserID" json:"enrolledStudents,omitempty"`
	EnrollmentCount  int64    `gorm:"-" json:"enrollmentCount"`
}

func (Course) TableName() string {
	return "courses"
}

type LessonResourceType string

const (
	ResourcePDF      LessonResourceType = "pdf"
	ResourceVideo    LessonResourceType = "video"
	ResourceLink     LessonResourceType = "link"
	ResourceDocument LessonResourceType = "document"
)

func (t LessonResourceType) Valid() bool {
	switch t {
	case ResourcePDF, ResourceVideo, ResourceLink, ResourceDocument:
		return true
	}
	return false
}

type LessonResource struct {
	Name string             `json:"name"`
	URL  string             `json:"url"`
	Type LessonResourceType `json:"type"`
}

// Lesson 课时，Order 在同一课程内唯一，删除课时不会重新编号
// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID  uint                               `gorm:"not null;uniqueIndex:idx_course_lesson_order" json:"courseId"`
	Title     string                             `gorm:"size:200;not null" json:"title"`
	Content   string                             `gorm:"type:text;not null" json:"content"`
	VideoURL  string                             `gorm:"size:500" json:"videoUrl"`
	Duration  int                                `gorm:"not null;default:0" json:"duration"`
	Order     int                                `gorm:"column:lesson_order;not null;uniqueIndex:idx_course_lesson_order" json:"order"`
	Resources datatypes.JSONSlice[LessonResource] `json:"resources"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// CourseStudent 课程与学生的报名关系表，Course.EnrolledStudents 与 User.EnrolledCourses 共用
type CourseStudent struct {
	CourseID  uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (CourseStudent) TableName() string {
	return "course_students"
}

// TotalDuration 课时时长之和
func TotalDuration(lessons []Lesson) int {
	total := 0
	for _, l := range lessons {
		total += l.Duration
	}
	return total
}

// NextLessonOrder 返回新课时的序号。未删除过课时时等于 len+1
func NextLessonOrder(lessons []Lesson) int {
	max := 0
	for _, l := range lessons {
		if l.Order > max {
			max = l.Order
		}
	}
	return max + 1
}
