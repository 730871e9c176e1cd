package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Instructor, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	FirstName string     `gorm:"size:50;not null" json:"firstName"`
	LastName  string     `gorm:"size:50;not null" json:"lastName"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;not null;default:'student'" json:"role"`
	IsActive  bool       `gorm:"not null" json:"isActive"`
	Bio       string     `gorm:"size:500" json:"bio"`
	Avatar    string     `gorm:"size:255;default:'default-avatar.jpg'" json:"avatar"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`

	EnrolledCourses []Course `gorm:"many2many:course_students;joinForeignKey:UserID;joinReferences:CourseID" json:"enrolledCourses,omitempty"`
	CreatedCourses  []Course `gorm:"foreignKey:InstructorID" json:"createdCourses,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
