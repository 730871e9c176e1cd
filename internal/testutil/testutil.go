package testutil

import (
	"elearning_backend/internal/model"
	"elearning_backend/pkg/database"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// DB 每个测试一个独立的内存 sqlite 库
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// 内存库在最后一个连接关闭时销毁，固定为单连接
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func CreateUser(tb testing.TB, db *gorm.DB, email string, role model.UserRole) *model.User {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash: %v", err)
	}
	u := &model.User{
		FirstName: "Test",
		LastName:  string(role),
		Email:     email,
		Password:  string(hash),
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return u
}

// CreateCourse 创建课程并附带 lessons 个时长为 10 分钟的课时
func CreateCourse(tb testing.TB, db *gorm.DB, instructorID uint, published bool, lessons int) *model.Course {
	tb.Helper()
	c := &model.Course{
		Title:        "Go in Practice",
		Description:  "Idiomatic Go for backend engineers",
		InstructorID: instructorID,
		Category:     model.CategoryProgramming,
		Level:        model.LevelBeginner,
		Price:        19.99,
		Thumbnail:    model.DefaultCourseThumbnail,
		IsPublished:  published,
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("create course: %v", err)
	}
	for i := 1; i <= lessons; i++ {
		l := &model.Lesson{
			CourseID: c.ID,
			Title:    fmt.Sprintf("Lesson %d", i),
			Content:  "content",
			Duration: 10,
			Order:    i,
		}
		if err := db.Create(l).Error; err != nil {
			tb.Fatalf("create lesson: %v", err)
		}
		c.Lessons = append(c.Lessons, *l)
	}
	if lessons > 0 {
		c.TotalDuration = lessons * 10
		db.Model(&model.Course{}).Where("id = ?", c.ID).Update("total_duration", c.TotalDuration)
	}
	return c
}

// FixedClock 可控时钟
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.T
}

func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
