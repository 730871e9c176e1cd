package service

import "elearning_backend/internal/model"

// CanManageCourse 课程的讲师或管理员可以修改课程及其课时
func CanManageCourse(role model.UserRole, actorID, ownerID uint) bool {
	return role == model.Admin || (actorID != 0 && actorID == ownerID)
}

// CanActOnEnrollment 学生本人或管理员可以操作报名记录
func CanActOnEnrollment(role model.UserRole, actorID, studentID uint) bool {
	return role == model.Admin || (actorID != 0 && actorID == studentID)
}
