package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// swagger:model ReviewRequest
type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Enroll godoc
// @Summary 报名课程
// @Description 课程必须已发布，同一学生只能报名一次
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment} "报名成功"
// @Failure 400 {object} util.Response "课程未发布或已报名"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/enrollments/enroll/{courseId} [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		util.NotFound(ctx, util.ErrCourseNotFound.Message)
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), util.GetUserFromContext(ctx), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, util.Response{
		Success: true,
		Message: "Successfully enrolled in course",
		Data:    enrollment,
	})
}

// MyCourses godoc
// @Summary 我的报名
// @Description 按报名时间倒序，附带课程摘要
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment} "成功"
// @Router /api/enrollments/my-courses [get]
func (c *EnrollmentController) MyCourses(ctx *gin.Context) {
	list, err := c.EnrollmentService.MyEnrollments(ctx.Request.Context(), util.GetUserFromContext(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessList(ctx, list, len(list), nil)
}

// Progress godoc
// @Summary 学习进度
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Enrollment} "成功"
// @Failure 404 {object} util.Response "未报名"
// @Router /api/enrollments/progress/{courseId} [get]
func (c *EnrollmentController) Progress(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		util.NotFound(ctx, util.ErrEnrollmentNotFound.Message)
		return
	}

	enrollment, err := c.EnrollmentService.Progress(ctx.Request.Context(), util.GetUserFromContext(ctx), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 记录课时完成并重算进度，进度达到 100 时课程标记为完成
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=model.Enrollment} "成功"
// @Failure 400 {object} util.Response "课时已完成"
// @Failure 404 {object} util.Response "未报名或课时不存在"
// @Router /api/enrollments/complete-lesson/{courseId}/{lessonId} [post]
func (c *EnrollmentController) CompleteLesson(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		util.NotFound(ctx, util.ErrEnrollmentNotFound.Message)
		return
	}
	lessonID, ok := util.ParamID(ctx, "lessonId")
	if !ok {
		util.NotFound(ctx, util.ErrLessonNotFound.Message)
		return
	}

	enrollment, err := c.EnrollmentService.CompleteLesson(ctx.Request.Context(), util.GetUserFromContext(ctx), courseID, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, util.Response{
		Success: true,
		Message: "Lesson marked as complete",
		Data:    enrollment,
	})
}

// Unenroll godoc
// @Summary 取消报名
// @Description 幂等；管理员可通过 studentId 为其他学生取消报名
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   studentId query int false "学生ID（仅管理员）"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/enrollments/unenroll/{courseId} [delete]
func (c *EnrollmentController) Unenroll(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		util.NotFound(ctx, util.ErrCourseNotFound.Message)
		return
	}

	var studentID uint
	if v := ctx.Query("studentId"); v != "" {
		studentID = util.MustParseUint(v)
		if studentID == 0 {
			util.BadRequest(ctx, "Invalid studentId")
			return
		}
	}

	if err := c.EnrollmentService.Unenroll(ctx.Request.Context(), util.GetUserFromContext(ctx), courseID, studentID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Successfully unenrolled from course")
}

// Review godoc
// @Summary 评价课程
// @Description 评分 1-5，评价不超过 500 字；重复提交会覆盖
// @Tags 报名
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   body body ReviewRequest true "评分和评价"
// @Success 200 {object} util.Response{data=model.Enrollment} "成功"
// @Failure 400 {object} util.Response "评分或评价不合法"
// @Failure 404 {object} util.Response "未报名"
// @Router /api/enrollments/review/{courseId} [post]
func (c *EnrollmentController) Review(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		util.NotFound(ctx, util.ErrNotEnrolledForReview.Message)
		return
	}

	var req ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	enrollment, err := c.EnrollmentService.Review(ctx.Request.Context(), util.GetUserFromContext(ctx), courseID, req.Rating, req.Review)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, util.Response{
		Success: true,
		Message: "Review added successfully",
		Data:    enrollment,
	})
}
