package controller

import (
	"elearning_backend/internal/repository"
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCourses godoc
// @Summary 获取课程列表
// @Description 支持按分类、难度、发布状态筛选，按标题和简介搜索，分页返回
// @Tags 课程
// @Produce  json
// @Param   category query string false "分类"
// @Param   level query string false "难度"
// @Param   published query bool false "是否已发布"
// @Param   instructor query int false "讲师ID"
// @Param   search query string false "关键字"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, limit := util.PageParams(ctx)

	filter := repository.CourseFilter{
		Category:     ctx.Query("category"),
		Level:        ctx.Query("level"),
		Search:       ctx.Query("search"),
		InstructorID: util.MustParseUint(ctx.Query("instructor")),
	}
	if v := ctx.Query("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "published must be true or false")
			return
		}
		filter.IsPublished = &published
	}

	courses, total, err := c.CourseService.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessList(ctx, courses, len(courses), util.NewPagination(page, limit, total))
}

// GetCourse godoc
// @Summary 获取课程详情
// @Description 包含讲师、报名学生和课时
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx, util.ErrCourseNotFound.Message)
		return
	}

	course, err := c.CourseService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// GetLessons godoc
// @Summary 获取课程课时
// @Description 按序号升序返回
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Lesson} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/lessons [get]
func (c *CourseController) GetLessons(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx, util.ErrCourseNotFound.Message)
		return
	}

	lessons, err := c.CourseService.Lessons(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessList(ctx, lessons, len(lessons), nil)
}

// CreateCourse godoc
// @Summary 创建课程
// @Description 讲师或管理员创建课程，讲师为当前用户
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateCourseInput true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CreateCourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	course, err := c.CourseService.Create(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Description 仅课程讲师或管理员，评分和总时长不可修改
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.UpdateCourseInput true "需要更新的字段"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "无权修改"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")

	var req service.UpdateCourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	course, err := c.CourseService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Description 同时删除课时、报名和完成记录
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 403 {object} util.Response "无权修改"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")

	if err := c.CourseService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Course deleted successfully")
}

// AddLesson godoc
// @Summary 添加课时
// @Description 序号自动分配为当前最大序号加一
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.LessonInput true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权修改"
// @Router /api/courses/{id}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")

	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	lesson, err := c.CourseService.AddLesson(ctx.Request.Context(), util.GetUserFromContext(ctx), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课时
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "课时ID"
// @Param   body body service.UpdateLessonInput true "需要更新的字段"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/courses/{id}/lessons/{lessonId} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")
	lessonID, ok := util.ParamID(ctx, "lessonId")
	if !ok {
		util.NotFound(ctx, util.ErrLessonNotFound.Message)
		return
	}

	var req service.UpdateLessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	lesson, err := c.CourseService.UpdateLesson(ctx.Request.Context(), util.GetUserFromContext(ctx), id, lessonID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Description 其余课时不重新编号
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/courses/{id}/lessons/{lessonId} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")
	lessonID, ok := util.ParamID(ctx, "lessonId")
	if !ok {
		util.NotFound(ctx, util.ErrLessonNotFound.Message)
		return
	}

	if err := c.CourseService.DeleteLesson(ctx.Request.Context(), util.GetUserFromContext(ctx), id, lessonID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Lesson deleted successfully")
}

// ExportRoster godoc
// @Summary 导出报名名单
// @Description 导出课程报名学生及学习进度为 Excel
// @Tags 课程管理
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {file} file "xlsx 文件"
// @Failure 403 {object} util.Response "无权访问"
// @Router /api/courses/{id}/students/export [get]
func (c *CourseController) ExportRoster(ctx *gin.Context) {
	id, _ := util.ParamID(ctx, "id")

	buf, filename, err := c.CourseService.ExportRoster(ctx.Request.Context(), util.GetUserFromContext(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
