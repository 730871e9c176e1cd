package controller

import (
	"elearning_backend/internal/repository"
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 获取用户列表
// @Description 管理员分页查询用户，支持按角色、状态筛选和按姓名邮箱搜索
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   role query string false "角色" Enums(student, instructor, admin)
// @Param   isActive query bool false "是否启用"
// @Param   search query string false "姓名或邮箱关键字"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, limit := util.PageParams(ctx)

	filter := repository.UserFilter{
		Role:   ctx.Query("role"),
		Search: ctx.Query("search"),
	}
	if v := ctx.Query("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "isActive must be true or false")
			return
		}
		filter.IsActive = &active
	}

	users, total, err := c.UserService.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessList(ctx, users, len(users), util.NewPagination(page, limit, total))
}

// CreateUser godoc
// @Summary 创建用户
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateUserInput true "用户信息"
// @Success 201 {object} util.Response{data=model.User} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误或邮箱已被注册"
// @Router /api/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req service.CreateUserInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user, err := c.UserService.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// GetUser godoc
// @Summary 获取用户详情
// @Description 包含已报名和已创建的课程
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx, util.ErrUserNotFound.Message)
		return
	}

	user, err := c.UserService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateUser godoc
// @Summary 更新用户
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body service.UpdateUserInput true "需要更新的字段"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx, util.ErrUserNotFound.Message)
		return
	}

	var req service.UpdateUserInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user, err := c.UserService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// DeleteUser godoc
// @Summary 删除用户
// @Description 同时删除其报名记录；仍是课程讲师的用户不能删除
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 400 {object} util.Response "用户仍拥有课程"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx, util.ErrUserNotFound.Message)
		return
	}

	if err := c.UserService.Delete(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "User deleted")
}
