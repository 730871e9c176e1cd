package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{
		AuthService: authService,
	}
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// swagger:model UpdatePasswordRequest
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// swagger:model ForgotPasswordRequest
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// swagger:model ResetPasswordRequest
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// Register godoc
// @Summary 注册新用户
// @Description 注册学生或讲师账号，返回令牌和用户摘要
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterInput true "用户注册信息"
// @Success 201 {object} util.Response{data=service.AuthSummary} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误或邮箱已被注册"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user, token, err := c.AuthService.Register(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessToken(ctx, http.StatusCreated, token, service.NewAuthSummary(user))
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户身份并返回JWT令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=service.AuthSummary} "登录成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "凭据无效或账号已停用"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Please provide email and password")
		return
	}

	user, token, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessToken(ctx, http.StatusOK, token, service.NewAuthSummary(user))
}

// Me godoc
// @Summary 获取当前用户
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)

	me, err := c.AuthService.Me(ctx.Request.Context(), user.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, me)
}

// UpdateDetails godoc
// @Summary 更新个人资料
// @Tags 认证
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.UpdateDetailsInput true "姓名、邮箱、简介"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/auth/updatedetails [put]
func (c *AuthController) UpdateDetails(ctx *gin.Context) {
	var req service.UpdateDetailsInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user := util.GetUserFromContext(ctx)
	updated, err := c.AuthService.UpdateDetails(ctx.Request.Context(), user.ID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}

// UpdatePassword godoc
// @Summary 修改密码
// @Description 校验当前密码后更新密码并返回新令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdatePasswordRequest true "当前密码和新密码"
// @Success 200 {object} util.Response{data=service.AuthSummary} "成功"
// @Failure 401 {object} util.Response "当前密码错误"
// @Router /api/auth/updatepassword [put]
func (c *AuthController) UpdatePassword(ctx *gin.Context) {
	var req UpdatePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user := util.GetUserFromContext(ctx)
	updated, token, err := c.AuthService.UpdatePassword(ctx.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessToken(ctx, http.StatusOK, token, service.NewAuthSummary(updated))
}

// ForgotPassword godoc
// @Summary 忘记密码
// @Description 生成一次性重置令牌并发送到用户邮箱
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body ForgotPasswordRequest true "注册邮箱"
// @Success 200 {object} util.Response "邮件已发送"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/auth/forgotpassword [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	if err := c.AuthService.ForgotPassword(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Reset password email sent")
}

// ResetPassword godoc
// @Summary 重置密码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   resettoken path string true "重置令牌"
// @Param   body body ResetPasswordRequest true "新密码"
// @Success 200 {object} util.Response{data=service.AuthSummary} "成功"
// @Failure 400 {object} util.Response "令牌无效或已过期"
// @Router /api/auth/resetpassword/{resettoken} [put]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user, token, err := c.AuthService.ResetPassword(ctx.Request.Context(), ctx.Param("resettoken"), req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessToken(ctx, http.StatusOK, token, service.NewAuthSummary(user))
}
