package middleware

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLookup AuthMiddleware 加载当前用户所需的查询
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// CourseAuthorizer CourseOwnership 校验课程管理权限所需的服务
type CourseAuthorizer interface {
	Authorize(ctx context.Context, actor *model.User, courseID uint) (*model.Course, error)
}

const ContextCourseKey = "course"

func AuthMiddleware(cfg *config.Config, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if tokenString == "" {
			util.Unauthorized(c, "Access denied. No token provided.")
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT parse failed", zap.Error(err))
			util.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil || user == nil {
			util.Unauthorized(c, "Invalid token. User not found.")
			c.Abort()
			return
		}

		if !user.IsActive {
			util.Unauthorized(c, "User account is deactivated.")
			c.Abort()
			return
		}

		c.Set(util.ContextClaimsKey, claims)
		c.Set(util.ContextUserKey, user)
		c.Next()
	}
}

// RoleMiddleware 管理员直接放行
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c, "Access denied. No token provided.")
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c, fmt.Sprintf("Role %s is not authorized to access this route", user.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CourseOwnership 仅课程讲师或管理员可以继续，param 为课程 ID 所在的路径参数
func CourseOwnership(courses CourseAuthorizer, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c, "Access denied. No token provided.")
			c.Abort()
			return
		}

		courseID, ok := util.ParamID(c, param)
		if !ok {
			util.NotFound(c, util.ErrCourseNotFound.Message)
			c.Abort()
			return
		}

		course, err := courses.Authorize(c.Request.Context(), user, courseID)
		if err != nil {
			util.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextCourseKey, course)
		c.Next()
	}
}
