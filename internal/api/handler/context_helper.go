package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroll/backend/internal/service"
	"classroll/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString("user_id")
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetCaller 提取调用方身份（用户、角色、所属中心）
// center_id 允许为空，表示不限中心
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Caller{}, false
	}
	role := c.GetString("role")
	if role == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{
		UserID:   userID,
		Role:     role,
		CenterID: c.GetString("center_id"),
	}, true
}

// bindJSON 绑定并校验请求体，失败时写入 400（超出大小限制时写入 413）
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParams, "参数校验失败", validationDetails(err))
		return false
	}
	return true
}

// bindQuery 绑定并校验查询参数
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParams, "参数校验失败", validationDetails(err))
		return false
	}
	return true
}
