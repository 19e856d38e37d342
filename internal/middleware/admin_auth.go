package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/auth"
	"noticeboard/internal/constants"
	"noticeboard/internal/service"
)

// AdminAuth 管理员认证中间件，校验Bearer令牌并确认管理员仍然存在
func AdminAuth(jwtSecret string, adminService *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取Token
		token := c.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			c.JSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrUnauthorized})
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(jwtSecret, token)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrInvalidToken})
			c.Abort()
			return
		}

		admin, err := adminService.GetByUsername(c.Request.Context(), claims.Username)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrInvalidToken})
			c.Abort()
			return
		}

		// 将管理员身份存储到上下文中
		c.Set("admin_id", admin.ID)
		c.Set("admin_username", admin.Username)
		c.Next()
	}
}
