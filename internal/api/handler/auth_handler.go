package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"noticeboard/config"
	"noticeboard/internal/auth"
	"noticeboard/internal/constants"
	"noticeboard/internal/service"
	"noticeboard/pkg/logger"
)

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	adminService *service.AdminService
	jwtCfg       config.JWTConfig
	logger       *logger.Logger
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(adminService *service.AdminService, jwtCfg config.JWTConfig, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		jwtCfg:       jwtCfg,
		logger:       logger,
	}
}

// LoginRequest 登录请求结构体
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 用户名密码换取Bearer令牌
// @Tags 管理员
// @Accept json
// @Produce json
// @Param login body LoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	admin, err := h.adminService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrInvalidCredentials})
			return
		}
		h.logger.Error("管理员登录失败", "username", req.Username, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	ttl := time.Duration(h.jwtCfg.ExpireHours) * time.Hour
	token, _, err := auth.GenerateToken(h.jwtCfg.Secret, admin, ttl)
	if err != nil {
		h.logger.Error("签发令牌失败", "username", admin.Username, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessLogin,
		"data": gin.H{
			"access_token":       token,
			"token_type":         "bearer",
			"expires_in_seconds": int64(ttl.Seconds()),
			"username":           admin.Username,
		},
	})
}

// Me 获取当前登录管理员信息
// @Summary 获取当前登录管理员信息
// @Tags 管理员
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{"username": c.GetString("admin_username")},
	})
}
