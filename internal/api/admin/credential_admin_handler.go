package admin

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/audit"
	"noticeboard/internal/constants"
	"noticeboard/pkg/logger"
)

// CredentialAdminHandler 凭据管理处理器
type CredentialAdminHandler struct {
	auditor *audit.Auditor
	logger  *logger.Logger
}

// NewCredentialAdminHandler 创建凭据管理处理器实例
func NewCredentialAdminHandler(auditor *audit.Auditor, logger *logger.Logger) *CredentialAdminHandler {
	return &CredentialAdminHandler{auditor: auditor, logger: logger}
}

// RehashRequest 强制重置密码哈希请求
type RehashRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Rehash 按已知明文强制重置某账号的密码哈希
// @Summary 强制重置密码哈希
// @Description 运维已知账号真实密码时，用当前引擎重新生成哈希
// @Tags 管理员
// @Accept json
// @Produce json
// @Param rehash body RehashRequest true "账号与明文密码"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/credentials/rehash [post]
func (h *CredentialAdminHandler) Rehash(c *gin.Context) {
	var req RehashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	if err := h.auditor.ForceRehash(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusOK, gin.H{"code": 404, "msg": constants.ErrAdminNotFound})
			return
		}
		h.logger.Error("强制重置密码哈希失败", "username", req.Username, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessUpdate,
	})
}
