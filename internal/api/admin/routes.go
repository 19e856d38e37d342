package admin

import (
	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/handler"
)

// RegisterAdminRoutes 注册管理后台路由，调用方需先挂好认证中间件
func RegisterAdminRoutes(group *gin.RouterGroup, authHandler *handler.AuthHandler, noticeHandler *NoticeAdminHandler, credentialHandler *CredentialAdminHandler) {
	group.GET("/me", authHandler.Me)

	group.GET("/notices", noticeHandler.GetNotices)
	group.POST("/notices", noticeHandler.CreateNotice)
	group.GET("/notices/:id", noticeHandler.GetNoticeByID)
	group.PATCH("/notices/:id", noticeHandler.UpdateNotice)
	group.DELETE("/notices/:id", noticeHandler.DeleteNotice)

	group.POST("/credentials/rehash", credentialHandler.Rehash)
}
