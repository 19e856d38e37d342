package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/constants"
	"noticeboard/internal/model"
	"noticeboard/internal/service"
	"noticeboard/pkg/logger"
)

// NoticeHandler 公告公开接口处理器
type NoticeHandler struct {
	noticeService *service.NoticeService
	logger        *logger.Logger
}

// NewNoticeHandler 创建公告处理器实例
func NewNoticeHandler(noticeService *service.NoticeService, logger *logger.Logger) *NoticeHandler {
	return &NoticeHandler{
		noticeService: noticeService,
		logger:        logger,
	}
}

// GetNotices 获取公开公告列表
// @Summary 获取公开公告列表
// @Description 只返回已发布且到达发布时间的公告，支持分类过滤
// @Tags 公告
// @Accept json
// @Produce json
// @Param publish_to query string false "分类过滤"
// @Param limit query int false "条数，默认100，最大500"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices [get]
func (h *NoticeHandler) GetNotices(c *gin.Context) {
	var category *model.Category
	if raw := c.Query("publish_to"); raw != "" {
		cat := model.Category(raw)
		if !cat.Valid() {
			c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidCategory})
			return
		}
		category = &cat
	}

	// 条数限制在[1,500]，默认100
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	ctx := c.Request.Context()
	notices, err := h.noticeService.GetPublicNotices(ctx, category, limit)
	if err != nil {
		h.logger.Error("获取公开公告列表失败", "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": notices,
	})
}

// GetNoticeByID 获取单条公开公告
// @Summary 获取单条公开公告
// @Description 未发布或未到发布时间的公告视同不存在
// @Tags 公告
// @Accept json
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices/{id} [get]
func (h *NoticeHandler) GetNoticeByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	notice, err := h.noticeService.GetPublicNoticeByID(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNoticeNotFound) {
			c.JSON(http.StatusOK, gin.H{"code": 404, "msg": constants.ErrNoticeNotFound})
			return
		}
		h.logger.Error("获取公告详情失败", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": notice,
	})
}

// GetCategories 获取公告分类列表
// @Summary 获取公告分类列表
// @Description 固定的四个分类及展示名称
// @Tags 公告
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices/categories [get]
func (h *NoticeHandler) GetCategories(c *gin.Context) {
	items := make([]model.CategoryItem, 0, 4)
	for _, category := range model.AllCategories() {
		items = append(items, model.CategoryItem{
			Value: category,
			Label: model.CategoryLabels[category],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": items,
	})
}
