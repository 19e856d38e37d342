package admin

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/constants"
	"noticeboard/internal/model"
	"noticeboard/internal/service"
	"noticeboard/pkg/logger"
	"noticeboard/pkg/storage"
)

// NoticeAdminHandler 公告管理处理器
type NoticeAdminHandler struct {
	noticeService *service.NoticeService
	storage       *storage.Storage
	logger        *logger.Logger
}

// NewNoticeAdminHandler 创建公告管理处理器实例
func NewNoticeAdminHandler(noticeService *service.NoticeService, storage *storage.Storage, logger *logger.Logger) *NoticeAdminHandler {
	return &NoticeAdminHandler{
		noticeService: noticeService,
		storage:       storage,
		logger:        logger,
	}
}

// GetNotices 获取公告列表（管理员）
// @Summary 获取公告列表（管理员）
// @Description 返回全部公告，含未发布和定时未到的，不限条数
// @Tags 公告管理
// @Accept json
// @Produce json
// @Param publish_to query string false "分类过滤"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/notices [get]
func (h *NoticeAdminHandler) GetNotices(c *gin.Context) {
	var category *model.Category
	if raw := c.Query("publish_to"); raw != "" {
		cat := model.Category(raw)
		if !cat.Valid() {
			c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidCategory})
			return
		}
		category = &cat
	}

	ctx := c.Request.Context()
	notices, err := h.noticeService.GetAdminNotices(ctx, category)
	if err != nil {
		h.logger.Error("获取管理员公告列表失败", "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessGet,
		"data": notices,
	})
}

// GetNoticeByID 获取单条公告（管理员）
// @Summary 获取单条公告（管理员）
// @Tags 公告管理
// @Accept json
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/notices/{id} [get]
func (h *NoticeAdminHandler) GetNoticeByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	notice, err := h.noticeService.GetNoticeByID(ctx, id)
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

// CreateNotice 创建公告
// @Summary 创建公告
// @Description 管理员创建公告，multipart表单，可带附件
// @Tags 公告管理
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/notices [post]
func (h *NoticeAdminHandler) CreateNotice(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrTitleEmpty})
		return
	}

	publishTo := model.Category(c.PostForm("publish_to"))
	if !publishTo.Valid() {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidCategory})
		return
	}

	publishDate, err := parseOptionalDatetime(c.PostForm("publish_date"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidDate})
		return
	}
	if publishDate == nil {
		now := time.Now().UTC()
		publishDate = &now
	}

	fileURL := normalizeOptionalText(c.PostForm("file_url"))
	fileName := fileNameFromURL(fileURL)

	ctx := c.Request.Context()
	if fh, err := c.FormFile("file"); err == nil && fh != nil {
		uploadedURL, uploadedName, err := h.storage.SaveUpload(ctx, fh)
		if err != nil {
			h.logger.Error("附件上传失败", "file", fh.Filename, "error", err)
			c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrUploadFailed})
			return
		}
		fileURL = &uploadedURL
		fileName = &uploadedName
	}

	adminID := c.GetInt64("admin_id")
	notice := &model.Notice{
		Title:       title,
		Description: strings.TrimSpace(c.PostForm("description")),
		PublishTo:   publishTo,
		Link:        normalizeOptionalText(c.PostForm("link")),
		FileURL:     fileURL,
		FileName:    fileName,
		IsActive:    parseBoolDefault(c.PostForm("published"), true),
		Pinned:      parseBoolDefault(c.PostForm("pinned"), false),
		PublishDate: publishDate,
		CreatedByID: &adminID,
	}

	if err := h.noticeService.CreateNotice(ctx, notice); err != nil {
		h.logger.Error("创建公告失败", "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessCreate,
		"data": notice,
	})
}

// UpdateNotice 更新公告
// @Summary 更新公告
// @Description 管理员按字段更新公告，multipart表单，未提交的字段不变
// @Tags 公告管理
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/notices/{id} [patch]
func (h *NoticeAdminHandler) UpdateNotice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	notice, err := h.noticeService.GetNoticeByID(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNoticeNotFound) {
			c.JSON(http.StatusOK, gin.H{"code": 404, "msg": constants.ErrNoticeNotFound})
			return
		}
		h.logger.Error("获取待更新公告失败", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	if raw, ok := c.GetPostForm("title"); ok {
		title := strings.TrimSpace(raw)
		if title == "" {
			c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrTitleEmpty})
			return
		}
		notice.Title = title
	}
	if raw, ok := c.GetPostForm("description"); ok {
		notice.Description = strings.TrimSpace(raw)
	}
	if raw, ok := c.GetPostForm("publish_to"); ok {
		publishTo := model.Category(raw)
		if !publishTo.Valid() {
			c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidCategory})
			return
		}
		notice.PublishTo = publishTo
	}
	if raw, ok := c.GetPostForm("link"); ok {
		notice.Link = normalizeOptionalText(raw)
	}
	if raw, ok := c.GetPostForm("pinned"); ok {
		notice.Pinned = parseBoolDefault(raw, notice.Pinned)
	}
	if raw, ok := c.GetPostForm("published"); ok {
		notice.IsActive = parseBoolDefault(raw, notice.IsActive)
	}
	if raw, ok := c.GetPostForm("publish_date"); ok {
		publishDate, err := parseOptionalDatetime(raw)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidDate})
			return
		}
		if publishDate == nil {
			now := time.Now().UTC()
			publishDate = &now
		}
		notice.PublishDate = publishDate
	}

	// 附件处理：新附件替换旧附件，remove_file清空，file_url改指向外部文件
	if fh, err := c.FormFile("file"); err == nil && fh != nil {
		if notice.FileURL != nil {
			h.noticeService.CleanupAttachment(*notice.FileURL)
		}
		uploadedURL, uploadedName, err := h.storage.SaveUpload(ctx, fh)
		if err != nil {
			h.logger.Error("附件上传失败", "file", fh.Filename, "error", err)
			c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrUploadFailed})
			return
		}
		notice.FileURL = &uploadedURL
		notice.FileName = &uploadedName
	} else if parseBoolDefault(c.PostForm("remove_file"), false) {
		if notice.FileURL != nil {
			h.noticeService.CleanupAttachment(*notice.FileURL)
		}
		notice.FileURL = nil
		notice.FileName = nil
	} else if raw, ok := c.GetPostForm("file_url"); ok {
		newURL := normalizeOptionalText(raw)
		if notice.FileURL != nil && (newURL == nil || *newURL != *notice.FileURL) {
			h.noticeService.CleanupAttachment(*notice.FileURL)
		}
		notice.FileURL = newURL
		notice.FileName = fileNameFromURL(newURL)
	}

	if err := h.noticeService.UpdateNotice(ctx, notice); err != nil {
		h.logger.Error("更新公告失败", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessUpdate,
		"data": notice,
	})
}

// DeleteNotice 删除公告
// @Summary 删除公告
// @Description 管理员删除公告，托管附件尽力清理
// @Tags 公告管理
// @Accept json
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/admin/notices/{id} [delete]
func (h *NoticeAdminHandler) DeleteNotice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return
	}

	ctx := c.Request.Context()
	if err := h.noticeService.DeleteNotice(ctx, id); err != nil {
		if errors.Is(err, service.ErrNoticeNotFound) {
			c.JSON(http.StatusOK, gin.H{"code": 404, "msg": constants.ErrNoticeNotFound})
			return
		}
		h.logger.Error("删除公告失败", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  constants.SuccessDelete,
	})
}

// parseOptionalDatetime 解析可选的ISO-8601时间，空串返回nil，统一转UTC
func parseOptionalDatetime(value string) (*time.Time, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return nil, nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, errors.New("invalid datetime format")
}

// normalizeOptionalText 去掉首尾空白，空串归一为nil
func normalizeOptionalText(value string) *string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// fileNameFromURL 从URL提取文件名
func fileNameFromURL(fileURL *string) *string {
	if fileURL == nil {
		return nil
	}

	raw := *fileURL
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		raw = parsed.Path
	}
	name := path.Base(raw)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" || name == "." || name == "/" {
		return nil
	}
	return &name
}

func parseBoolDefault(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}
