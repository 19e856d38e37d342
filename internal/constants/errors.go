package constants

// 通用错误消息
const (
	// 认证相关错误
	ErrUnauthorized           = "未授权，请先登录"
	ErrInvalidToken           = "无效的Token"
	ErrInvalidCredentials     = "用户名或密码错误"
	ErrInsufficientPermission = "权限不足"

	// 公告相关错误
	ErrNoticeNotFound   = "公告不存在"
	ErrTitleEmpty       = "标题不能为空"
	ErrInvalidCategory  = "无效的公告分类"
	ErrInvalidDate      = "日期格式错误，请使用ISO-8601格式"
	ErrAdminNotFound    = "管理员不存在"
	ErrUploadFailed     = "附件上传失败"

	// 参数相关错误
	ErrInvalidParams = "参数错误"

	// 系统错误
	ErrInternalServer = "服务器内部错误"
)

// 成功消息
const (
	SuccessLogin  = "登录成功"
	SuccessCreate = "创建成功"
	SuccessUpdate = "更新成功"
	SuccessDelete = "删除成功"
	SuccessGet    = "获取成功"
)
