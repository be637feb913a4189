package errors

import "errors"

// ================= 业务领域错误定义 =================
// 所有业务逻辑相关的错误统一在此定义，避免跨包重复定义

// ErrPageNotFound 合并后仍然无法得到可渲染页面
var ErrPageNotFound = errors.New("page not found")

// ErrCommercePageNotFound 商城后端返回 404
// 对 CMS 驱动页面来说这是预期内的缺失，用于区分两类页面，不是错误
var ErrCommercePageNotFound = errors.New("commerce page not found")

// ErrCaasConfigMissing 站点缺少 CaaS 配置或必填字段
var ErrCaasConfigMissing = errors.New("caas configuration missing")

// ErrSiteNotConfigured 站点不在桥接配置中
var ErrSiteNotConfigured = errors.New("site not configured")

// ErrSessionNotFound 预览会话不存在
var ErrSessionNotFound = errors.New("preview session not found in database")

// ErrSessionAlreadyExists 预览会话已存在
var ErrSessionAlreadyExists = errors.New("preview session already exists")

// ErrUnauthorized 无权限操作
var ErrUnauthorized = errors.New("unauthorized")

// ErrOptimisticLock 乐观锁冲突错误
// 当数据库中的版本与期望版本不匹配时返回此错误
var ErrOptimisticLock = errors.New("optimistic lock error: version mismatch, please refresh and retry")

// ErrRoomClosing 房间正在关闭，客户端需要重试
var ErrRoomClosing = errors.New("room is closing, please retry")

// ErrNoEditorConnected 会话房间中没有可执行 SDK 调用的编辑器连接
var ErrNoEditorConnected = errors.New("no editor connected")
