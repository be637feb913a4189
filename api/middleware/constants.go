package middleware

// 上下文中使用的 key

const (
	// ContextKeyUserID 认证通过后写入的 Clerk 用户 ID
	ContextKeyUserID = "userID"
)
