package middleware

import (
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gin-gonic/gin"
)

// TokenVerifier 校验 JWT，返回用户 ID
type TokenVerifier func(r *http.Request, token string) (string, error)

// ClerkVerifier 使用 Clerk SDK 校验 Token
// SDK 会自动拉取公钥并验证签名、过期时间
func ClerkVerifier(r *http.Request, token string) (string, error) {
	claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClerkAuth 会话接口使用的 Clerk 认证中间件
func ClerkAuth() gin.HandlerFunc {
	return BearerAuth(ClerkVerifier)
}

// BearerAuth 从 Authorization 头取 Bearer Token 并校验，用户 ID 写入上下文
func BearerAuth(verify TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少 Authorization 头"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := verify(c.Request, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token 无效", "details": err.Error()})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}
