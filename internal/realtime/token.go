package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// tokenRefreshMargin 令牌剩余有效期小于该值时重新获取
const tokenRefreshMargin = 30 * time.Second

var errEmptyToken = errors.New("token endpoint returned no securetoken")

// FetchToken 用 API key 换取短期 securetoken
// GET {tokenUrl}  Authorization: Bearer {apiKey} -> {securetoken}
func FetchToken(ctx context.Context, httpClient *http.Client, tokenURL, apiKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	var payload struct {
		SecureToken string `json:"securetoken"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.SecureToken == "" {
		return "", errEmptyToken
	}
	return payload.SecureToken, nil
}

// tokenExpiry 读取令牌的 exp（不校验签名，只用于决定是否复用）
// 非 JWT 或没有 exp 时返回 false
func tokenExpiry(token string) (time.Time, bool) {
	claims := gojwt.MapClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenReusable 令牌是否还可以用于重连
func tokenReusable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return exp.After(now.Add(tokenRefreshMargin))
}
