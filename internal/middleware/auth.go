// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/vidtube/internal/model"
)

// 認証用Cookieの名前
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// errNoUserID はコンテキストにユーザーIDが存在しない場合のエラー。
var errNoUserID = errors.New("user ID not found in context")

// TokenAuthenticator はアクセストークンを検証してユーザーIDを返す。
// auth.Serviceが実装する。
type TokenAuthenticator interface {
	Authenticate(accessToken string) (string, error)
}

// NewAuthMiddleware はアクセストークンを検証するミドルウェアを返す。
// トークンはaccessToken CookieまたはAuthorization: Bearerヘッダーから読み取る。
// 認証済みユーザーIDをリクエストコンテキストに注入し、未認証リクエストには401を返す。
func NewAuthMiddleware(authenticator TokenAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AccessTokenFromRequest(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			userID, err := authenticator.Authenticate(token)
			if err != nil {
				slog.Debug("access token rejected", slog.String("error", err.Error()))
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// AccessTokenFromRequest はリクエストからアクセストークンを取り出す。
// Authorizationヘッダーを優先し、なければCookieを使う。
func AccessTokenFromRequest(r *http.Request) string {
	if token, ok := bearerToken(r); ok {
		return token
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", errNoUserID
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// ログミドルウェアの内側で呼ばれた場合は、リクエストログにもユーザーIDを記録する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if rl := requestLogFromContext(ctx); rl != nil {
		rl.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
