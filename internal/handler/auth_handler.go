package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/vidtube/internal/auth"
	"github.com/hitoshi/vidtube/internal/metrics"
	"github.com/hitoshi/vidtube/internal/middleware"
	"github.com/hitoshi/vidtube/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	AccessTTL    time.Duration // accessToken Cookieの有効期間
	RefreshTTL   time.Duration // refreshToken Cookieの有効期間
}

// AuthHandler はログイン・ログアウト・トークン更新・パスワード変更のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, mc metrics.MetricsCollector) *AuthHandler {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: mc,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// sessionResponse はログインとトークン更新のレスポンス。
// Cookieを扱えないクライアント向けにトークンも本文に含める。
type sessionResponse struct {
	User         *model.PublicUser `json:"user,omitempty"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// Login は資格情報を検証し、トークンをCookieと本文で返す。
// POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), auth.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	h.metrics.RecordLogin(err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setTokenCookies(w, session.Tokens)
	user := session.User.Public()
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         &user,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout は保存済みリフレッシュトークンを破棄し、認証Cookieを削除する。
// POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshToken はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// トークンはrefreshToken Cookie、なければJSONボディから読み取る。
// POST /api/v1/users/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
			return
		}
		token = req.RefreshToken
	}

	session, err := h.service.Refresh(r.Context(), token)
	h.metrics.RecordTokenRefresh(err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setTokenCookies(w, session.Tokens)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword は現在のパスワードを確認してパスワードを変更する。
// POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, pair.AccessToken, int(h.config.AccessTTL.Seconds())))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(h.config.RefreshTTL.Seconds())))
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, "", -1))
}

// cookie は認証Cookieを生成する。JavaScriptから読めないようHttpOnlyにする。
func (h *AuthHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// decodeOptionalJSON は空ボディを許容してJSONをデコードする。
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
