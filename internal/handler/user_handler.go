package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vidtube/internal/media"
	"github.com/hitoshi/vidtube/internal/metrics"
	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/user"
)

// DefaultMaxUploadSize はmultipartリクエストの既定の上限（10MiB）。
const DefaultMaxUploadSize int64 = 10 << 20

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, in user.RegisterInput) (*model.User, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*model.User, error)
	UpdateAvatar(ctx context.Context, userID string, f *media.File) (*model.User, error)
	UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*model.User, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
}

// UserHandler はユーザー登録とプロフィール管理のHTTPハンドラー。
type UserHandler struct {
	service       UserServiceInterface
	metrics       metrics.MetricsCollector
	maxUploadSize int64
}

// NewUserHandler はUserHandlerを生成する。maxUploadSizeが0以下なら既定値を使う。
func NewUserHandler(service UserServiceInterface, mc metrics.MetricsCollector, maxUploadSize int64) *UserHandler {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &UserHandler{
		service:       service,
		metrics:       mc,
		maxUploadSize: maxUploadSize,
	}
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Register はmultipartフォームからユーザーを登録する。
// POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	avatar, closeAvatar, err := formImage(r, "avatar")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer closeAvatar()
	cover, closeCover, err := formImage(r, "coverImage")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer closeCover()

	created, err := h.service.Register(r.Context(), user.RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordRegistration()
	writeJSON(w, http.StatusCreated, created.Public(), "User registered successfully")
}

// CurrentUser は認証済みユーザーのプロフィールを返す。
// GET /api/v1/users/current-user
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u.Public(), "Current user fetched successfully")
}

// UpdateAccount は表示名とメールアドレスを更新する。
// PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.UpdateAccountDetails(r.Context(), userID, req.FullName, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u.Public(), "Account details updated successfully")
}

// UpdateAvatar はアバター画像を差し替える。
// PATCH /api/v1/users/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.service.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage はカバー画像を差し替える。
// PATCH /api/v1/users/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.service.UpdateCoverImage, "Cover image updated successfully")
}

func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, f *media.File) (*model.User, error),
	message string,
) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, closeFile, err := formImage(r, field)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer closeFile()

	u, err := update(r.Context(), userID, f)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u.Public(), message)
}

// RecordWatch は動画を視聴履歴に追加する。
// POST /api/v1/users/history/{videoId}
func (h *UserHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if err := h.service.RecordWatch(r.Context(), userID, videoID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "Watch history updated")
}

// parseMultipart はサイズ上限付きでmultipartフォームを解析する。失敗時は400を書き込みfalseを返す。
func (h *UserHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		reason := "multipart/form-data形式で送信してください。"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reason = "アップロードサイズが上限を超えています。"
		}
		slog.Debug("failed to parse multipart form", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(reason))
		return false
	}
	return true
}

// formImage はフォームの画像ファイルを取り出す。ファイルがなければnilを返す。
// 返されるクローズ関数は常に呼び出してよい。
func formImage(r *http.Request, field string) (*media.File, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, model.NewInvalidRequestError(field + "を読み取れません。")
	}

	contentType, body, err := detectContentType(file, header)
	if err != nil {
		file.Close()
		return nil, func() {}, model.NewInvalidRequestError(field + "を読み取れません。")
	}

	return &media.File{
		Body:        body,
		Size:        header.Size,
		ContentType: contentType,
	}, func() { file.Close() }, nil
}

// detectContentType はパートのContent-Typeを返す。指定がない場合は先頭バイトから判定する。
// 判定後は読み取り位置を先頭に戻す。S3へのアップロードはシーク可能な本文を前提とする。
func detectContentType(file multipart.File, header *multipart.FileHeader) (string, io.Reader, error) {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct, file, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", nil, err
	}
	return http.DetectContentType(head[:n]), file, nil
}
