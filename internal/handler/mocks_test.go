package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/vidtube/internal/auth"
	"github.com/hitoshi/vidtube/internal/media"
	"github.com/hitoshi/vidtube/internal/middleware"
	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/user"
)

// --- モック ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
	logoutFn         func(ctx context.Context, userID string) error
	refreshFn        func(ctx context.Context, refreshToken string) (*auth.Session, error)
	changePasswordFn func(ctx context.Context, userID, oldPassword, newPassword string) error
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error) {
	return m.loginFn(ctx, in)
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID)
	}
	return nil
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return m.refreshFn(ctx, refreshToken)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, oldPassword, newPassword)
	}
	return nil
}

type mockUserService struct {
	registerFn         func(ctx context.Context, in user.RegisterInput) (*model.User, error)
	currentUserFn      func(ctx context.Context, userID string) (*model.User, error)
	updateAccountFn    func(ctx context.Context, userID, fullName, email string) (*model.User, error)
	updateAvatarFn     func(ctx context.Context, userID string, f *media.File) (*model.User, error)
	updateCoverImageFn func(ctx context.Context, userID string, f *media.File) (*model.User, error)
	recordWatchFn      func(ctx context.Context, userID, videoID string) error
}

func (m *mockUserService) Register(ctx context.Context, in user.RegisterInput) (*model.User, error) {
	return m.registerFn(ctx, in)
}

func (m *mockUserService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return m.currentUserFn(ctx, userID)
}

func (m *mockUserService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*model.User, error) {
	return m.updateAccountFn(ctx, userID, fullName, email)
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*model.User, error) {
	return m.updateAvatarFn(ctx, userID, f)
}

func (m *mockUserService) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*model.User, error) {
	return m.updateCoverImageFn(ctx, userID, f)
}

func (m *mockUserService) RecordWatch(ctx context.Context, userID, videoID string) error {
	return m.recordWatchFn(ctx, userID, videoID)
}

type mockSubscriptionService struct {
	subscribeFn   func(ctx context.Context, subscriberID, channelID string) error
	unsubscribeFn func(ctx context.Context, subscriberID, channelID string) error
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	return m.subscribeFn(ctx, subscriberID, channelID)
}

func (m *mockSubscriptionService) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	return m.unsubscribeFn(ctx, subscriberID, channelID)
}

type mockProfileBuilder struct {
	buildFn func(ctx context.Context, handle, viewerID string) (*model.ChannelProfile, error)
}

func (m *mockProfileBuilder) Build(ctx context.Context, handle, viewerID string) (*model.ChannelProfile, error) {
	return m.buildFn(ctx, handle, viewerID)
}

type mockHistoryBuilder struct {
	buildFn func(ctx context.Context, viewerID string) ([]model.VideoWithOwner, error)
}

func (m *mockHistoryBuilder) Build(ctx context.Context, viewerID string) ([]model.VideoWithOwner, error) {
	return m.buildFn(ctx, viewerID)
}

type recordingMetrics struct {
	logins        []bool
	refreshes     []bool
	registrations int
	readModels    []string
}

func (m *recordingMetrics) RecordLogin(success bool) { m.logins = append(m.logins, success) }
func (m *recordingMetrics) RecordRegistration()      { m.registrations++ }
func (m *recordingMetrics) RecordTokenRefresh(success bool) {
	m.refreshes = append(m.refreshes, success)
}
func (m *recordingMetrics) RecordUpload(string, bool) {}
func (m *recordingMetrics) RecordHTTPStatus(int)      {}
func (m *recordingMetrics) ObserveReadModel(name string, _ time.Duration, _ error) {
	m.readModels = append(m.readModels, name)
}

// --- ヘルパー ---

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// decodeEnvelope は成功レスポンスのエンベロープをデコードし、dataをvへ展開する。
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v any) apiResponse {
	t.Helper()
	var raw struct {
		StatusCode int             `json:"statusCode"`
		Data       json.RawMessage `json:"data"`
		Message    string          `json:"message"`
		Success    bool            `json:"success"`
	}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(raw.Data, v); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return apiResponse{StatusCode: raw.StatusCode, Message: raw.Message, Success: raw.Success}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func sampleUser() *model.User {
	return &model.User{
		ID:               "11111111-1111-1111-1111-111111111111",
		Username:         "alice",
		Email:            "alice@example.com",
		FullName:         "Alice",
		PasswordHash:     "secret-hash",
		AvatarURL:        "https://cdn.example.com/avatars/a.png",
		RefreshTokenHash: "refresh-hash",
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
