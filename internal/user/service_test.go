package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/vidtube/internal/media"
	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/repository"
	"github.com/hitoshi/vidtube/internal/security"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn              func(ctx context.Context, id string) (*model.User, error)
	findByUsernameOrEmailFn func(ctx context.Context, username, email string) (*model.User, error)
	createFn                func(ctx context.Context, user *model.User) error
	updateAccountDetailsFn  func(ctx context.Context, id, fullName, email string) (*model.User, error)
	updateAvatarFn          func(ctx context.Context, id, url string) (*model.User, error)
	updateCoverImageFn      func(ctx context.Context, id, url string) (*model.User, error)
	prependWatchHistoryFn   func(ctx context.Context, id, videoID string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	if m.findByUsernameOrEmailFn != nil {
		return m.findByUsernameOrEmailFn(ctx, username, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateRefreshTokenHash(_ context.Context, _, _ string) error { return nil }

func (m *mockUserRepo) UpdatePasswordHash(_ context.Context, _, _ string) error { return nil }

func (m *mockUserRepo) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*model.User, error) {
	if m.updateAccountDetailsFn != nil {
		return m.updateAccountDetailsFn(ctx, id, fullName, email)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id, url string) (*model.User, error) {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, id, url)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateCoverImage(ctx context.Context, id, url string) (*model.User, error) {
	if m.updateCoverImageFn != nil {
		return m.updateCoverImageFn(ctx, id, url)
	}
	return nil, nil
}

func (m *mockUserRepo) PrependWatchHistory(ctx context.Context, id, videoID string) error {
	if m.prependWatchHistoryFn != nil {
		return m.prependWatchHistoryFn(ctx, id, videoID)
	}
	return nil
}

type mockVideoRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Video, error)
}

func (m *mockVideoRepo) FindByID(ctx context.Context, id string) (*model.Video, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Verify(h, p string) bool       { return h == "hashed:"+p }

type mockUploader struct {
	uploads []string
	err     error
}

func (m *mockUploader) Upload(_ context.Context, kind string, _ media.File) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, kind)
	return "https://cdn.example.com/" + kind + "/x.png", nil
}

func newTestService(repo *mockUserRepo, videos *mockVideoRepo, up *mockUploader) *Service {
	if videos == nil {
		videos = &mockVideoRepo{}
	}
	if up == nil {
		up = &mockUploader{}
	}
	s := NewService(repo, videos, plainHasher{}, up, security.NewTextSanitizer())
	s.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func pngFile() *media.File {
	return &media.File{Body: strings.NewReader("png"), Size: 3, ContentType: "image/png"}
}

func validInput() RegisterInput {
	return RegisterInput{
		FullName: "Alice",
		Email:    "a@example.com",
		Username: "Alice",
		Password: "password123",
		Avatar:   pngFile(),
	}
}

// --- Register ---

func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, u *model.User) error {
			created = u
			return nil
		},
	}
	up := &mockUploader{}
	svc := newTestService(repo, nil, up)

	in := validInput()
	in.CoverImage = pngFile()
	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != user {
		t.Error("expected created user to be returned")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want lowercase", user.Username)
	}
	if user.PasswordHash != "hashed:password123" {
		t.Errorf("PasswordHash = %q", user.PasswordHash)
	}
	if user.AvatarURL == "" || user.CoverImageURL == "" {
		t.Errorf("expected both image URLs, got %+v", user)
	}
	if len(up.uploads) != 2 || up.uploads[0] != media.KindAvatar || up.uploads[1] != media.KindCoverImage {
		t.Errorf("uploads = %v", up.uploads)
	}
}

func TestService_Register_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *RegisterInput)
		wantCode string
	}{
		{"空白のみの氏名", func(in *RegisterInput) { in.FullName = "   " }, model.ErrCodeMissingFields},
		{"メールなし", func(in *RegisterInput) { in.Email = "" }, model.ErrCodeMissingFields},
		{"ユーザー名なし", func(in *RegisterInput) { in.Username = " " }, model.ErrCodeMissingFields},
		{"短いパスワード", func(in *RegisterInput) { in.Password = "short" }, model.ErrCodeWeakPassword},
		{"アバターなし", func(in *RegisterInput) { in.Avatar = nil }, model.ErrCodeAvatarRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUploader{}
			svc := newTestService(&mockUserRepo{}, nil, up)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if len(up.uploads) != 0 {
				t.Error("no upload should happen on validation failure")
			}
		})
	}
}

func TestService_Register_Conflict(t *testing.T) {
	up := &mockUploader{}
	repo := &mockUserRepo{
		findByUsernameOrEmailFn: func(_ context.Context, _, _ string) (*model.User, error) {
			return &model.User{ID: "other"}, nil
		},
	}
	svc := newTestService(repo, nil, up)

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
	if len(up.uploads) != 0 {
		t.Error("no upload should happen when the user exists")
	}
}

func TestService_Register_RaceOnCreate(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error { return repository.ErrDuplicateEntry },
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestService_Register_UploadFailure(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, &mockUploader{err: model.NewUploadFailedError()})

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("err = %v, want upstream", err)
	}
}

// --- UpdateAccountDetails ---

func TestService_UpdateAccountDetails(t *testing.T) {
	var gotName string
	repo := &mockUserRepo{
		updateAccountDetailsFn: func(_ context.Context, id, fullName, email string) (*model.User, error) {
			gotName = fullName
			return &model.User{ID: id, FullName: fullName, Email: email}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	user, err := svc.UpdateAccountDetails(context.Background(), "user-1", "<b>Alice</b> B", "new@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "Alice B" || user.Email != "new@example.com" {
		t.Errorf("unexpected update: name=%q user=%+v", gotName, user)
	}

	if _, err := svc.UpdateAccountDetails(context.Background(), "user-1", "", "x@example.com"); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("err = %v, want invalid argument", err)
	}
}

func TestService_UpdateAccountDetails_EmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		updateAccountDetailsFn: func(_ context.Context, _, _, _ string) (*model.User, error) {
			return nil, repository.ErrDuplicateEntry
		},
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.UpdateAccountDetails(context.Background(), "user-1", "Alice", "taken@example.com")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("err = %v, want EMAIL_TAKEN", err)
	}
}

// --- 画像更新 ---

func TestService_UpdateAvatar(t *testing.T) {
	var gotURL string
	repo := &mockUserRepo{
		updateAvatarFn: func(_ context.Context, id, url string) (*model.User, error) {
			gotURL = url
			return &model.User{ID: id, AvatarURL: url}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	user, err := svc.UpdateAvatar(context.Background(), "user-1", pngFile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.AvatarURL != gotURL || !strings.Contains(gotURL, media.KindAvatar) {
		t.Errorf("AvatarURL = %q", user.AvatarURL)
	}

	if _, err := svc.UpdateAvatar(context.Background(), "user-1", nil); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("nil file err = %v, want invalid argument", err)
	}
}

func TestService_UpdateCoverImage_UserGone(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, nil)

	_, err := svc.UpdateCoverImage(context.Background(), "user-1", pngFile())
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

// --- RecordWatch ---

func TestService_RecordWatch(t *testing.T) {
	const videoID = "33333333-3333-3333-3333-333333333333"
	var prepended string
	repo := &mockUserRepo{
		prependWatchHistoryFn: func(_ context.Context, _, id string) error {
			prepended = id
			return nil
		},
	}
	videos := &mockVideoRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Video, error) {
			if id == videoID {
				return &model.Video{ID: id}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo, videos, nil)

	if err := svc.RecordWatch(context.Background(), "user-1", videoID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prepended != videoID {
		t.Errorf("prepended = %q", prepended)
	}

	for _, id := range []string{"not-a-uuid", "44444444-4444-4444-4444-444444444444"} {
		if err := svc.RecordWatch(context.Background(), "user-1", id); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("RecordWatch(%q) err = %v, want not found", id, err)
		}
	}
}

func TestService_CurrentUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: id}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	if u, err := svc.CurrentUser(context.Background(), "user-1"); err != nil || u.ID != "user-1" {
		t.Errorf("CurrentUser() = %+v, %v", u, err)
	}
	if _, err := svc.CurrentUser(context.Background(), "ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
