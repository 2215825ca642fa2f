// Package user はユーザー登録とプロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/vidtube/internal/auth"
	"github.com/hitoshi/vidtube/internal/media"
	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/repository"
	"github.com/hitoshi/vidtube/internal/security"
)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File // 必須
	CoverImage *media.File // 任意
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	hasher    auth.PasswordHasher
	uploader  media.Uploader
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	hasher auth.PasswordHasher,
	uploader media.Uploader,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		hasher:    hasher,
		uploader:  uploader,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Register はユーザーを登録する。
// 入力検証とユーザー名・メールアドレスの重複確認を行ってから画像をアップロードする。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fullName := s.sanitizer.Sanitize(in.FullName)
	email := strings.TrimSpace(in.Email)
	username := strings.ToLower(strings.TrimSpace(in.Username))

	var missing []string
	if fullName == "" {
		missing = append(missing, "fullName")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if username == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(in.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Avatar == nil {
		return nil, model.NewAvatarRequiredError()
	}

	existing, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	avatarURL, err := s.uploader.Upload(ctx, media.KindAvatar, *in.Avatar)
	if err != nil {
		return nil, err
	}
	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.uploader.Upload(ctx, media.KindCoverImage, *in.CoverImage)
		if err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		WatchHistory:  []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// CurrentUser は指定IDのユーザーを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateAccountDetails は表示名とメールアドレスを更新する。
func (s *Service) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*model.User, error) {
	fullName = s.sanitizer.Sanitize(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, model.NewMissingFieldsError("fullName", "email")
	}

	user, err := s.userRepo.UpdateAccountDetails(ctx, userID, fullName, email)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		return nil, model.NewEmailTakenError()
	}
	if err != nil {
		return nil, fmt.Errorf("アカウント情報の更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("account details updated", slog.String("user_id", userID))
	return user, nil
}

// UpdateAvatar はアバター画像を差し替える。
func (s *Service) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*model.User, error) {
	if f == nil {
		return nil, model.NewAvatarRequiredError()
	}
	return s.replaceImage(ctx, userID, media.KindAvatar, *f, s.userRepo.UpdateAvatar)
}

// UpdateCoverImage はカバー画像を差し替える。
func (s *Service) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*model.User, error) {
	if f == nil {
		return nil, model.NewMissingFieldsError("coverImage")
	}
	return s.replaceImage(ctx, userID, media.KindCoverImage, *f, s.userRepo.UpdateCoverImage)
}

func (s *Service) replaceImage(
	ctx context.Context,
	userID, kind string,
	f media.File,
	update func(ctx context.Context, id, url string) (*model.User, error),
) (*model.User, error) {
	url, err := s.uploader.Upload(ctx, kind, f)
	if err != nil {
		return nil, err
	}

	user, err := update(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("画像の更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user image updated",
		slog.String("user_id", userID),
		slog.String("kind", kind),
	)
	return user, nil
}

// RecordWatch は動画を視聴履歴の先頭に追加する。動画が存在しない場合はVIDEO_NOT_FOUND。
func (s *Service) RecordWatch(ctx context.Context, userID, videoID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return model.NewVideoNotFoundError(videoID)
	}

	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("動画の取得に失敗しました: %w", err)
	}
	if video == nil {
		return model.NewVideoNotFoundError(videoID)
	}

	if err := s.userRepo.PrependWatchHistory(ctx, userID, videoID); err != nil {
		return fmt.Errorf("視聴履歴の更新に失敗しました: %w", err)
	}
	return nil
}
