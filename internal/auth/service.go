// Package auth はパスワード認証とJWTによるトークン管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/repository"
)

// LoginInput はログイン要求を表す。UsernameとEmailのどちらか一方があればよい。
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Session はログインまたはトークン更新の結果。
type Session struct {
	User   *model.User
	Tokens *TokenPair
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   *TokenManager
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// Login は資格情報を検証し、トークンペアを発行する。
// 発行したリフレッシュトークンのハッシュを保存し、以前のリフレッシュトークンは無効になる。
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return nil, model.NewMissingIdentifierError()
	}
	if in.Password == "" {
		return nil, model.NewMissingFieldsError("password")
	}

	user, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		slog.Info("login rejected", slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

// Logout は保存済みのリフレッシュトークンを破棄する。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, ""); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Refresh はリフレッシュトークンを検証して新しいトークンペアを発行する。
// 保存済みハッシュと一致しないトークンは、署名が正しくても拒否する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, model.NewUnauthorizedError()
	}

	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, model.NewInvalidRefreshTokenError()
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidRefreshTokenError()
	}
	if !refreshTokenMatches(user.RefreshTokenHash, refreshToken) {
		slog.Warn("refresh token reuse detected", slog.String("user_id", user.ID))
		return nil, model.NewInvalidRefreshTokenError()
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("access token refreshed", slog.String("user_id", user.ID))
	return session, nil
}

// ChangePassword は現在のパスワードを確認したうえでパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return model.NewMissingFieldsError("oldPassword", "newPassword")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return model.NewInvalidCredentialsError()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// Authenticate はアクセストークンを検証してユーザーIDを返す。
func (s *Service) Authenticate(accessToken string) (string, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return "", model.NewUnauthorizedError()
		}
		return "", err
	}
	return claims.UserID, nil
}

// issue はトークンペアを発行し、リフレッシュトークンのハッシュを保存する。
func (s *Service) issue(ctx context.Context, user *model.User) (*Session, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	hash := HashRefreshToken(pair.RefreshToken)
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	user.RefreshTokenHash = hash
	return &Session{User: user, Tokens: pair}, nil
}
