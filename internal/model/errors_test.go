package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_UnwrapKind(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		kind error
	}{
		{"空ハンドル", NewInvalidHandleError(), ErrInvalidArgument},
		{"チャンネル未検出", NewChannelNotFoundError("alice"), ErrNotFound},
		{"ユーザー重複", NewUserExistsError(), ErrConflict},
		{"認証失敗", NewInvalidCredentialsError(), ErrUnauthorized},
		{"アップロード失敗", NewUploadFailedError(), ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.kind)
			}
			var apiErr *APIError
			if !errors.As(wrapped, &apiErr) || apiErr.Code != tt.err.Code {
				t.Errorf("errors.As did not return the APIError, got %v", apiErr)
			}
		})
	}
}

func TestAPIError_ErrorFormat(t *testing.T) {
	err := NewChannelNotFoundError("alice")
	want := "[CHANNEL_NOT_FOUND] チャンネルが見つかりません: alice"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUser_PublicOmitsSecrets(t *testing.T) {
	u := &User{
		ID:               "u1",
		Username:         "alice",
		PasswordHash:     "hash",
		RefreshTokenHash: "refresh",
	}
	p := u.Public()
	if p.ID != "u1" || p.Username != "alice" {
		t.Errorf("unexpected public user: %+v", p)
	}
	if p.WatchHistory == nil {
		t.Error("WatchHistory should be an empty slice, not nil")
	}
}
