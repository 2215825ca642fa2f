package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/vidtube/internal/model"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := NewTokenManager("a", "r", time.Minute, time.Hour)
	user := &model.User{ID: "user-1", Email: "a@example.com", Username: "alice", FullName: "Alice"}

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	access, err := m.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if access.UserID != "user-1" || access.Username != "alice" || access.FullName != "Alice" {
		t.Errorf("unexpected claims: %+v", access)
	}

	refresh, err := m.ValidateRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if refresh.UserID != "user-1" {
		t.Errorf("refresh UserID = %q", refresh.UserID)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("a", "r", time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return issuedAt }

	pair, err := m.Issue(&model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	// リフレッシュトークンはまだ有効
	if _, err := m.ValidateRefresh(pair.RefreshToken); err != nil {
		t.Errorf("refresh should still be valid: %v", err)
	}
}

func TestTokenManager_RejectsOtherSigningMethod(t *testing.T) {
	m := NewTokenManager("a", "r", time.Minute, time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &AccessClaims{UserID: "user-1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.ValidateAccess(s); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("a", "r", time.Minute, time.Hour)
	verifier := NewTokenManager("other", "r", time.Minute, time.Hour)

	pair, err := issuer.Issue(&model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.ValidateAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshTokenMatches(t *testing.T) {
	hash := HashRefreshToken("token")
	if !refreshTokenMatches(hash, "token") {
		t.Error("expected match")
	}
	if refreshTokenMatches(hash, "other") {
		t.Error("expected mismatch")
	}
	if refreshTokenMatches("", "token") {
		t.Error("empty stored hash must never match")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"short", true},
		{"12345678", false},
		{"パスワード八文字", false},
		{strings.Repeat("a", 73), true},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) err = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
