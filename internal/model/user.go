// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（チャンネル）を表す。
type User struct {
	ID            string
	Username      string // 常に小文字で保存する
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string // 未設定の場合は空文字列
	// RefreshTokenHash は発行済みリフレッシュトークンのハッシュ。ログアウト後は空文字列。
	RefreshTokenHash string
	// WatchHistory は視聴した動画IDの一覧。新しい順で重複を許す。
	WatchHistory []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はレスポンス用のユーザー情報。パスワードとトークンのハッシュを含まない。
type PublicUser struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public は秘匿情報を除いたユーザー情報を返す。
func (u *User) Public() PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.AvatarURL,
		CoverImage:   u.CoverImageURL,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
