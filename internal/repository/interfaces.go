// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/vidtube/internal/model"
)

// ErrDuplicateEntry は一意制約に違反した場合のエラー。
var ErrDuplicateEntry = errors.New("duplicate entry")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスでユーザーを検索する。
	// 空文字列の引数は検索条件に含めない。見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名かメールアドレスが重複する場合はErrDuplicateEntryを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateRefreshTokenHash はリフレッシュトークンのハッシュを更新する。空文字列はNULLとして保存する。
	UpdateRefreshTokenHash(ctx context.Context, id, hash string) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// UpdateAccountDetails は表示名とメールアドレスを更新し、更新後のユーザーを返す。
	// メールアドレスが重複する場合はErrDuplicateEntryを返す。
	UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*model.User, error)

	// UpdateAvatar はアバター画像のURLを更新し、更新後のユーザーを返す。
	UpdateAvatar(ctx context.Context, id, url string) (*model.User, error)

	// UpdateCoverImage はカバー画像のURLを更新し、更新後のユーザーを返す。
	UpdateCoverImage(ctx context.Context, id, url string) (*model.User, error)

	// PrependWatchHistory は視聴履歴の先頭に動画IDを追加する。
	PrependWatchHistory(ctx context.Context, id, videoID string) error
}

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// Create は購読を作成する。既に同じ組み合わせが存在する場合は何もしない。
	Create(ctx context.Context, sub *model.Subscription) error

	// Delete は購読を削除する。削除した行があった場合はtrueを返す。
	Delete(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoRepository は動画データの参照インターフェース。
type VideoRepository interface {
	// FindByID は指定IDの動画を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Video, error)
}
