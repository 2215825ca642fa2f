package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/vidtube/internal/model"
)

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url,
	refresh_token_hash, watch_history, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var refresh sql.NullString
	var history pq.StringArray
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AvatarURL, &user.CoverImageURL, &refresh, &history, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.RefreshTokenHash = refresh.String
	user.WatchHistory = []string(history)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByUsernameOrEmail はユーザー名またはメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 ORDER BY created_at LIMIT 1`,
		username, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー名またはメールアドレスによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.AvatarURL, user.CoverImageURL, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateRefreshTokenHash はリフレッシュトークンのハッシュを更新する。
func (r *PostgresUserRepo) UpdateRefreshTokenHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`,
		id, sql.NullString{String: hash, Valid: hash != ""},
	)
	if err != nil {
		return fmt.Errorf("リフレッシュトークンの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdatePasswordHash はパスワードハッシュを更新する。
func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, hash,
	)
	if err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateAccountDetails は表示名とメールアドレスを更新する。
func (r *PostgresUserRepo) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET full_name = $2, email = $3, updated_at = now()
		 WHERE id = $1 RETURNING `+userColumns,
		id, fullName, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEntry
	}
	if err != nil {
		return nil, fmt.Errorf("アカウント情報の更新に失敗しました: %w", err)
	}
	return user, nil
}

// UpdateAvatar はアバター画像のURLを更新する。
func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, id, url string) (*model.User, error) {
	return r.updateImage(ctx, "avatar_url", id, url)
}

// UpdateCoverImage はカバー画像のURLを更新する。
func (r *PostgresUserRepo) UpdateCoverImage(ctx context.Context, id, url string) (*model.User, error) {
	return r.updateImage(ctx, "cover_image_url", id, url)
}

// updateImage は画像URL列を更新する。columnは固定の列名のみを受け付ける。
func (r *PostgresUserRepo) updateImage(ctx context.Context, column, id, url string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET `+column+` = $2, updated_at = now()
		 WHERE id = $1 RETURNING `+userColumns,
		id, url,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("画像URLの更新に失敗しました: %w", err)
	}
	return user, nil
}

// PrependWatchHistory は視聴履歴の先頭に動画IDを追加する。
func (r *PostgresUserRepo) PrependWatchHistory(ctx context.Context, id, videoID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET watch_history = array_prepend($2::uuid, watch_history), updated_at = now()
		 WHERE id = $1`,
		id, videoID,
	)
	if err != nil {
		return fmt.Errorf("視聴履歴の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// isUniqueViolation はPostgreSQLの一意制約違反（23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
