package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vidtube/internal/model"
)

// PostgresVideoRepo はPostgreSQLを使用した動画リポジトリ。
type PostgresVideoRepo struct {
	db *sql.DB
}

// NewPostgresVideoRepo はPostgresVideoRepoを生成する。
func NewPostgresVideoRepo(db *sql.DB) *PostgresVideoRepo {
	return &PostgresVideoRepo{db: db}
}

// FindByID は指定IDの動画を取得する。見つからない場合はnilを返す。
func (r *PostgresVideoRepo) FindByID(ctx context.Context, id string) (*model.Video, error) {
	v := &model.Video{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, thumbnail_url, video_url,
		        duration_seconds, views, is_published, created_at
		 FROM videos WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.Thumbnail, &v.VideoFile,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("動画の取得に失敗しました: %w", err)
	}
	return v, nil
}

// compile-time interface check
var _ VideoRepository = (*PostgresVideoRepo)(nil)
