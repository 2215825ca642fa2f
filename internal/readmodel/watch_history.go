package readmodel

import (
	"context"

	"github.com/hitoshi/vidtube/internal/docstore"
	"github.com/hitoshi/vidtube/internal/model"
)

// WatchHistoryBuilder はユーザーの視聴履歴を動画と所有者の要約付きで構築する。
type WatchHistoryBuilder struct {
	store docstore.Store
}

// NewWatchHistoryBuilder はWatchHistoryBuilderを生成する。
func NewWatchHistoryBuilder(store docstore.Store) *WatchHistoryBuilder {
	return &WatchHistoryBuilder{store: store}
}

// Build はviewerIDの視聴履歴を保存順に返す。
//
// 同じ動画IDが複数回含まれる場合はその回数だけ出力する。
// 存在しない動画IDは読み飛ばし、所有者が存在しない動画はOwnerをnilとして含める。
// 履歴が空の場合は空スライスを返す。
func (b *WatchHistoryBuilder) Build(ctx context.Context, viewerID string) ([]model.VideoWithOwner, error) {
	user, err := b.store.FindOne(ctx, docstore.CollectionUsers, docstore.Filter{docstore.Eq(docstore.IDField, viewerID)})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	history := user.Strings("watchHistory")
	if len(history) == 0 {
		return []model.VideoWithOwner{}, nil
	}

	docs, err := b.store.Aggregate(ctx, docstore.CollectionVideos, docstore.Pipeline{
		matchIn(docstore.IDField, uniqueIDs(history)),
		lookupOwner(),
		docstore.AddFields{Fields: map[string]docstore.Expr{
			fieldOwnerSummary: docstore.ArrayElemAt(fieldOwnerDocs, 0),
		}},
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]docstore.Document, len(docs))
	for _, d := range docs {
		index[d.String(docstore.IDField)] = d
	}

	out := make([]model.VideoWithOwner, 0, len(history))
	for _, id := range history {
		d, ok := index[id]
		if !ok {
			continue
		}
		out = append(out, toVideoWithOwner(d))
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toVideoWithOwner(d docstore.Document) model.VideoWithOwner {
	v := model.VideoWithOwner{
		Video: model.Video{
			ID:          d.String(docstore.IDField),
			OwnerID:     d.String(fieldOwner),
			Title:       d.String("title"),
			Description: d.String("description"),
			Thumbnail:   d.String("thumbnail"),
			VideoFile:   d.String("videoFile"),
			Duration:    d.Int("duration"),
			Views:       d.Int("views"),
			IsPublished: d.Bool("isPublished"),
			CreatedAt:   d.Time("createdAt"),
		},
	}
	if owner := d.Doc(fieldOwnerSummary); owner != nil {
		v.Owner = &model.OwnerSummary{
			ID:       owner.String(docstore.IDField),
			FullName: owner.String("fullName"),
			Avatar:   owner.String("avatar"),
			Username: owner.String("username"),
		}
	}
	return v
}
