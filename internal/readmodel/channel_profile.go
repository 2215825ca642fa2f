package readmodel

import (
	"context"
	"strings"

	"github.com/hitoshi/vidtube/internal/docstore"
	"github.com/hitoshi/vidtube/internal/model"
)

// ChannelProfileBuilder はユーザー名からチャンネルプロフィールを構築する。
type ChannelProfileBuilder struct {
	store docstore.Store
}

// NewChannelProfileBuilder はChannelProfileBuilderを生成する。
func NewChannelProfileBuilder(store docstore.Store) *ChannelProfileBuilder {
	return &ChannelProfileBuilder{store: store}
}

// Build はhandleのチャンネルプロフィールを返す。
// viewerIDが空文字列の場合は未ログインとして扱い、IsSubscribedは常にfalseになる。
//
// 購読者数と購読数は1回の集約で件数だけを集計して求める。
// 購読状態の判定には閲覧者自身の購読関係だけを結合する。
// ハンドルが空白のみの場合はINVALID_HANDLE、該当ユーザーがいない場合はCHANNEL_NOT_FOUNDを返す。
// ストアの失敗はdocstore.StoreErrorのまま返す。
func (b *ChannelProfileBuilder) Build(ctx context.Context, handle, viewerID string) (*model.ChannelProfile, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, model.NewInvalidHandleError()
	}
	username := strings.ToLower(handle)

	pipeline := docstore.Pipeline{
		matchBy("username", username),
		countEdges("channel", fieldSubscribersCount),
		countEdges("subscriber", fieldSubscribedToCount),
	}
	if v := viewerValue(viewerID); v != nil {
		pipeline = append(pipeline,
			lookupViewerEdge(viewerID),
			docstore.AddFields{Fields: map[string]docstore.Expr{
				fieldIsSubscribed: docstore.IsIn(v, fieldSubscribers+".subscriber"),
			}},
		)
	} else {
		pipeline = append(pipeline, docstore.AddFields{Fields: map[string]docstore.Expr{
			fieldIsSubscribed: docstore.Literal(false),
		}})
	}
	pipeline = append(pipeline, docstore.Project{Fields: []string{
		"fullName", "username", "avatar", "coverImage", "email",
		fieldSubscribersCount, fieldSubscribedToCount, fieldIsSubscribed,
	}})

	docs, err := b.store.Aggregate(ctx, docstore.CollectionUsers, pipeline)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, model.NewChannelNotFoundError(username)
	}

	d := docs[0]
	return &model.ChannelProfile{
		ID:                d.String(docstore.IDField),
		FullName:          d.String("fullName"),
		Username:          d.String("username"),
		Avatar:            d.String("avatar"),
		CoverImage:        d.String("coverImage"),
		Email:             d.String("email"),
		SubscriberCount:   d.Int(fieldSubscribersCount),
		SubscribedToCount: d.Int(fieldSubscribedToCount),
		IsSubscribed:      d.Bool(fieldIsSubscribed),
	}, nil
}
