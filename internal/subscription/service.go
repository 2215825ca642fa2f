// Package subscription はチャンネル購読のドメインロジックを提供する。
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/vidtube/internal/model"
	"github.com/hitoshi/vidtube/internal/repository"
)

// ChannelFinder はチャンネル（ユーザー）の存在確認に使うインターフェース。
type ChannelFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Service は購読管理のサービス層。
// 購読と購読解除のビジネスロジックを提供する。
type Service struct {
	subRepo  repository.SubscriptionRepository
	channels ChannelFinder
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(subRepo repository.SubscriptionRepository, channels ChannelFinder) *Service {
	return &Service{
		subRepo:  subRepo,
		channels: channels,
		now:      time.Now,
	}
}

// Subscribe はsubscriberIDのユーザーにchannelIDのチャンネルを購読させる。
// 既に購読済みの場合は何もしない。自分自身は購読できない。
func (s *Service) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	if subscriberID == channelID {
		return model.NewSelfSubscriptionError()
	}
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}

	sub := &model.Subscription{
		ID:         uuid.New().String(),
		Subscriber: subscriberID,
		Channel:    channelID,
		CreatedAt:  s.now(),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	slog.Info("channel subscribed",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channelID),
	)
	return nil
}

// Unsubscribe は購読を解除する。購読していない場合はSUBSCRIPTION_NOT_FOUNDを返す。
func (s *Service) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	if _, err := uuid.Parse(channelID); err != nil {
		return model.NewSubscriptionNotFoundError(channelID)
	}

	deleted, err := s.subRepo.Delete(ctx, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewSubscriptionNotFoundError(channelID)
	}

	slog.Info("channel unsubscribed",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channelID),
	)
	return nil
}

// ensureChannel はチャンネルが存在することを確認する。
func (s *Service) ensureChannel(ctx context.Context, channelID string) error {
	if _, err := uuid.Parse(channelID); err != nil {
		return model.NewChannelNotFoundError(channelID)
	}
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("チャンネルの取得に失敗しました: %w", err)
	}
	if channel == nil {
		return model.NewChannelNotFoundError(channelID)
	}
	return nil
}
