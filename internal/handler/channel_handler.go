package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vidtube/internal/metrics"
	"github.com/hitoshi/vidtube/internal/model"
)

// ChannelProfileBuilder はチャンネルプロフィールの読み取りモデルを構築する。
type ChannelProfileBuilder interface {
	Build(ctx context.Context, handle, viewerID string) (*model.ChannelProfile, error)
}

// WatchHistoryBuilder は視聴履歴の読み取りモデルを構築する。
type WatchHistoryBuilder interface {
	Build(ctx context.Context, viewerID string) ([]model.VideoWithOwner, error)
}

// ChannelHandler はチャンネルプロフィールと視聴履歴のHTTPハンドラー。
type ChannelHandler struct {
	profiles ChannelProfileBuilder
	history  WatchHistoryBuilder
	metrics  metrics.MetricsCollector
}

// NewChannelHandler はChannelHandlerを生成する。
func NewChannelHandler(profiles ChannelProfileBuilder, history WatchHistoryBuilder, mc metrics.MetricsCollector) *ChannelHandler {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &ChannelHandler{
		profiles: profiles,
		history:  history,
		metrics:  mc,
	}
}

// ChannelProfile はハンドルで指定したチャンネルのプロフィールを返す。
// GET /api/v1/users/c/{username}
func (h *ChannelHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	profile, err := h.profiles.Build(r.Context(), chi.URLParam(r, "username"), viewerID)
	h.metrics.ObserveReadModel("channel_profile", time.Since(start), err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory は認証済みユーザーの視聴履歴を返す。
// GET /api/v1/users/history
func (h *ChannelHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	videos, err := h.history.Build(r.Context(), viewerID)
	h.metrics.ObserveReadModel("watch_history", time.Since(start), err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, videos, "Watch history fetched successfully")
}
