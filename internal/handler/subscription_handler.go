package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Subscribe はチャンネルを購読する。既に購読済みでも成功する。
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	// Unsubscribe はチャンネルの購読を解除する。
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
}

// SubscriptionHandler はチャンネル購読のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

type subscriptionResponse struct {
	ChannelID    string `json:"channelId"`
	IsSubscribed bool   `json:"isSubscribed"`
}

// Subscribe はチャンネルを購読する。
// POST /api/v1/users/subscriptions/{channelId}
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	channelID := chi.URLParam(r, "channelId")
	if err := h.service.Subscribe(r.Context(), userID, channelID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{ChannelID: channelID, IsSubscribed: true}, "Subscribed successfully")
}

// Unsubscribe はチャンネルの購読を解除する。
// DELETE /api/v1/users/subscriptions/{channelId}
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	channelID := chi.URLParam(r, "channelId")
	if err := h.service.Unsubscribe(r.Context(), userID, channelID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{ChannelID: channelID, IsSubscribed: false}, "Unsubscribed successfully")
}
