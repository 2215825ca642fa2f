package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/vidtube/internal/model"
)

func subscriptionRequest(method, channelID, userID string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/users/subscriptions/"+channelID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("channelId", channelID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	return withUser(req, userID)
}

func TestSubscriptionHandler_Subscribe(t *testing.T) {
	var gotSubscriber, gotChannel string
	svc := &mockSubscriptionService{
		subscribeFn: func(_ context.Context, subscriberID, channelID string) error {
			gotSubscriber, gotChannel = subscriberID, channelID
			if subscriberID == channelID {
				return model.NewSelfSubscriptionError()
			}
			return nil
		},
	}
	h := NewSubscriptionHandler(svc)

	w := httptest.NewRecorder()
	h.Subscribe(w, subscriptionRequest(http.MethodPost, "u1", "u2"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotSubscriber != "u2" || gotChannel != "u1" {
		t.Errorf("subscriber/channel = %q/%q", gotSubscriber, gotChannel)
	}
	var data subscriptionResponse
	decodeEnvelope(t, w, &data)
	if data.ChannelID != "u1" || !data.IsSubscribed {
		t.Errorf("unexpected data: %+v", data)
	}

	w = httptest.NewRecorder()
	h.Subscribe(w, subscriptionRequest(http.MethodPost, "u1", "u1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("self subscription status = %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeSelfSubscription {
		t.Errorf("code = %q", body.Code)
	}
}

func TestSubscriptionHandler_Unsubscribe(t *testing.T) {
	svc := &mockSubscriptionService{
		unsubscribeFn: func(_ context.Context, _ string, channelID string) error {
			if channelID != "u1" {
				return model.NewSubscriptionNotFoundError(channelID)
			}
			return nil
		},
	}
	h := NewSubscriptionHandler(svc)

	w := httptest.NewRecorder()
	h.Unsubscribe(w, subscriptionRequest(http.MethodDelete, "u1", "u2"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var data subscriptionResponse
	decodeEnvelope(t, w, &data)
	if data.IsSubscribed {
		t.Error("isSubscribed should be false after unsubscribe")
	}

	w = httptest.NewRecorder()
	h.Unsubscribe(w, subscriptionRequest(http.MethodDelete, "u9", "u2"))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSubscriptionHandler_RequiresUser(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionService{})

	w := httptest.NewRecorder()
	h.Subscribe(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/subscriptions/u1", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
