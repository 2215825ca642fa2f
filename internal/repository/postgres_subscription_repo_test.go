package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/vidtube/internal/model"
)

func TestPostgresSubscriptionRepo_Create_IsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSubscriptionRepo(db)
	now := time.Now()
	sub := &model.Subscription{ID: "sub-1", Subscriber: "user-1", Channel: "user-2", CreatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (subscriber_id, channel_id) DO NOTHING")).
		WithArgs("sub-1", "user-1", "user-2", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSubscriptionRepo_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"削除あり", 1, true},
		{"該当なし", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgresSubscriptionRepo(db)

			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2")).
				WithArgs("user-1", "user-2").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.Delete(context.Background(), "user-1", "user-2")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Delete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresSubscriptionRepo_Delete_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSubscriptionRepo(db)
	dbErr := errors.New("db down")

	mock.ExpectExec("DELETE FROM subscriptions").WillReturnError(dbErr)

	_, err := repo.Delete(context.Background(), "user-1", "user-2")
	if !errors.Is(err, dbErr) {
		t.Errorf("err = %v, want wrapped %v", err, dbErr)
	}
}
