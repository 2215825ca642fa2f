package model

import "time"

// Subscription はユーザー間の購読関係を表す。
// Subscriber が Channel を購読している。同じ組み合わせは1件のみ存在する。
type Subscription struct {
	ID         string
	Subscriber string
	Channel    string
	CreatedAt  time.Time
}

// Video は動画を表す。読み取りと視聴記録にのみ使用する。
type Video struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Duration    int       `json:"duration"`
	Views       int       `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChannelProfile はチャンネルページに表示する集計済みプロフィール。
type ChannelProfile struct {
	ID                string `json:"_id"`
	FullName          string `json:"fullName"`
	Username          string `json:"username"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
	Email             string `json:"email"`
	SubscriberCount   int    `json:"subscribersCount"`
	SubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// OwnerSummary は動画所有者の表示用の要約。
type OwnerSummary struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Username string `json:"username"`
}

// VideoWithOwner は視聴履歴の1件。所有者が解決できない場合Ownerはnil。
type VideoWithOwner struct {
	Video
	Owner *OwnerSummary `json:"owner"`
}
