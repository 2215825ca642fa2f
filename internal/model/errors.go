// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// エラー種別。APIErrorのUnwrapで返され、errors.Isで判定できる。
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstream        = errors.New("upstream failure")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, channel, media, system
	Action   string // ユーザー向け対処方法
	Kind     error  // エラー種別
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はエラー種別を返す。
func (e *APIError) Unwrap() error {
	return e.Kind
}

// 定義済みエラーコード
const (
	ErrCodeInvalidHandle        = "INVALID_HANDLE"
	ErrCodeChannelNotFound      = "CHANNEL_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeVideoNotFound        = "VIDEO_NOT_FOUND"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeMissingFields        = "MISSING_FIELDS"
	ErrCodeMissingIdentifier    = "MISSING_IDENTIFIER"
	ErrCodeUserExists           = "USER_EXISTS"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeAvatarRequired       = "AVATAR_REQUIRED"
	ErrCodeInvalidMedia         = "INVALID_MEDIA"
	ErrCodeUploadFailed         = "UPLOAD_FAILED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeWeakPassword         = "WEAK_PASSWORD"
	ErrCodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeSelfSubscription     = "SELF_SUBSCRIPTION"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// NewInvalidHandleError はチャンネルハンドルが空の場合のエラーを生成する。
func NewInvalidHandleError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidHandle,
		Message:  "ユーザー名が指定されていません。",
		Category: "validation",
		Action:   "チャンネルのユーザー名を指定してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewChannelNotFoundError はチャンネルが存在しない場合のエラーを生成する。
func NewChannelNotFoundError(handle string) *APIError {
	return &APIError{
		Code:     ErrCodeChannelNotFound,
		Message:  fmt.Sprintf("チャンネルが見つかりません: %s", handle),
		Category: "channel",
		Action:   "ユーザー名を確認してください。",
		Kind:     ErrNotFound,
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
		Kind:     ErrNotFound,
	}
}

// NewVideoNotFoundError は動画が見つからない場合のエラーを生成する。
func NewVideoNotFoundError(videoID string) *APIError {
	return &APIError{
		Code:     ErrCodeVideoNotFound,
		Message:  fmt.Sprintf("指定された動画が見つかりません: %s", videoID),
		Category: "channel",
		Action:   "動画IDを確認してください。",
		Kind:     ErrNotFound,
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(channelID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("このチャンネルは購読していません: %s", channelID),
		Category: "channel",
		Action:   "購読中のチャンネルを確認してください。",
		Kind:     ErrNotFound,
	}
}

// NewMissingFieldsError は必須項目が不足している場合のエラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須項目が入力されていません: %v", fields),
		Category: "validation",
		Action:   "すべての必須項目を入力してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewMissingIdentifierError はユーザー名とメールアドレスのどちらも指定されていない場合のエラーを生成する。
func NewMissingIdentifierError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingIdentifier,
		Message:  "ユーザー名またはメールアドレスが必要です。",
		Category: "validation",
		Action:   "ユーザー名かメールアドレスのいずれかを入力してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewUserExistsError はユーザー名またはメールアドレスが使用済みの場合のエラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このユーザー名またはメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のユーザー名とメールアドレスを使用するか、ログインしてください。",
		Kind:     ErrConflict,
	}
}

// NewEmailTakenError はメールアドレスが他のユーザーに使用されている場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスを入力してください。",
		Kind:     ErrConflict,
	}
}

// NewAvatarRequiredError はアバター画像が指定されていない場合のエラーを生成する。
func NewAvatarRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAvatarRequired,
		Message:  "アバター画像は必須です。",
		Category: "media",
		Action:   "アバター画像を選択してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewInvalidMediaError はアップロードされたファイルが画像でない場合のエラーを生成する。
func NewInvalidMediaError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMedia,
		Message:  fmt.Sprintf("対応していないファイル形式です: %s", contentType),
		Category: "media",
		Action:   "JPEG、PNG、GIF、WebPのいずれかの画像を選択してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewUploadFailedError は画像のアップロードに失敗した場合のエラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "画像のアップロードに失敗しました。",
		Category: "media",
		Action:   "しばらく待ってから再度お試しください。",
		Kind:     ErrUpstream,
	}
}

// NewInvalidCredentialsError はパスワードが一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度入力してください。",
		Kind:     ErrUnauthorized,
	}
}

// NewWeakPasswordError はパスワードが短すぎる場合のエラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードは%d文字以上で指定してください。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを入力してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークンが無効な場合のエラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効か期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
		Kind:     ErrUnauthorized,
	}
}

// NewUnauthorizedError は認証されていない場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
		Kind:     ErrUnauthorized,
	}
}

// NewSelfSubscriptionError は自分自身を購読しようとした場合のエラーを生成する。
func NewSelfSubscriptionError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfSubscription,
		Message:  "自分のチャンネルは購読できません。",
		Category: "channel",
		Action:   "他のチャンネルを選択してください。",
		Kind:     ErrInvalidArgument,
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Kind:     ErrInvalidArgument,
	}
}
