// Package media はユーザー画像（アバター、カバー画像）のアップロードを提供する。
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hitoshi/vidtube/internal/model"
)

// 画像の種類。オブジェクトキーの接頭辞に使う。
const (
	KindAvatar     = "avatars"
	KindCoverImage = "covers"
)

// allowedTypes は受け付ける画像のContent-Typeと拡張子。
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// File はアップロード対象のファイル。
type File struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// Uploader は画像を保存し、公開URLを返す。
type Uploader interface {
	Upload(ctx context.Context, kind string, f File) (string, error)
}

// putObjectAPI はS3クライアントのうちアップロードに必要な部分。
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config はS3互換ストレージの接続設定。
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // MinIOなどS3互換ストレージのエンドポイント。空の場合はAWSを使う
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // 公開URLの基底。末尾のスラッシュは取り除く
}

// S3Uploader はS3互換ストレージに画像を保存するUploader。
type S3Uploader struct {
	client        putObjectAPI
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

// loadAWSConfig はテストで差し替えられるようにパッケージ変数にしている。
var loadAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Uploader は設定からS3クライアントを生成してS3Uploaderを返す。
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newS3Uploader(client putObjectAPI, bucket, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Upload は画像を保存して公開URLを返す。
// 画像以外のContent-TypeはINVALID_MEDIA、保存の失敗はUPLOAD_FAILEDとなる。
func (u *S3Uploader) Upload(ctx context.Context, kind string, f File) (string, error) {
	ext, err := ExtensionFor(f.ContentType)
	if err != nil {
		return "", err
	}

	key := u.objectKey(kind, ext)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.ContentType),
	}
	if f.Size > 0 {
		input.ContentLength = aws.Int64(f.Size)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		slog.Error("failed to upload media",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", model.NewUploadFailedError()
	}

	slog.Info("media uploaded", slog.String("key", key), slog.Int64("size", f.Size))
	return u.publicBaseURL + "/" + key, nil
}

// objectKey は kind/yyyy/mm/uuid.ext 形式のキーを生成する。
func (u *S3Uploader) objectKey(kind, ext string) string {
	d := u.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s%s", kind, d.Year(), int(d.Month()), uuid.New(), ext)
}

// ExtensionFor はContent-Typeに対応する拡張子を返す。画像以外はINVALID_MEDIAエラー。
func ExtensionFor(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := allowedTypes[ct]
	if !ok {
		return "", model.NewInvalidMediaError(contentType)
	}
	return ext, nil
}

var _ Uploader = (*S3Uploader)(nil)
