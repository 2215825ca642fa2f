package media

import "context"

// UploadRecorder はアップロード結果を受け取る。metrics.MetricsCollectorが実装する。
type UploadRecorder interface {
	RecordUpload(kind string, success bool)
}

// instrumentedUploader はアップロード結果を記録するUploader。
type instrumentedUploader struct {
	next     Uploader
	recorder UploadRecorder
}

// WithMetrics はアップロードのたびに種類と成否を記録するUploaderを返す。
func WithMetrics(next Uploader, recorder UploadRecorder) Uploader {
	return &instrumentedUploader{next: next, recorder: recorder}
}

func (u *instrumentedUploader) Upload(ctx context.Context, kind string, f File) (string, error) {
	url, err := u.next.Upload(ctx, kind, f)
	u.recorder.RecordUpload(kind, err == nil)
	return url, err
}
