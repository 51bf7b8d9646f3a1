package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"job-board-go/internal/config"
	"job-board-go/internal/tracing"
)

var minioTracer = otel.Tracer("job-board-go/storage/minio")

// ObjectStorage 简历文件的对象存储镜像
type ObjectStorage interface {
	UploadResumeFile(ctx context.Context, ownerID, resumeID, fileExt string, reader io.Reader, fileSize int64) (string, error)
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
	DeleteResumeFile(ctx context.Context, objectKey string) error
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumesBucket
	if bucket == "" {
		bucket = "resumes"
	}

	m := &MinIO{client: client, cfg: cfg, bucket: bucket, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.ensureBucketExists(ctx, bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", bucket, err)
	}

	if cfg.ResumeExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, bucket, "expire-resumes", cfg.ResumeExpireDays); err != nil {
			m.logger.Warn().Err(err).Str("bucket", bucket).Msg("设置生命周期规则失败")
		}
	}

	m.logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("已创建存储桶")
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, cfg)
}

// ResumeObjectKey 简历在存储桶中的对象键，例如 resume/{ownerID}/{resumeID}.pdf
func ResumeObjectKey(ownerID, resumeID, fileExt string) string {
	return fmt.Sprintf("resume/%s/%s%s", ownerID, resumeID, strings.ToLower(fileExt))
}

// UploadResumeFile 上传简历原文件，返回对象键
func (m *MinIO) UploadResumeFile(ctx context.Context, ownerID, resumeID, fileExt string, reader io.Reader, fileSize int64) (_ string, err error) {
	objectKey := ResumeObjectKey(ownerID, resumeID, fileExt)
	ctx, span := m.startSpan(ctx, "MinIO.PutObject", objectKey)
	defer func() { endObjectSpan(span, err) }()

	info, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, fileSize,
		minio.PutObjectOptions{ContentType: ContentTypeForExt(fileExt)})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	m.logger.Debug().Str("object", objectKey).Str("etag", info.ETag).Int64("size", info.Size).Msg("简历已镜像到MinIO")
	return objectKey, nil
}

// GetResumeFile 读取简历原文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) (_ []byte, err error) {
	ctx, span := m.startSpan(ctx, "MinIO.GetObject", objectKey)
	defer func() { endObjectSpan(span, err) }()

	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectKey, err)
	}
	return data, nil
}

// DeleteResumeFile 删除简历原文件
func (m *MinIO) DeleteResumeFile(ctx context.Context, objectKey string) (err error) {
	ctx, span := m.startSpan(ctx, "MinIO.RemoveObject", objectKey)
	defer func() { endObjectSpan(span, err) }()

	if err = m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// GetPresignedURL 生成临时下载链接
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// ContentTypeForExt 按扩展名返回简历文件的内容类型
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func (m *MinIO) startSpan(ctx context.Context, name, objectKey string) (context.Context, trace.Span) {
	ctx, span := minioTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("minio.bucket", m.bucket),
		attribute.String("minio.object", tracing.TruncateString(objectKey, tracing.DefaultMaxLength)),
	)
	return ctx, span
}

// endObjectSpan 对象不存在不算错误
func endObjectSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil || errors.Is(err, ErrNotFound) {
		span.SetStatus(codes.Ok, "")
		return
	}
	tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
}
