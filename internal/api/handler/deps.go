package handler

import (
	"context"
	"time"

	"job-board-go/internal/config"
	"job-board-go/internal/processor"
	"job-board-go/internal/storage"
)

// SessionStore 登录会话存储
type SessionStore interface {
	CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
}

// UploadDeduper 按上传者记录文件MD5
type UploadDeduper interface {
	CheckAndAddFileMD5(ctx context.Context, ownerID, md5Hex, resumeID string) (exists bool, existingID string, err error)
	RemoveFileMD5(ctx context.Context, ownerID, md5Hex string) error
}

// ResumeTextExtractor 从上传目录或内存提取简历文本
type ResumeTextExtractor interface {
	Extract(ctx context.Context, filename, subdir string) (string, error)
	ExtractBytes(ctx context.Context, filename string, data []byte) (string, error)
}

// HealthCheck 健康检查项
type HealthCheck func(ctx context.Context) error

// Deps 处理器共用的依赖。Dedupe、Objects、Matches 可以为 nil。
type Deps struct {
	Config    *config.Config
	DB        *storage.MySQL
	Sessions  SessionStore
	Dedupe    UploadDeduper
	Objects   storage.ObjectStorage
	Extractor ResumeTextExtractor
	Scanner   processor.ResumeScanner
	Matcher   processor.Matcher
	Matches   *processor.MatchService
	Checks    map[string]HealthCheck
}
