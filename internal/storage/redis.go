package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/tracing"
)

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("job-board-go/storage/redis")

// checkAndAddMD5Script 原子地检查并登记文件MD5。
// 已存在返回 {1, 已有简历ID}，否则登记后返回 {0, ""}。
var checkAndAddMD5Script = redis.NewScript(`
local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
if exists == 1 then
	local id = redis.call('GET', KEYS[2])
	if not id then id = '' end
	return {1, id}
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'EX', ARGV[3])
return {0, ''}
`)

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// FormatKey 用动态部分填充 constants 包中的键模板
func (r *Redis) FormatKey(keyConstant string, parts ...interface{}) string {
	return fmt.Sprintf(keyConstant, parts...)
}

// NewRedis 创建Redis客户端并检查连接
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// CreateSession 保存登录会话
func (r *Redis) CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error {
	return r.Client.Set(ctx, r.FormatKey(constants.KeyAuthSession, token), userID, ttl).Err()
}

// GetSession 返回会话对应的用户ID，会话不存在返回 ErrNotFound
func (r *Redis) GetSession(ctx context.Context, token string) (string, error) {
	userID, err := r.Client.Get(ctx, r.FormatKey(constants.KeyAuthSession, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return userID, err
}

// DeleteSession 删除登录会话
func (r *Redis) DeleteSession(ctx context.Context, token string) error {
	return r.Client.Del(ctx, r.FormatKey(constants.KeyAuthSession, token)).Err()
}

// CheckAndAddFileMD5 检查上传者是否已上传过相同文件，未上传过则登记。
// exists 为真时 existingID 为之前登记的简历ID。
func (r *Redis) CheckAndAddFileMD5(ctx context.Context, ownerID, md5Hex, resumeID string) (exists bool, existingID string, err error) {
	ctx, span := redisTracer.Start(ctx, "Redis.CheckAndAddFileMD5", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	setKey := r.FormatKey(constants.KeyFileMD5Set, ownerID)
	mapKey := r.FormatKey(constants.KeyFileMD5ToResume, ownerID, md5Hex)
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "EVALSHA"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(setKey)),
	)

	res, err := checkAndAddMD5Script.Run(ctx, r.Client, []string{setKey, mapKey},
		md5Hex, resumeID, int64(r.GetMD5ExpireDuration().Seconds())).Slice()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, "", fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}
	if len(res) != 2 {
		err := fmt.Errorf("意外的Redis返回: %v", res)
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, "", err
	}

	flag, _ := res[0].(int64)
	existingID, _ = res[1].(string)
	exists = flag == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, existingID, nil
}

// RemoveFileMD5 撤销上传者的MD5登记，用于删除简历或上传失败回滚
func (r *Redis) RemoveFileMD5(ctx context.Context, ownerID, md5Hex string) error {
	pipe := r.Client.TxPipeline()
	pipe.SRem(ctx, r.FormatKey(constants.KeyFileMD5Set, ownerID), md5Hex)
	pipe.Del(ctx, r.FormatKey(constants.KeyFileMD5ToResume, ownerID, md5Hex))
	_, err := pipe.Exec(ctx)
	return err
}

// CacheMatchReport 缓存匹配报告JSON
func (r *Redis) CacheMatchReport(ctx context.Context, runID string, report []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, r.FormatKey(constants.KeyMatchReport, runID), report, ttl).Err()
}

// GetMatchReport 读取缓存的匹配报告，未命中返回 ErrNotFound
func (r *Redis) GetMatchReport(ctx context.Context, runID string) ([]byte, error) {
	data, err := r.Client.Get(ctx, r.FormatKey(constants.KeyMatchReport, runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// AcquireLock 尝试获取一个分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return lockValue, nil
}

// ReleaseLock 释放分布式锁，只有持有者才能释放
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	released, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return released == 1, nil
}
