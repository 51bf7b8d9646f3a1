package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"job-board-go/internal/config"
	applog "job-board-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis

	// 对象存储，未启用时为nil
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器。单个组件初始化失败只记录警告，全部失败才返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var err error
	var initErrors []string

	if cfg.MySQL.Host != "" {
		s.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			applog.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			applog.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		applog.Info().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.MinIO.Enabled {
		s.MinIO, err = NewMinIO(&cfg.MinIO, applog.Component("minio"))
		if err != nil {
			applog.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			applog.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := s.RabbitMQ.SetupMatchTopology(); err != nil {
			applog.Warn().Err(err).Msg("声明匹配任务队列失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ topology: %v", err))
		}
	}

	if s.MySQL == nil && s.Redis == nil && s.MinIO == nil && s.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		applog.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() error {
	var errs []error
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭RabbitMQ连接失败: %w", err))
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭MySQL连接失败: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭Redis连接失败: %w", err))
		}
	}
	// MinIO客户端无需显式关闭
	return errors.Join(errs...)
}
