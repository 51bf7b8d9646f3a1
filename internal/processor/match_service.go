package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/tracing"
	"job-board-go/internal/types"
)

// MatchRunStore 匹配任务的持久化
type MatchRunStore interface {
	CreateMatchRunWithOutbox(ctx context.Context, run *models.MatchRun, exchange, routingKey string) error
	GetMatchRun(ctx context.Context, id string) (*models.MatchRun, error)
	MarkMatchRunRunning(ctx context.Context, id string) (bool, error)
	CompleteMatchRun(ctx context.Context, id string, report []byte, totalFiles, successCount int, notification *models.Notification) error
	FailMatchRun(ctx context.Context, id, reason string, notification *models.Notification) error
}

// ReportCache 报告缓存和任务锁
type ReportCache interface {
	CacheMatchReport(ctx context.Context, runID string, report []byte, ttl time.Duration) error
	GetMatchReport(ctx context.Context, runID string) ([]byte, error)
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// TaskConsumer 从队列消费匹配任务
type TaskConsumer interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func([]byte) bool) error
}

// MatchServiceConfig 异步匹配的队列与缓存设置
type MatchServiceConfig struct {
	Exchange   string
	RoutingKey string
	Queue      string
	ReportTTL  time.Duration
	LockTTL    time.Duration
	// MinJobDescription 与匹配器一致的岗位描述最短字符数
	MinJobDescription int
}

// MatchResult 异步匹配任务的当前状态，完成后带报告
type MatchResult struct {
	Run    *models.MatchRun        `json:"run"`
	Report *types.BatchMatchReport `json:"report,omitempty"`
	Cached bool                    `json:"cached"`
}

// MatchService 把批量匹配包装成排队执行的任务
type MatchService struct {
	matcher  Matcher
	runs     MatchRunStore
	cache    ReportCache
	consumer TaskConsumer
	cfg      MatchServiceConfig
	logger   zerolog.Logger
}

// NewMatchService 创建异步匹配服务；cache 和 consumer 可以为 nil
func NewMatchService(matcher Matcher, runs MatchRunStore, cache ReportCache, consumer TaskConsumer, cfg MatchServiceConfig, logger zerolog.Logger) *MatchService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = constants.MatchLockTTL
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = 24 * time.Hour
	}
	if cfg.MinJobDescription <= 0 {
		cfg.MinJobDescription = constants.MinTextLength
	}
	return &MatchService{
		matcher:  matcher,
		runs:     runs,
		cache:    cache,
		consumer: consumer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit 创建排队中的匹配任务，任务消息由 outbox 中继投递
func (s *MatchService) Submit(ctx context.Context, recruiterID string, req MatchRequest, jobID *string) (*models.MatchRun, error) {
	jd := strings.TrimSpace(req.JobDescription)
	if utf8.RuneCountInString(jd) < s.cfg.MinJobDescription {
		return nil, fmt.Errorf("%w: 至少需要%d个字符", ErrJobDescriptionTooShort, s.cfg.MinJobDescription)
	}

	run := &models.MatchRun{
		RecruiterID:    recruiterID,
		JobID:          jobID,
		JobDescription: jd,
		MinScore:       clampMinScore(req.MinScore),
		RecruiterDir:   req.RecruiterDir,
	}
	if err := s.runs.CreateMatchRunWithOutbox(ctx, run, s.cfg.Exchange, s.cfg.RoutingKey); err != nil {
		return nil, newMatchError(run.ID, "Submit", ErrEnqueueFailed, err.Error())
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("recruiter_id", recruiterID).
		Int("min_score", run.MinScore).
		Msg("匹配任务已排队")
	return run, nil
}

// StartMatchConsumer 开始消费匹配任务，ctx 取消后停止
func (s *MatchService) StartMatchConsumer(ctx context.Context, prefetch int) error {
	if s.consumer == nil {
		return errors.New("未配置消息队列，无法启动匹配消费者")
	}
	return s.consumer.StartConsumer(ctx, s.cfg.Queue, prefetch, func(body []byte) bool {
		return s.HandleTask(ctx, body)
	})
}

// HandleTask 处理一条任务消息，返回 false 表示需要重新入队
func (s *MatchService) HandleTask(ctx context.Context, body []byte) bool {
	var msg storage.MatchTaskMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.RunID == "" {
		// 无法解析的消息重试也不会成功
		s.logger.Error().Err(err).Bytes("body", body).Msg("丢弃无法解析的匹配任务消息")
		return true
	}

	err := s.Run(ctx, msg.RunID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMatchRunNotFound), errors.Is(err, ErrMatchRunLocked):
		s.logger.Warn().Err(err).Str("run_id", msg.RunID).Msg("跳过匹配任务")
		return true
	case errors.Is(err, ErrMatchInterrupted), ctx.Err() != nil:
		// 服务停止，留给下一个消费者
		s.logger.Info().Str("run_id", msg.RunID).Msg("匹配任务重新入队")
		return false
	default:
		s.logger.Error().Err(err).Str("run_id", msg.RunID).Msg("匹配任务执行失败")
		return true
	}
}

// Run 执行一个排队中的任务：加锁、匹配、保存报告、通知招聘者
func (s *MatchService) Run(ctx context.Context, runID string) (err error) {
	ctx, span := tracer.Start(ctx, "MatchService.Run")
	defer span.End()
	span.SetAttributes(attribute.String("match.run_id", runID))
	defer func() {
		switch {
		case err == nil, errors.Is(err, ErrMatchRunLocked):
		case errors.Is(err, ErrMatchInterrupted):
			tracing.RecordError(span, err, tracing.ErrorTypeTimeout)
		default:
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		}
	}()

	run, err := s.runs.GetMatchRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newMatchError(runID, "Run", ErrMatchRunNotFound, "")
		}
		return err
	}

	if s.cache != nil {
		lockKey := fmt.Sprintf(constants.KeyMatchLock, runID)
		lockValue, lockErr := s.cache.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
		if lockErr != nil {
			// Redis 不可用时仍然执行，依赖状态检查防止重复
			s.logger.Warn().Err(lockErr).Str("run_id", runID).Msg("获取匹配任务锁失败")
		} else if lockValue == "" {
			return newMatchError(runID, "Run", ErrMatchRunLocked, "")
		} else {
			defer func() {
				if _, err := s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue); err != nil {
					s.logger.Warn().Err(err).Str("run_id", runID).Msg("释放匹配任务锁失败")
				}
			}()
		}
	}

	ok, err := s.runs.MarkMatchRunRunning(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Info().Str("run_id", runID).Str("status", run.Status).Msg("任务已结束，忽略重复消息")
		return nil
	}

	report, matchErr := s.matcher.Match(ctx, MatchRequest{
		JobDescription: run.JobDescription,
		MinScore:       run.MinScore,
		RecruiterDir:   run.RecruiterDir,
	})
	if ctx.Err() != nil {
		// 服务停止时报告不完整，保持 RUNNING 由重新投递的消息继续执行
		s.logger.Warn().Str("run_id", runID).Msg("匹配任务被中断，等待重新投递")
		return newMatchError(runID, "Run", ErrMatchInterrupted, ctx.Err().Error())
	}
	// 结果落库不受任务 ctx 取消影响
	storeCtx := context.WithoutCancel(ctx)
	if matchErr != nil {
		reason := tracing.TruncateString(matchErr.Error(), tracing.MaxErrorLength)
		if err := s.runs.FailMatchRun(storeCtx, runID, reason, failedNotification(run, reason)); err != nil {
			return newMatchError(runID, "FailMatchRun", ErrStoreReportFailed, err.Error())
		}
		return matchErr
	}

	data, err := json.Marshal(report)
	if err != nil {
		return newMatchError(runID, "MarshalReport", ErrStoreReportFailed, err.Error())
	}
	if err := s.runs.CompleteMatchRun(storeCtx, runID, data, report.TotalFiles, len(report.Successes), completedNotification(run, report)); err != nil {
		return newMatchError(runID, "CompleteMatchRun", ErrStoreReportFailed, err.Error())
	}
	if s.cache != nil {
		if err := s.cache.CacheMatchReport(storeCtx, runID, data, s.cfg.ReportTTL); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("缓存匹配报告失败")
		}
	}

	span.SetAttributes(
		attribute.Int("match.total_files", report.TotalFiles),
		attribute.Int("match.success_count", len(report.Successes)),
	)
	s.logger.Info().
		Str("run_id", runID).
		Int("total", report.TotalFiles).
		Int("successes", len(report.Successes)).
		Int("filtered", len(report.Filtered)).
		Int("errors", len(report.Errors)).
		Msg("匹配任务完成")
	return nil
}

// Result 读取任务状态和报告，优先读缓存。recruiterID 非空时只返回本人的任务。
func (s *MatchService) Result(ctx context.Context, recruiterID, runID string) (*MatchResult, error) {
	run, err := s.runs.GetMatchRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMatchError(runID, "Result", ErrMatchRunNotFound, "")
		}
		return nil, err
	}
	if recruiterID != "" && run.RecruiterID != recruiterID {
		return nil, newMatchError(runID, "Result", ErrMatchRunNotFound, "")
	}

	result := &MatchResult{Run: run}
	if run.Status != constants.MatchRunCompleted {
		return result, nil
	}

	data := []byte(run.ReportJSON)
	if s.cache != nil {
		if cached, err := s.cache.GetMatchReport(ctx, runID); err == nil && len(cached) > 0 {
			data = cached
			result.Cached = true
		}
	}
	run.ReportJSON = nil
	if len(data) == 0 {
		return result, nil
	}

	var report types.BatchMatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("解析匹配报告失败: %w", err)
	}
	result.Report = &report
	return result, nil
}

func completedNotification(run *models.MatchRun, report *types.BatchMatchReport) *models.Notification {
	data, _ := models.MapToJSON(map[string]interface{}{
		"runId":        run.ID,
		"totalFiles":   report.TotalFiles,
		"successCount": len(report.Successes),
		"filtered":     len(report.Filtered),
		"errors":       len(report.Errors),
	})
	return &models.Notification{
		UserID:  run.RecruiterID,
		Type:    constants.NotificationMatchCompleted,
		Title:   "简历匹配已完成",
		Message: fmt.Sprintf("共处理%d份简历，%d份达到%d分", report.TotalFiles, len(report.Successes), run.MinScore),
		Data:    data,
	}
}

func failedNotification(run *models.MatchRun, reason string) *models.Notification {
	data, _ := models.MapToJSON(map[string]interface{}{"runId": run.ID})
	return &models.Notification{
		UserID:  run.RecruiterID,
		Type:    constants.NotificationMatchCompleted,
		Title:   "简历匹配失败",
		Message: reason,
		Data:    data,
	}
}
