package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"job-board-go/internal/constants"
	"job-board-go/internal/parser"
	"job-board-go/internal/tracing"
	"job-board-go/internal/types"
)

var tracer = otel.Tracer("processor")

// MatchRequest 一次批量匹配的输入
type MatchRequest struct {
	JobDescription string `json:"jobDescription"`
	MinScore       int    `json:"minScore"`
	// RecruiterDir 为空时扫描整个上传目录
	RecruiterDir string `json:"recruiterDir,omitempty"`
}

// BatchMatcher 逐个处理简历文件：提取文本、调用AI评估、按阈值归类
type BatchMatcher struct {
	scanner           ResumeScanner
	extractor         TextExtractor
	evaluator         MatchEvaluator
	callDelay         time.Duration
	maxResumeChars    int
	minJobDescription int
	minTextLength     int
	logger            zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// MatcherOption 批量匹配器选项
type MatcherOption func(*BatchMatcher)

// WithCallDelay 设置两次AI调用之间的固定间隔
func WithCallDelay(d time.Duration) MatcherOption {
	return func(m *BatchMatcher) {
		if d >= 0 {
			m.callDelay = d
		}
	}
}

// WithMaxResumeChars 设置送入AI的简历最大字符数
func WithMaxResumeChars(n int) MatcherOption {
	return func(m *BatchMatcher) {
		if n > 0 {
			m.maxResumeChars = n
		}
	}
}

// WithMinJobDescription 设置岗位描述的最短字符数
func WithMinJobDescription(n int) MatcherOption {
	return func(m *BatchMatcher) {
		if n > 0 {
			m.minJobDescription = n
		}
	}
}

// WithMatcherLogger 设置日志记录器
func WithMatcherLogger(logger zerolog.Logger) MatcherOption {
	return func(m *BatchMatcher) {
		m.logger = logger
	}
}

// NewBatchMatcher 创建批量匹配器
func NewBatchMatcher(scanner ResumeScanner, extractor TextExtractor, evaluator MatchEvaluator, opts ...MatcherOption) *BatchMatcher {
	m := &BatchMatcher{
		scanner:           scanner,
		extractor:         extractor,
		evaluator:         evaluator,
		callDelay:         constants.DefaultMatchCallDelay,
		maxResumeChars:    constants.MaxResumeChars,
		minJobDescription: constants.MinTextLength,
		minTextLength:     constants.MinTextLength,
		logger:            zerolog.Nop(),
		sleep:             sleepContext,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// fileOutcome 单个文件的处理结果，三者恰有一个非空
type fileOutcome struct {
	success  *types.MatchSuccess
	filtered *types.MatchFiltered
	failure  *types.MatchFailure
}

// Match 执行批量匹配。
// 每个文件最终落入成功、被过滤、失败三类之一；ctx 取消后剩余文件记为 unexpected 失败。
func (m *BatchMatcher) Match(ctx context.Context, req MatchRequest) (*types.BatchMatchReport, error) {
	jd := strings.TrimSpace(req.JobDescription)
	if utf8.RuneCountInString(jd) < m.minJobDescription {
		return nil, fmt.Errorf("%w: 至少需要%d个字符", ErrJobDescriptionTooShort, m.minJobDescription)
	}
	minScore := clampMinScore(req.MinScore)

	ctx, span := tracer.Start(ctx, "BatchMatcher.Match")
	defer span.End()
	span.SetAttributes(
		attribute.Int("match.min_score", minScore),
		attribute.String("match.recruiter_dir", req.RecruiterDir),
		attribute.String("match.job_description", tracing.SafeJobDescription(jd)),
	)

	start := m.now()
	files, err := m.scanner.ScanResumes(req.RecruiterDir)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, fmt.Errorf("扫描简历目录失败: %w", err)
	}
	span.SetAttributes(attribute.Int("match.total_files", len(files)))

	report := &types.BatchMatchReport{
		JobDescriptionDigest: digest(jd),
		MinScore:             minScore,
		RecruiterDir:         req.RecruiterDir,
		TotalFiles:           len(files),
		Successes:            []types.MatchSuccess{},
		Filtered:             []types.MatchFiltered{},
		Errors:               []types.MatchFailure{},
	}

	aiCalls := 0
	for i, file := range files {
		if ctx.Err() != nil {
			m.logger.Warn().Int("remaining", len(files)-i).Msg("批量匹配被取消")
			for _, rest := range files[i:] {
				report.Errors = append(report.Errors, cancelledFailure(rest, ctx.Err()))
			}
			break
		}

		out := m.matchFile(ctx, file, jd, minScore, &aiCalls)
		switch {
		case out.success != nil:
			report.Successes = append(report.Successes, *out.success)
		case out.filtered != nil:
			report.Filtered = append(report.Filtered, *out.filtered)
		default:
			report.Errors = append(report.Errors, *out.failure)
		}
	}

	sort.SliceStable(report.Successes, func(i, j int) bool {
		return report.Successes[i].Analysis.MatchScore > report.Successes[j].Analysis.MatchScore
	})

	report.ProcessedAt = m.now()
	report.DurationMillis = report.ProcessedAt.Sub(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("match.successes", len(report.Successes)),
		attribute.Int("match.filtered", len(report.Filtered)),
		attribute.Int("match.errors", len(report.Errors)),
	)
	if !report.Consistent() {
		err := fmt.Errorf("匹配结果计数不一致: %d+%d+%d != %d",
			len(report.Successes), len(report.Filtered), len(report.Errors), report.TotalFiles)
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	m.logger.Info().
		Int("total", report.TotalFiles).
		Int("successes", len(report.Successes)).
		Int("filtered", len(report.Filtered)).
		Int("errors", len(report.Errors)).
		Int64("duration_ms", report.DurationMillis).
		Msg("批量匹配完成")
	return report, nil
}

func (m *BatchMatcher) matchFile(ctx context.Context, file types.ResumeFile, jd string, minScore int, aiCalls *int) (out fileOutcome) {
	ctx, span := tracer.Start(ctx, "BatchMatcher.MatchFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("file.name", file.Name),
		attribute.String("file.subdir", file.SubdirName()),
	)
	log := m.logger.With().Str("file", file.Name).Str("subdir", file.SubdirName()).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("处理简历时发生panic")
			out = failed(file, types.StageUnexpected, fmt.Sprintf("panic: %v", r))
			recordFileFailure(span, fmt.Errorf("panic: %v", r), tracing.ErrorTypeInternal, types.StageUnexpected)
		}
	}()

	text, err := m.extractor.Extract(ctx, file.Name, file.SubdirName())
	if err != nil {
		stage := types.StageTextExtraction
		if errors.Is(err, parser.ErrInsufficientContent) {
			stage = types.StageInsufficientContent
		}
		log.Warn().Err(err).Str("stage", string(stage)).Msg("简历文本提取失败")
		recordFileFailure(span, err, tracing.ErrorTypeExtraction, stage)
		return failed(file, stage, err.Error())
	}

	text = strings.TrimSpace(text)
	chars := utf8.RuneCountInString(text)
	if chars < m.minTextLength {
		return failed(file, types.StageInsufficientContent,
			fmt.Sprintf("提取的文本只有%d个字符，至少需要%d个", chars, m.minTextLength))
	}

	truncated := false
	if chars > m.maxResumeChars {
		text = truncateRunes(text, m.maxResumeChars)
		truncated = true
		log.Debug().Int("chars", chars).Int("limit", m.maxResumeChars).Msg("简历文本已截断")
	}

	if *aiCalls > 0 {
		if err := m.sleep(ctx, m.callDelay); err != nil {
			return failed(file, types.StageUnexpected, "cancelled: "+err.Error())
		}
	}
	*aiCalls++

	analysis, err := m.evaluator.Evaluate(ctx, jd, text)
	if err != nil {
		log.Warn().Err(err).Msg("AI评估失败")
		recordFileFailure(span, err, tracing.ErrorTypeAI, types.StageAIAnalysis)
		return failed(file, types.StageAIAnalysis, err.Error())
	}
	if analysis == nil {
		return failed(file, types.StageUnexpected, "evaluator returned no analysis")
	}

	span.SetAttributes(
		attribute.Int("match.score", analysis.MatchScore),
		attribute.String("candidate.name", tracing.SafeAttributeValue("candidate.name", analysis.CandidateName, tracing.DefaultMaxLength)),
	)
	if analysis.MatchScore < minScore {
		return fileOutcome{filtered: &types.MatchFiltered{
			File:       file,
			MatchScore: analysis.MatchScore,
			Reason:     fmt.Sprintf("score %d below threshold %d", analysis.MatchScore, minScore),
		}}
	}
	return fileOutcome{success: &types.MatchSuccess{
		File:      file,
		Analysis:  *analysis,
		Truncated: truncated,
		TextChars: chars,
	}}
}

func recordFileFailure(span trace.Span, err error, errorType tracing.ErrorType, stage types.MatchStage) {
	tracing.RecordErrorWithInfo(span, err, errorType, attribute.String("match.stage", string(stage)))
}

func failed(file types.ResumeFile, stage types.MatchStage, msg string) fileOutcome {
	if stage == "" {
		stage = types.StageUnexpected
	}
	return fileOutcome{failure: &types.MatchFailure{File: file, Stage: stage, Error: msg}}
}

func cancelledFailure(file types.ResumeFile, err error) types.MatchFailure {
	return types.MatchFailure{File: file, Stage: types.StageUnexpected, Error: "cancelled: " + err.Error()}
}

func clampMinScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
