package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-board-go/internal/parser"
	"job-board-go/internal/types"
)

const testJD = "Senior Go engineer with Kubernetes experience"

type fakeScanner struct {
	files []types.ResumeFile
	err   error
	calls int
}

func (f *fakeScanner) ScanResumes(string) ([]types.ResumeFile, error) {
	f.calls++
	return f.files, f.err
}

// fakeExtractor 按文件名返回文本或错误
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
	panic map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, filename, _ string) (string, error) {
	if f.panic[filename] {
		panic("boom")
	}
	if err, ok := f.errs[filename]; ok {
		return "", err
	}
	return f.texts[filename], nil
}

// fakeEvaluator 从简历文本的 "score=N" 前缀读取分数
type fakeEvaluator struct {
	err      error
	inputs   []string
	onCall   func(n int)
	scoreFor func(text string) int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string, text string) (*types.MatchAnalysis, error) {
	f.inputs = append(f.inputs, text)
	if f.onCall != nil {
		f.onCall(len(f.inputs))
	}
	if f.err != nil {
		return nil, f.err
	}
	score := 0
	if f.scoreFor != nil {
		score = f.scoreFor(text)
	} else {
		fmt.Sscanf(text, "score=%d", &score)
	}
	return &types.MatchAnalysis{CandidateName: text[:7], MatchScore: score, ExperienceMatch: types.ExperienceMeets}, nil
}

func files(names ...string) []types.ResumeFile {
	out := make([]types.ResumeFile, 0, len(names))
	for _, n := range names {
		out = append(out, types.ResumeFile{Name: n, Path: "/uploads/" + n})
	}
	return out
}

func newTestMatcher(s ResumeScanner, e TextExtractor, ev MatchEvaluator, sleeps *[]time.Duration) *BatchMatcher {
	m := NewBatchMatcher(s, e, ev)
	m.sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return ctx.Err()
	}
	return m
}

func TestMatchRejectsShortJobDescriptionBeforeScanning(t *testing.T) {
	sc := &fakeScanner{files: files("a.txt")}
	m := newTestMatcher(sc, &fakeExtractor{}, &fakeEvaluator{}, nil)

	_, err := m.Match(context.Background(), MatchRequest{JobDescription: "  Go dev  "})
	assert.ErrorIs(t, err, ErrJobDescriptionTooShort)
	assert.Zero(t, sc.calls, "描述过短时不应扫描目录")
}

func TestMatchClassifiesEveryFile(t *testing.T) {
	sc := &fakeScanner{files: files("high.txt", "low.txt", "mid.txt", "missing.pdf", "short.txt", "ai.txt", "panic.txt", "top.txt")}
	ex := &fakeExtractor{
		texts: map[string]string{
			"high.txt": "score=80 strong backend resume",
			"low.txt":  "score=20 unrelated resume text",
			"mid.txt":  "score=80 another backend resume",
			"ai.txt":   "score=99 resume that breaks the model",
			"top.txt":  "score=95 excellent resume text",
		},
		errs: map[string]error{
			"missing.pdf": fmt.Errorf("wrapped: %w", parser.ErrNotFound),
			"short.txt":   fmt.Errorf("wrapped: %w", parser.ErrInsufficientContent),
		},
		panic: map[string]bool{"panic.txt": true},
	}
	ev := &fakeEvaluator{}
	ev.scoreFor = func(text string) int {
		if strings.Contains(text, "breaks") {
			panic("unreachable")
		}
		var s int
		fmt.Sscanf(text, "score=%d", &s)
		return s
	}

	m := newTestMatcher(sc, ex, ev, nil)
	report, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD, MinScore: 50})
	require.NoError(t, err)

	assert.Equal(t, 8, report.TotalFiles)
	assert.True(t, report.Consistent())
	assert.Equal(t, len(report.Successes)+len(report.Filtered)+len(report.Errors), report.TotalFiles)

	require.Len(t, report.Successes, 3)
	assert.Equal(t, "top.txt", report.Successes[0].File.Name)
	assert.Equal(t, "high.txt", report.Successes[1].File.Name, "同分保持扫描顺序")
	assert.Equal(t, "mid.txt", report.Successes[2].File.Name)

	require.Len(t, report.Filtered, 1)
	assert.Equal(t, "low.txt", report.Filtered[0].File.Name)
	assert.Equal(t, 20, report.Filtered[0].MatchScore)

	stages := map[string]types.MatchStage{}
	for _, e := range report.Errors {
		stages[e.File.Name] = e.Stage
	}
	assert.Equal(t, map[string]types.MatchStage{
		"missing.pdf": types.StageTextExtraction,
		"short.txt":   types.StageInsufficientContent,
		"ai.txt":      types.StageUnexpected,
		"panic.txt":   types.StageUnexpected,
	}, stages)
}

func TestMatchTagsEvaluatorFailures(t *testing.T) {
	sc := &fakeScanner{files: files("a.txt")}
	ex := &fakeExtractor{texts: map[string]string{"a.txt": "score=70 some resume body"}}
	m := newTestMatcher(sc, ex, &fakeEvaluator{err: errors.New("429 rate limited")}, nil)

	report, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, types.StageAIAnalysis, report.Errors[0].Stage)
	assert.Contains(t, report.Errors[0].Error, "429")
}

func TestMatchDelaysBetweenAICallsOnly(t *testing.T) {
	sc := &fakeScanner{files: files("a.txt", "bad.txt", "b.txt", "c.txt")}
	ex := &fakeExtractor{
		texts: map[string]string{
			"a.txt": "score=60 resume a body",
			"b.txt": "score=61 resume b body",
			"c.txt": "score=62 resume c body",
		},
		errs: map[string]error{"bad.txt": parser.ErrUnsupportedFormat},
	}
	var sleeps []time.Duration
	m := newTestMatcher(sc, ex, &fakeEvaluator{}, &sleeps)
	m.callDelay = 500 * time.Millisecond

	_, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, sleeps, "第一次AI调用前不等待，提取失败不计入")
}

func TestMatchTruncatesLongResumes(t *testing.T) {
	long := "score=90 " + strings.Repeat("简", 200)
	sc := &fakeScanner{files: files("long.txt")}
	ex := &fakeExtractor{texts: map[string]string{"long.txt": long}}
	ev := &fakeEvaluator{}
	m := newTestMatcher(sc, ex, ev, nil)
	m.maxResumeChars = 50

	report, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD})
	require.NoError(t, err)
	require.Len(t, report.Successes, 1)
	assert.True(t, report.Successes[0].Truncated)
	assert.Equal(t, utf8.RuneCountInString(long), report.Successes[0].TextChars)
	require.Len(t, ev.inputs, 1)
	assert.Equal(t, 50, utf8.RuneCountInString(ev.inputs[0]))
	assert.True(t, utf8.ValidString(ev.inputs[0]))
}

func TestMatchClampsMinScore(t *testing.T) {
	sc := &fakeScanner{files: files("a.txt")}
	ex := &fakeExtractor{texts: map[string]string{"a.txt": "score=100 perfect resume"}}
	m := newTestMatcher(sc, ex, &fakeEvaluator{}, nil)

	report, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD, MinScore: 250})
	require.NoError(t, err)
	assert.Equal(t, 100, report.MinScore)
	assert.Len(t, report.Successes, 1)

	report, err = m.Match(context.Background(), MatchRequest{JobDescription: testJD, MinScore: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, report.MinScore)
}

func TestMatchCancellationKeepsCountsConsistent(t *testing.T) {
	sc := &fakeScanner{files: files("a.txt", "b.txt", "c.txt", "d.txt")}
	ex := &fakeExtractor{texts: map[string]string{
		"a.txt": "score=70 resume a body",
		"b.txt": "score=70 resume b body",
		"c.txt": "score=70 resume c body",
		"d.txt": "score=70 resume d body",
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ev := &fakeEvaluator{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	m := newTestMatcher(sc, ex, ev, nil)

	report, err := m.Match(ctx, MatchRequest{JobDescription: testJD})
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Len(t, report.Successes, 2)
	require.Len(t, report.Errors, 2)
	for _, e := range report.Errors {
		assert.Equal(t, types.StageUnexpected, e.Stage)
		assert.Contains(t, e.Error, "cancelled")
	}
	assert.Len(t, ev.inputs, 2, "取消后不再调用AI")
}

func TestMatchScanFailure(t *testing.T) {
	sc := &fakeScanner{err: ErrUploadRootUnavailable}
	m := newTestMatcher(sc, &fakeExtractor{}, &fakeEvaluator{}, nil)
	_, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD})
	assert.ErrorIs(t, err, ErrUploadRootUnavailable)
}

func TestMatchEmptyDirectory(t *testing.T) {
	m := newTestMatcher(&fakeScanner{}, &fakeExtractor{}, &fakeEvaluator{}, nil)
	report, err := m.Match(context.Background(), MatchRequest{JobDescription: testJD})
	require.NoError(t, err)
	assert.Zero(t, report.TotalFiles)
	assert.NotNil(t, report.Successes)
	assert.NotEmpty(t, report.JobDescriptionDigest)
}
