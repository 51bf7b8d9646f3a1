package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/types"
)

type fakeRunStore struct {
	mu            sync.Mutex
	runs          map[string]*models.MatchRun
	notifications []*models.Notification
	exchange      string
	routingKey    string
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[string]*models.MatchRun{}}
}

func (f *fakeRunStore) CreateMatchRunWithOutbox(_ context.Context, run *models.MatchRun, exchange, routingKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = "run-" + string(rune('a'+len(f.runs)))
	run.Status = constants.MatchRunQueued
	f.runs[run.ID] = run
	f.exchange, f.routingKey = exchange, routingKey
	return nil
}

func (f *fakeRunStore) GetMatchRun(_ context.Context, id string) (*models.MatchRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRunStore) MarkMatchRunRunning(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[id]
	if run.Status != constants.MatchRunQueued && run.Status != constants.MatchRunRunning {
		return false, nil
	}
	run.Status = constants.MatchRunRunning
	return true, nil
}

func (f *fakeRunStore) CompleteMatchRun(_ context.Context, id string, report []byte, totalFiles, successCount int, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[id]
	run.Status = constants.MatchRunCompleted
	run.ReportJSON = datatypes.JSON(report)
	run.TotalFiles = totalFiles
	run.SuccessCount = successCount
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeRunStore) FailMatchRun(_ context.Context, id, reason string, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[id]
	run.Status = constants.MatchRunFailed
	run.Error = reason
	f.notifications = append(f.notifications, n)
	return nil
}

type fakeCache struct {
	reports map[string][]byte
	locks   map[string]string
	lockErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{reports: map[string][]byte{}, locks: map[string]string{}}
}

func (c *fakeCache) CacheMatchReport(_ context.Context, runID string, report []byte, _ time.Duration) error {
	c.reports[runID] = report
	return nil
}

func (c *fakeCache) GetMatchReport(_ context.Context, runID string) ([]byte, error) {
	data, ok := c.reports[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (c *fakeCache) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if c.lockErr != nil {
		return "", c.lockErr
	}
	if _, held := c.locks[key]; held {
		return "", nil
	}
	c.locks[key] = "token"
	return "token", nil
}

func (c *fakeCache) ReleaseLock(_ context.Context, key, value string) (bool, error) {
	if c.locks[key] != value {
		return false, nil
	}
	delete(c.locks, key)
	return true, nil
}

type stubMatcher struct {
	report *types.BatchMatchReport
	err    error
	calls  int
	last   MatchRequest
}

func (m *stubMatcher) Match(_ context.Context, req MatchRequest) (*types.BatchMatchReport, error) {
	m.calls++
	m.last = req
	return m.report, m.err
}

func sampleReport() *types.BatchMatchReport {
	return &types.BatchMatchReport{
		MinScore:   60,
		TotalFiles: 2,
		Successes: []types.MatchSuccess{{
			File:     types.ResumeFile{Name: "jane.pdf"},
			Analysis: types.MatchAnalysis{CandidateName: "Jane", MatchScore: 88},
		}},
		Filtered: []types.MatchFiltered{{File: types.ResumeFile{Name: "bob.txt"}, MatchScore: 30}},
		Errors:   []types.MatchFailure{},
	}
}

func newTestService(m Matcher, store *fakeRunStore, cache ReportCache) *MatchService {
	return NewMatchService(m, store, cache, nil, MatchServiceConfig{
		Exchange:   "match_events_exchange",
		RoutingKey: "match.requested",
		Queue:      "match_requests_queue",
	}, zerolog.Nop())
}

func TestSubmitQueuesRunWithClampedScore(t *testing.T) {
	store := newFakeRunStore()
	svc := newTestService(&stubMatcher{}, store, nil)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{
		JobDescription: "  Senior Go engineer, distributed systems  ",
		MinScore:       150,
		RecruiterDir:   "rec-1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.MatchRunQueued, run.Status)
	assert.Equal(t, 100, run.MinScore)
	assert.Equal(t, "Senior Go engineer, distributed systems", run.JobDescription)
	assert.Equal(t, "match_events_exchange", store.exchange)
	assert.Equal(t, "match.requested", store.routingKey)

	_, err = svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "short"}, nil)
	assert.ErrorIs(t, err, ErrJobDescriptionTooShort)
}

func TestRunCompletesCachesAndNotifies(t *testing.T) {
	store := newFakeRunStore()
	cache := newFakeCache()
	matcher := &stubMatcher{report: sampleReport()}
	svc := newTestService(matcher, store, cache)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "Senior Go engineer", MinScore: 60, RecruiterDir: "rec-1"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background(), run.ID))
	assert.Equal(t, "rec-1", matcher.last.RecruiterDir)
	assert.Equal(t, 60, matcher.last.MinScore)

	stored, _ := store.GetMatchRun(context.Background(), run.ID)
	assert.Equal(t, constants.MatchRunCompleted, stored.Status)
	assert.Equal(t, 2, stored.TotalFiles)
	assert.Equal(t, 1, stored.SuccessCount)
	assert.Contains(t, cache.reports, run.ID)
	assert.Empty(t, cache.locks, "完成后释放锁")

	require.Len(t, store.notifications, 1)
	assert.Equal(t, "rec-1", store.notifications[0].UserID)
	assert.Equal(t, constants.NotificationMatchCompleted, store.notifications[0].Type)

	// 重复消息不会再次执行
	require.NoError(t, svc.Run(context.Background(), run.ID))
	assert.Equal(t, 1, matcher.calls)
}

func TestRunRecordsMatcherFailure(t *testing.T) {
	store := newFakeRunStore()
	matcher := &stubMatcher{err: errors.New("扫描简历目录失败: permission denied")}
	svc := newTestService(matcher, store, newFakeCache())

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "Senior Go engineer"}, nil)
	require.NoError(t, err)

	err = svc.Run(context.Background(), run.ID)
	require.Error(t, err)

	stored, _ := store.GetMatchRun(context.Background(), run.ID)
	assert.Equal(t, constants.MatchRunFailed, stored.Status)
	assert.Contains(t, stored.Error, "permission denied")
	require.Len(t, store.notifications, 1)
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	store := newFakeRunStore()
	cache := newFakeCache()
	matcher := &stubMatcher{report: sampleReport()}
	svc := newTestService(matcher, store, cache)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "Senior Go engineer"}, nil)
	require.NoError(t, err)
	cache.locks["app:match:lock:"+run.ID] = "other"

	err = svc.Run(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrMatchRunLocked)
	assert.Zero(t, matcher.calls)

	assert.True(t, svc.HandleTask(context.Background(), mustTask(t, run.ID)), "被锁的任务直接确认")
}

func TestHandleTaskAcksUnknownAndMalformedMessages(t *testing.T) {
	svc := newTestService(&stubMatcher{}, newFakeRunStore(), nil)
	assert.True(t, svc.HandleTask(context.Background(), []byte("not json")))
	assert.True(t, svc.HandleTask(context.Background(), mustTask(t, "missing")))
}

func TestResultPrefersCacheAndChecksOwner(t *testing.T) {
	store := newFakeRunStore()
	cache := newFakeCache()
	svc := newTestService(&stubMatcher{report: sampleReport()}, store, cache)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "Senior Go engineer"}, nil)
	require.NoError(t, err)

	pending, err := svc.Result(context.Background(), "rec-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.MatchRunQueued, pending.Run.Status)
	assert.Nil(t, pending.Report)

	require.NoError(t, svc.Run(context.Background(), run.ID))

	res, err := svc.Result(context.Background(), "rec-1", run.ID)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	require.NotNil(t, res.Report)
	assert.Equal(t, 2, res.Report.TotalFiles)

	delete(cache.reports, run.ID)
	res, err = svc.Result(context.Background(), "rec-1", run.ID)
	require.NoError(t, err)
	assert.False(t, res.Cached, "缓存过期后读数据库")
	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.Successes, 1)

	_, err = svc.Result(context.Background(), "rec-2", run.ID)
	assert.ErrorIs(t, err, ErrMatchRunNotFound)
}

func mustTask(t *testing.T, runID string) []byte {
	t.Helper()
	data, err := json.Marshal(storage.MatchTaskMessage{RunID: runID})
	require.NoError(t, err)
	return data
}

func TestHandleTaskRequeuesRunInterruptedByShutdown(t *testing.T) {
	store := newFakeRunStore()
	cache := newFakeCache()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev := &fakeEvaluator{onCall: func(int) { cancel() }}
	matcher := newTestMatcher(
		&fakeScanner{files: files("a.txt", "b.txt", "c.txt")},
		&fakeExtractor{texts: map[string]string{
			"a.txt": "score=90 alice resume text",
			"b.txt": "score=90 bob resume text",
			"c.txt": "score=90 carol resume text",
		}},
		ev, nil)
	svc := newTestService(matcher, store, cache)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: testJD, MinScore: 60}, nil)
	require.NoError(t, err)

	assert.False(t, svc.HandleTask(ctx, mustTask(t, run.ID)), "中断的任务应重新入队")

	stored, _ := store.GetMatchRun(context.Background(), run.ID)
	assert.Equal(t, constants.MatchRunRunning, stored.Status)
	assert.Empty(t, stored.ReportJSON)
	assert.Empty(t, store.notifications, "中断时不通知招聘者")
	assert.NotContains(t, cache.reports, run.ID)
	assert.Empty(t, cache.locks, "中断后释放锁")

	// 重新投递后完整执行
	ev.onCall = nil
	assert.True(t, svc.HandleTask(context.Background(), mustTask(t, run.ID)))
	stored, _ = store.GetMatchRun(context.Background(), run.ID)
	assert.Equal(t, constants.MatchRunCompleted, stored.Status)
	assert.Equal(t, 3, stored.SuccessCount)
	require.Len(t, store.notifications, 1)
}

func TestSubmitUsesConfiguredMinimumJobDescription(t *testing.T) {
	svc := NewMatchService(&stubMatcher{}, newFakeRunStore(), nil, nil, MatchServiceConfig{MinJobDescription: 30}, zerolog.Nop())

	_, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: "Senior Go engineer"}, nil)
	assert.ErrorIs(t, err, ErrJobDescriptionTooShort)

	run, err := svc.Submit(context.Background(), "rec-1", MatchRequest{JobDescription: testJD}, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.MatchRunQueued, run.Status)
}
