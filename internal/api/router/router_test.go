package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"job-board-go/internal/api/handler"
	"job-board-go/internal/api/router"
	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/parser"
	"job-board-go/internal/processor"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/types"
)

const testJD = "Senior Go engineer with Kubernetes, MySQL and Redis experience building REST services"

// memSessions 内存会话，代替 Redis
type memSessions struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memSessions) CreateSession(_ context.Context, token, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[token] = userID
	return nil
}

func (m *memSessions) GetSession(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.data[token]
	if !ok {
		return "", storage.ErrNotFound
	}
	return id, nil
}

func (m *memSessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, token)
	return nil
}

// memDedupe 内存MD5去重，代替 Redis
type memDedupe struct {
	mu   sync.Mutex
	seen map[string]string
}

func (d *memDedupe) CheckAndAddFileMD5(_ context.Context, owner, md5Hex, id string) (bool, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := owner + ":" + md5Hex
	if existing, ok := d.seen[key]; ok {
		return true, existing, nil
	}
	d.seen[key] = id
	return false, "", nil
}

func (d *memDedupe) RemoveFileMD5(_ context.Context, owner, md5Hex string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, owner+":"+md5Hex)
	return nil
}

// keywordEvaluator 按简历中出现 "golang" 给高分
type keywordEvaluator struct{}

func (keywordEvaluator) Evaluate(_ context.Context, _, resumeText string) (*types.MatchAnalysis, error) {
	score := 30
	if bytes.Contains(bytes.ToLower([]byte(resumeText)), []byte("golang")) {
		score = 85
	}
	return &types.MatchAnalysis{CandidateName: "Candidate", MatchScore: score}, nil
}

type testApp struct {
	h   *server.Hertz
	db  *storage.MySQL
	cfg *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Upload.Root = t.TempDir()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	db, err := storage.NewMySQLWithDialector(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &config.MySQLConfig{Database: "test", LogLevel: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	extractor := parser.NewFileTextExtractor(cfg.Upload.Root, nil)
	scanner := processor.NewDirectoryScanner(cfg.Upload.Root, zerolog.Nop())
	matcher := processor.NewBatchMatcher(scanner, extractor, keywordEvaluator{}, processor.WithCallDelay(0))

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(h, handler.Deps{
		Config:    cfg,
		DB:        db,
		Sessions:  &memSessions{data: map[string]string{}},
		Dedupe:    &memDedupe{seen: map[string]string{}},
		Extractor: extractor,
		Scanner:   scanner,
		Matcher:   matcher,
		Checks: map[string]handler.HealthCheck{
			"mysql": db.Ping,
		},
	})
	return &testApp{h: h, db: db, cfg: cfg}
}

func (a *testApp) do(method, url, token string, body interface{}) *ut.ResponseRecorder {
	var b *ut.Body
	headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
	if body != nil {
		data, _ := json.Marshal(body)
		b = &ut.Body{Body: bytes.NewReader(data), Len: len(data)}
	}
	if token != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	}
	return ut.PerformRequest(a.h.Engine, method, url, b, headers...)
}

func (a *testApp) upload(url, token, field string, files map[string]string) *ut.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, _ := w.CreateFormFile(field, name)
		_, _ = part.Write([]byte(content))
	}
	_ = w.Close()
	return ut.PerformRequest(a.h.Engine, consts.MethodPost, url,
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: w.FormDataContentType()},
		ut.Header{Key: "Authorization", Value: "Bearer " + token},
	)
}

func decode(t *testing.T, w *ut.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// register 注册并登录，返回令牌
func (a *testApp) register(t *testing.T, email, role string) string {
	t.Helper()
	w := a.do(consts.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret123", "name": email, "role": role,
	})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	return a.login(t, email, "secret123")
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	w := a.do(consts.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())
	var resp handler.LoginResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// adminToken 管理员不能自助注册，直接写库
func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.db.CreateUser(context.Background(), &models.User{
		Email: "admin@example.com", PasswordHash: string(hash), Role: constants.RoleAdmin,
	}, nil))
	return a.login(t, "admin@example.com", "admin-pass")
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)

	w := a.do(consts.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad", "password": "secret123"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	w = a.do(consts.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com", "password": "123"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	w = a.do(consts.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com", "password": "secret123", "role": "ADMIN"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	token := a.register(t, "Alice@Example.com", constants.RoleEmployee)

	w = a.do(consts.MethodPost, "/api/auth/register", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	assert.Equal(t, consts.StatusConflict, w.Code)

	w = a.do(consts.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong-pass"})
	assert.Equal(t, consts.StatusUnauthorized, w.Code)

	w = a.do(consts.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, consts.StatusUnauthorized, w.Code)

	w = a.do(consts.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	var me struct {
		User models.User `json:"user"`
	}
	decode(t, w, &me)
	assert.Equal(t, "alice@example.com", me.User.Email)
	assert.Equal(t, constants.RoleEmployee, me.User.Role)

	// 会话cookie同样有效
	cookie := ut.Header{Key: "Cookie", Value: a.cfg.Auth.CookieName + "=" + token}
	w = ut.PerformRequest(a.h.Engine, consts.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, consts.StatusOK, w.Code)

	w = a.do(consts.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, consts.StatusOK, w.Code)
	w = a.do(consts.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, consts.StatusUnauthorized, w.Code)
}

func TestJobsAndApplications(t *testing.T) {
	a := newTestApp(t)
	employer := a.register(t, "boss@example.com", constants.RoleEmployer)
	other := a.register(t, "other@example.com", constants.RoleEmployer)
	seeker := a.register(t, "seeker@example.com", constants.RoleEmployee)

	w := a.do(consts.MethodPost, "/api/jobs", seeker, map[string]interface{}{"title": "x", "description": "y"})
	assert.Equal(t, consts.StatusForbidden, w.Code)

	w = a.do(consts.MethodPost, "/api/jobs", employer, map[string]interface{}{
		"title": "Go Developer", "description": testJD, "jobTypes": []string{"full_time"}, "location": "Shanghai",
	})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var job models.Job
	decode(t, w, &job)
	assert.Equal(t, constants.JobStatusOpen, job.Status)
	assert.Equal(t, []string{"FULL_TIME"}, models.JSONToStrings(job.JobTypes))

	w = a.do(consts.MethodGet, "/api/jobs?type=full_time&q=Go", "", nil)
	require.Equal(t, consts.StatusOK, w.Code)
	var list struct {
		Jobs  []models.Job `json:"jobs"`
		Total int64        `json:"total"`
	}
	decode(t, w, &list)
	assert.EqualValues(t, 1, list.Total)

	w = a.do(consts.MethodPut, "/api/jobs/"+job.ID, other, map[string]interface{}{"title": "hijack"})
	assert.Equal(t, consts.StatusForbidden, w.Code)

	w = a.do(consts.MethodPost, "/api/applications", seeker, map[string]interface{}{"jobId": job.ID, "coverLetter": "hi"})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var application models.Application
	decode(t, w, &application)
	assert.Equal(t, constants.ApplicationPending, application.Status)

	w = a.do(consts.MethodPost, "/api/applications", seeker, map[string]interface{}{"jobId": job.ID})
	assert.Equal(t, consts.StatusConflict, w.Code)

	w = a.do(consts.MethodGet, "/api/jobs/"+job.ID+"/applications", employer, nil)
	assert.Equal(t, consts.StatusOK, w.Code)

	w = a.do(consts.MethodPatch, "/api/applications/"+application.ID+"/status", employer, map[string]string{"status": "bogus"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)
	w = a.do(consts.MethodPatch, "/api/applications/"+application.ID+"/status", other, map[string]string{"status": "ACCEPTED"})
	assert.Equal(t, consts.StatusForbidden, w.Code)
	w = a.do(consts.MethodPatch, "/api/applications/"+application.ID+"/status", employer, map[string]string{"status": "accepted"})
	assert.Equal(t, consts.StatusOK, w.Code, w.Body.String())

	// 已处理的投递不能撤回
	w = a.do(consts.MethodDelete, "/api/applications/"+application.ID, seeker, nil)
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	// 雇主收到投递通知，求职者收到状态变更通知
	w = a.do(consts.MethodGet, "/api/notifications", seeker, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	var notes struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unreadCount"`
	}
	decode(t, w, &notes)
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, constants.NotificationApplicationStatus, notes.Notifications[0].Type)
	assert.EqualValues(t, 1, notes.UnreadCount)

	w = a.do(consts.MethodDelete, "/api/jobs/"+job.ID, employer, nil)
	assert.Equal(t, consts.StatusOK, w.Code)
	w = a.do(consts.MethodGet, "/api/jobs/"+job.ID, "", nil)
	assert.Equal(t, consts.StatusNotFound, w.Code)
}

func TestResumeUploadLifecycle(t *testing.T) {
	a := newTestApp(t)
	token := a.register(t, "cv@example.com", constants.RoleEmployee)
	content := "Jane Doe\nGolang developer with eight years of backend experience."

	w := a.upload("/api/resumes/upload", token, "file", map[string]string{"jane cv.txt": content})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var resume models.Resume
	decode(t, w, &resume)
	assert.True(t, resume.IsPrimary)
	assert.Contains(t, resume.StoredFilename, "jane_cv.txt")
	_, err := os.Stat(filepath.Join(a.cfg.Upload.Root, resume.StoredFilename))
	require.NoError(t, err)

	w = a.upload("/api/resumes/upload", token, "file", map[string]string{"again.txt": content})
	require.Equal(t, consts.StatusConflict, w.Code)
	var dup handler.DuplicateResumeResponse
	decode(t, w, &dup)
	assert.Equal(t, resume.ID, dup.ExistingResumeID)

	w = a.upload("/api/resumes/upload", token, "file", map[string]string{"virus.exe": "MZ"})
	assert.Equal(t, consts.StatusUnsupportedMediaType, w.Code)

	w = a.do(consts.MethodGet, "/api/resumes/"+resume.ID+"/text", token, nil)
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Golang developer")

	// 上传文件可通过静态路径访问
	w = a.do(consts.MethodGet, resume.FileURL, "", nil)
	assert.Equal(t, consts.StatusOK, w.Code)

	other := a.register(t, "peer@example.com", constants.RoleEmployee)
	w = a.do(consts.MethodGet, "/api/resumes/"+resume.ID, other, nil)
	assert.Equal(t, consts.StatusForbidden, w.Code)

	w = a.do(consts.MethodDelete, "/api/resumes/"+resume.ID, token, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	_, err = os.Stat(filepath.Join(a.cfg.Upload.Root, resume.StoredFilename))
	assert.True(t, os.IsNotExist(err))

	// 删除后同样的内容可以再次上传
	w = a.upload("/api/resumes/upload", token, "file", map[string]string{"again.txt": content})
	assert.Equal(t, consts.StatusCreated, w.Code)
}

func TestRecruiterApprovalAndMatch(t *testing.T) {
	a := newTestApp(t)
	recruiter := a.register(t, "hunter@example.com", constants.RoleRecruiter)
	admin := a.adminToken(t)

	w := a.do(consts.MethodGet, "/api/recruiter/status", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), constants.ApprovalPending)

	w = a.do(consts.MethodPost, "/api/recruiter/match", recruiter, map[string]interface{}{"jobDescription": testJD})
	assert.Equal(t, consts.StatusForbidden, w.Code)

	w = a.do(consts.MethodGet, "/api/admin/recruiters", recruiter, nil)
	assert.Equal(t, consts.StatusForbidden, w.Code)

	w = a.do(consts.MethodGet, "/api/admin/recruiters?status=PENDING", admin, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	var pending struct {
		Recruiters []models.RecruiterProfile `json:"recruiters"`
	}
	decode(t, w, &pending)
	require.Len(t, pending.Recruiters, 1)

	w = a.do(consts.MethodPatch, "/api/admin/recruiters/"+pending.Recruiters[0].ID+"/approve", admin, nil)
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())

	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", map[string]string{
		"strong.txt": "Alex Chen\nGolang engineer, Kubernetes and MySQL in production.",
		"weak.txt":   "Sam Lee\nGraphic designer focusing on print media and branding.",
	})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var up struct {
		Uploaded   []handler.UploadResult `json:"uploaded"`
		Duplicates []handler.UploadResult `json:"duplicates"`
	}
	decode(t, w, &up)
	assert.Len(t, up.Uploaded, 2)

	w = a.do(consts.MethodGet, "/api/recruiter/resumes", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)

	w = a.do(consts.MethodPost, "/api/recruiter/match", recruiter, map[string]interface{}{"jobDescription": "short"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	w = a.do(consts.MethodPost, "/api/recruiter/match", recruiter, map[string]interface{}{"jobDescription": testJD, "minScore": 60})
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())
	var report types.BatchMatchReport
	decode(t, w, &report)
	assert.Equal(t, 2, report.TotalFiles)
	assert.Len(t, report.Successes, 1)
	assert.Len(t, report.Filtered, 1)
	assert.True(t, report.Consistent())

	w = a.do(consts.MethodPost, "/api/recruiter/match", recruiter, map[string]interface{}{"jobDescription": testJD, "scope": "nobody"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	// 没有配置消息队列时异步匹配不可用
	w = a.do(consts.MethodPost, "/api/recruiter/match/async", recruiter, map[string]interface{}{"jobDescription": testJD})
	assert.Equal(t, consts.StatusServiceUnavailable, w.Code)

	w = a.do(consts.MethodGet, "/api/recruiter/notifications?unread=true", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), constants.NotificationRecruiterApproved)
	w = a.do(consts.MethodPatch, "/api/recruiter/notifications/read-all", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":1`)
}

func TestRecruiterInterviews(t *testing.T) {
	a := newTestApp(t)
	recruiter := a.register(t, "iv@example.com", constants.RoleRecruiter)
	admin := a.adminToken(t)
	profiles, err := a.db.ListRecruiterProfiles(context.Background(), constants.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	w := a.do(consts.MethodPatch, "/api/admin/recruiters/"+profiles[0].ID+"/approve", admin, nil)
	require.Equal(t, consts.StatusOK, w.Code)

	when := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	w = a.do(consts.MethodPost, "/api/recruiter/interviews", recruiter, map[string]interface{}{
		"candidateName": "Alex Chen", "scheduledAt": when,
	})
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var iv models.Interview
	decode(t, w, &iv)
	assert.Equal(t, constants.InterviewScheduled, iv.Status)
	assert.Equal(t, 60, iv.DurationMinutes)

	w = a.do(consts.MethodPut, "/api/recruiter/interviews/"+iv.ID, recruiter, map[string]interface{}{"status": "DONE"})
	assert.Equal(t, consts.StatusBadRequest, w.Code)

	w = a.do(consts.MethodPut, "/api/recruiter/interviews/"+iv.ID, recruiter, map[string]interface{}{
		"status": "COMPLETED", "feedback": "solid", "overallRating": 4,
	})
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())

	w = a.do(consts.MethodGet, "/api/recruiter/interviews?status=COMPLETED", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = a.do(consts.MethodDelete, "/api/recruiter/interviews/"+iv.ID, recruiter, nil)
	assert.Equal(t, consts.StatusOK, w.Code)
	w = a.do(consts.MethodDelete, "/api/recruiter/interviews/"+iv.ID, recruiter, nil)
	assert.Equal(t, consts.StatusNotFound, w.Code)
}

func TestRecruiterResumeDeleteAllowsReupload(t *testing.T) {
	a := newTestApp(t)
	recruiter := a.register(t, "re@example.com", constants.RoleRecruiter)
	admin := a.adminToken(t)
	profiles, err := a.db.ListRecruiterProfiles(context.Background(), constants.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	w := a.do(consts.MethodPatch, "/api/admin/recruiters/"+profiles[0].ID+"/approve", admin, nil)
	require.Equal(t, consts.StatusOK, w.Code)

	cv := map[string]string{"alex.txt": "Alex Chen\nGolang engineer, Kubernetes and MySQL in production."}
	type uploadResp struct {
		Uploaded   []handler.UploadResult `json:"uploaded"`
		Duplicates []handler.UploadResult `json:"duplicates"`
	}

	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", cv)
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var first uploadResp
	decode(t, w, &first)
	require.Len(t, first.Uploaded, 1)
	stored := first.Uploaded[0].StoredFilename

	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", cv)
	require.Equal(t, consts.StatusOK, w.Code)
	var dup uploadResp
	decode(t, w, &dup)
	require.Len(t, dup.Duplicates, 1)
	assert.Equal(t, stored, dup.Duplicates[0].StoredFilename)

	w = a.do(consts.MethodDelete, "/api/recruiter/resumes/"+stored, recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code, w.Body.String())

	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", cv)
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var again uploadResp
	decode(t, w, &again)
	require.Len(t, again.Uploaded, 1)
	assert.Empty(t, again.Duplicates)

	w = a.do(consts.MethodGet, "/api/recruiter/resumes", recruiter, nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), again.Uploaded[0].StoredFilename)
}

func TestRecruiterUploadReplacesStaleDuplicateEntry(t *testing.T) {
	a := newTestApp(t)
	recruiter := a.register(t, "stale@example.com", constants.RoleRecruiter)
	admin := a.adminToken(t)
	profiles, err := a.db.ListRecruiterProfiles(context.Background(), constants.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	w := a.do(consts.MethodPatch, "/api/admin/recruiters/"+profiles[0].ID+"/approve", admin, nil)
	require.Equal(t, consts.StatusOK, w.Code)

	cv := map[string]string{"sam.txt": "Sam Lee\nGolang backend developer, gRPC and Redis."}
	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", cv)
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	var first struct {
		Uploaded []handler.UploadResult `json:"uploaded"`
	}
	decode(t, w, &first)
	require.Len(t, first.Uploaded, 1)

	// 文件在接口之外被删除
	require.NoError(t, os.Remove(filepath.Join(a.cfg.Upload.Root, profiles[0].UploadDir, first.Uploaded[0].StoredFilename)))

	w = a.upload("/api/recruiter/resumes/upload", recruiter, "files", cv)
	require.Equal(t, consts.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"duplicates":[]`)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	w := a.do(consts.MethodGet, "/api/health", "", nil)
	require.Equal(t, consts.StatusOK, w.Code)
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	decode(t, w, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Components["mysql"])
}
