package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/processor"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

// 匹配范围
const (
	ScopeMine = "mine"
	ScopeAll  = "all"
)

// RecruiterHandler 招聘者资料、简历目录和批量匹配
type RecruiterHandler struct {
	cfg     *config.Config
	db      *storage.MySQL
	dedupe  UploadDeduper
	scanner processor.ResumeScanner
	matcher processor.Matcher
	matches *processor.MatchService
	logger  zerolog.Logger
}

// NewRecruiterHandler 创建招聘者处理器
func NewRecruiterHandler(d Deps) *RecruiterHandler {
	return &RecruiterHandler{
		cfg:     d.Config,
		db:      d.DB,
		dedupe:  d.Dedupe,
		scanner: d.Scanner,
		matcher: d.Matcher,
		matches: d.Matches,
		logger:  logger.Component("recruiter-handler"),
	}
}

// ProfileInput 招聘者可修改的资料
type ProfileInput struct {
	Agency          string   `json:"agency"`
	Phone           string   `json:"phone"`
	Bio             string   `json:"bio"`
	Specializations []string `json:"specializations"`
}

// MatchBody 批量匹配请求
type MatchBody struct {
	JobDescription string  `json:"jobDescription"`
	MinScore       *int    `json:"minScore"`
	Scope          string  `json:"scope"` // mine 或 all，默认 mine
	JobID          *string `json:"jobId,omitempty"`
}

// UploadResult 批量上传中单个文件的结果
type UploadResult struct {
	Filename       string `json:"filename"`
	StoredFilename string `json:"storedFilename,omitempty"`
	Size           int64  `json:"size,omitempty"`
	Error          string `json:"error,omitempty"`
}

// GetProfile 当前招聘者的资料
func (h *RecruiterHandler) GetProfile(ctx context.Context, c *app.RequestContext) {
	profile, err := h.db.GetRecruiterProfile(ctx, currentUser(c).ID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, profile)
}

// UpdateProfile 修改资料，审批状态不受影响
func (h *RecruiterHandler) UpdateProfile(ctx context.Context, c *app.RequestContext) {
	var in ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	user := currentUser(c)
	err := h.db.UpdateRecruiterProfile(ctx, &models.RecruiterProfile{
		UserID:          user.ID,
		Agency:          strings.TrimSpace(in.Agency),
		Phone:           strings.TrimSpace(in.Phone),
		Bio:             strings.TrimSpace(in.Bio),
		Specializations: models.StringsToJSON(in.Specializations),
	})
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	h.GetProfile(ctx, c)
}

// Status 审批状态
func (h *RecruiterHandler) Status(ctx context.Context, c *app.RequestContext) {
	profile, err := h.db.GetRecruiterProfile(ctx, currentUser(c).ID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"approvalStatus": profile.ApprovalStatus,
		"approvedAt":     profile.ApprovedAt,
		"uploadDir":      profile.UploadDir,
	})
}

// UploadResumes 上传一个或多个简历文件到招聘者自己的子目录。
// 字段名 files 或 file；单个文件失败不影响其他文件。
func (h *RecruiterHandler) UploadResumes(ctx context.Context, c *app.RequestContext) {
	profile, ok := h.profile(ctx, c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		writeErr(ctx, c, errUploadMissing)
		return
	}
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		writeErr(ctx, c, errUploadMissing)
		return
	}

	uploaded := []UploadResult{}
	duplicates := []UploadResult{}
	failed := []UploadResult{}
	var firstErr error
	for _, fh := range headers {
		res, dup, err := h.saveRecruiterFile(ctx, profile, fh)
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, UploadResult{Filename: fh.Filename, Error: err.Error()})
		case dup:
			duplicates = append(duplicates, res)
		default:
			uploaded = append(uploaded, res)
		}
	}

	status := consts.StatusCreated
	switch {
	case len(uploaded) > 0:
	case len(duplicates) > 0:
		status = consts.StatusOK
	default:
		// 全部失败时沿用第一个错误的状态码
		status = statusFor(firstErr)
	}
	c.JSON(status, utils.H{
		"uploaded":   uploaded,
		"duplicates": duplicates,
		"errors":     failed,
	})
}

func (h *RecruiterHandler) saveRecruiterFile(ctx context.Context, profile *models.RecruiterProfile, fh *multipart.FileHeader) (UploadResult, bool, error) {
	up, err := readUpload(h.cfg, fh)
	if err != nil {
		return UploadResult{}, false, err
	}
	res := UploadResult{Filename: up.OriginalFilename, StoredFilename: up.StoredFilename, Size: up.Size}

	if h.dedupe != nil {
		exists, existing, err := h.dedupe.CheckAndAddFileMD5(ctx, profile.UserID, up.MD5, up.StoredFilename)
		if err != nil {
			h.logger.Warn().Err(err).Str("recruiter_id", profile.UserID).Msg("检查文件MD5失败")
		} else if exists {
			if _, statErr := os.Stat(filepath.Join(h.cfg.Upload.Root, profile.UploadDir, existing)); statErr == nil {
				res.StoredFilename = existing
				res.Size = 0
				return res, true, nil
			}
			// 登记的文件已不在磁盘上，改为登记本次上传
			h.logger.Warn().Str("recruiter_id", profile.UserID).Str("stale", existing).Msg("MD5登记指向的文件不存在")
			if err := h.dedupe.RemoveFileMD5(ctx, profile.UserID, up.MD5); err == nil {
				if _, _, err := h.dedupe.CheckAndAddFileMD5(ctx, profile.UserID, up.MD5, up.StoredFilename); err != nil {
					h.logger.Warn().Err(err).Str("recruiter_id", profile.UserID).Msg("重新登记文件MD5失败")
				}
			}
		}
	}

	if _, err := up.save(h.cfg.Upload.Root, profile.UploadDir); err != nil {
		if h.dedupe != nil {
			_ = h.dedupe.RemoveFileMD5(ctx, profile.UserID, up.MD5)
		}
		return UploadResult{}, false, err
	}
	return res, false, nil
}

// ListResumes 列出招聘者目录中的简历文件
func (h *RecruiterHandler) ListResumes(ctx context.Context, c *app.RequestContext) {
	profile, ok := h.profile(ctx, c)
	if !ok {
		return
	}
	files, err := h.scanner.ScanResumes(profile.UploadDir)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"files": files, "total": len(files)})
}

// DeleteResume 删除招聘者目录中的一个文件
func (h *RecruiterHandler) DeleteResume(ctx context.Context, c *app.RequestContext) {
	profile, ok := h.profile(ctx, c)
	if !ok {
		return
	}
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(c, consts.StatusBadRequest, "非法的文件名")
		return
	}
	p := filepath.Join(h.cfg.Upload.Root, profile.UploadDir, name)
	sum, sumErr := fileMD5(p)
	err := os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		err = storage.ErrNotFound
	}
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	// 删除后同样内容可以重新上传
	if h.dedupe != nil && sumErr == nil {
		if err := h.dedupe.RemoveFileMD5(ctx, profile.UserID, sum); err != nil {
			h.logger.Warn().Err(err).Str("recruiter_id", profile.UserID).Msg("撤销文件MD5登记失败")
		}
	}
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

// Match 同步批量匹配，返回完整报告
func (h *RecruiterHandler) Match(ctx context.Context, c *app.RequestContext) {
	req, ok := h.matchRequest(ctx, c)
	if !ok {
		return
	}
	report, err := h.matcher.Match(ctx, req)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, report)
}

// MatchAsync 提交异步匹配任务
func (h *RecruiterHandler) MatchAsync(ctx context.Context, c *app.RequestContext) {
	if h.matches == nil {
		writeError(c, consts.StatusServiceUnavailable, "异步匹配不可用")
		return
	}
	var body MatchBody
	req, ok := h.matchRequestWithBody(ctx, c, &body)
	if !ok {
		return
	}
	run, err := h.matches.Submit(ctx, currentUser(c).ID, req, body.JobID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusAccepted, utils.H{"run": run})
}

// MatchResult 异步任务的状态和报告
func (h *RecruiterHandler) MatchResult(ctx context.Context, c *app.RequestContext) {
	if h.matches == nil {
		writeError(c, consts.StatusServiceUnavailable, "异步匹配不可用")
		return
	}
	result, err := h.matches.Result(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// MatchRuns 最近的异步匹配任务
func (h *RecruiterHandler) MatchRuns(ctx context.Context, c *app.RequestContext) {
	runs, err := h.db.ListMatchRuns(ctx, currentUser(c).ID, queryInt(c, "limit", 0))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"runs": runs, "total": len(runs)})
}

func (h *RecruiterHandler) matchRequest(ctx context.Context, c *app.RequestContext) (processor.MatchRequest, bool) {
	var body MatchBody
	return h.matchRequestWithBody(ctx, c, &body)
}

func (h *RecruiterHandler) matchRequestWithBody(ctx context.Context, c *app.RequestContext, body *MatchBody) (processor.MatchRequest, bool) {
	if !bindJSON(c, body) {
		return processor.MatchRequest{}, false
	}
	req := processor.MatchRequest{
		JobDescription: body.JobDescription,
		MinScore:       h.cfg.Matcher.DefaultMinScore,
	}
	if body.MinScore != nil {
		req.MinScore = *body.MinScore
	}

	switch strings.ToLower(body.Scope) {
	case "", ScopeMine:
		profile, ok := h.profile(ctx, c)
		if !ok {
			return processor.MatchRequest{}, false
		}
		req.RecruiterDir = profile.UploadDir
	case ScopeAll:
	default:
		writeError(c, consts.StatusBadRequest, "scope 只能是 mine 或 all")
		return processor.MatchRequest{}, false
	}
	return req, true
}

func (h *RecruiterHandler) profile(ctx context.Context, c *app.RequestContext) (*models.RecruiterProfile, bool) {
	user := currentUser(c)
	if user.RecruiterProfile != nil {
		return user.RecruiterProfile, true
	}
	profile, err := h.db.GetRecruiterProfile(ctx, user.ID)
	if err != nil {
		writeErr(ctx, c, err)
		return nil, false
	}
	return profile, true
}
