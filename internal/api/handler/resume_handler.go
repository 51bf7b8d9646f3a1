package handler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/parser"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

const presignedURLExpiry = 15 * time.Minute

// ResumeHandler 求职者的简历管理
type ResumeHandler struct {
	cfg       *config.Config
	db        *storage.MySQL
	dedupe    UploadDeduper
	objects   storage.ObjectStorage
	extractor ResumeTextExtractor
	logger    zerolog.Logger
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(d Deps) *ResumeHandler {
	return &ResumeHandler{
		cfg:       d.Config,
		db:        d.DB,
		dedupe:    d.Dedupe,
		objects:   d.Objects,
		extractor: d.Extractor,
		logger:    logger.Component("resume-handler"),
	}
}

// DuplicateResumeResponse 重复上传时返回已有简历
type DuplicateResumeResponse struct {
	Error            string `json:"error"`
	ExistingResumeID string `json:"existingResumeId"`
}

// Upload 上传简历文件并登记。
// 同一用户重复上传相同内容返回409；第一份简历自动成为主简历。
func (h *ResumeHandler) Upload(ctx context.Context, c *app.RequestContext) {
	user := currentUser(c)
	fh, err := c.FormFile("file")
	if err != nil {
		writeErr(ctx, c, errUploadMissing)
		return
	}
	up, err := readUpload(h.cfg, fh)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	resumeID := id.String()

	if h.dedupe != nil {
		exists, existingID, err := h.dedupe.CheckAndAddFileMD5(ctx, user.ID, up.MD5, resumeID)
		if err != nil {
			// 去重不可用时仍允许上传
			h.logger.Warn().Err(err).Str("user_id", user.ID).Msg("检查文件MD5失败")
		} else if exists {
			c.JSON(consts.StatusConflict, DuplicateResumeResponse{Error: "已经上传过相同的简历文件", ExistingResumeID: existingID})
			return
		}
	}

	path, err := up.save(h.cfg.Upload.Root, "")
	if err != nil {
		h.rollbackMD5(ctx, user.ID, up.MD5)
		writeErr(ctx, c, err)
		return
	}

	resume := &models.Resume{
		ID:               resumeID,
		UserID:           user.ID,
		Title:            strings.TrimSpace(c.PostForm("title")),
		ExperienceLevel:  strings.TrimSpace(c.PostForm("experience_level")),
		FileURL:          publicURL(h.cfg, "", up.StoredFilename),
		OriginalFilename: up.OriginalFilename,
		StoredFilename:   up.StoredFilename,
		FileSize:         up.Size,
		FileMD5:          up.MD5,
	}
	if resume.Title == "" {
		resume.Title = strings.TrimSuffix(up.OriginalFilename, filepath.Ext(up.OriginalFilename))
	}
	resume.IsPrimary, _ = strconv.ParseBool(c.PostForm("is_primary"))
	if !resume.IsPrimary {
		existing, err := h.db.ListResumesByUser(ctx, user.ID)
		if err == nil && len(existing) == 0 {
			resume.IsPrimary = true
		}
	}

	if h.objects != nil {
		key, err := h.objects.UploadResumeFile(ctx, user.ID, resumeID, up.Ext, bytes.NewReader(up.Data), up.Size)
		if err != nil {
			h.logger.Warn().Err(err).Str("resume_id", resumeID).Msg("镜像简历到对象存储失败")
		} else {
			resume.ObjectKey = key
		}
	}

	if err := h.db.CreateResume(ctx, resume); err != nil {
		_ = os.Remove(path)
		h.rollbackMD5(ctx, user.ID, up.MD5)
		writeErr(ctx, c, err)
		return
	}

	h.logger.Info().Str("resume_id", resumeID).Str("user_id", user.ID).Int64("size", up.Size).Msg("简历上传成功")
	c.JSON(consts.StatusCreated, resume)
}

// List 当前用户的简历，主简历在前
func (h *ResumeHandler) List(ctx context.Context, c *app.RequestContext) {
	resumes, err := h.db.ListResumesByUser(ctx, currentUser(c).ID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"resumes": resumes, "total": len(resumes)})
}

// Get 简历详情
func (h *ResumeHandler) Get(ctx context.Context, c *app.RequestContext) {
	resume, ok := h.ownedResume(ctx, c)
	if !ok {
		return
	}
	c.JSON(consts.StatusOK, resume)
}

// SetPrimary 设为主简历
func (h *ResumeHandler) SetPrimary(ctx context.Context, c *app.RequestContext) {
	resume, err := h.db.SetPrimaryResume(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resume)
}

// Delete 删除简历记录和文件
func (h *ResumeHandler) Delete(ctx context.Context, c *app.RequestContext) {
	resume, ok := h.ownedResume(ctx, c)
	if !ok {
		return
	}
	if err := h.db.DeleteResume(ctx, resume); err != nil {
		writeErr(ctx, c, err)
		return
	}

	p := filepath.Join(h.cfg.Upload.Root, resume.Subdir, resume.StoredFilename)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.logger.Warn().Err(err).Str("path", p).Msg("删除简历文件失败")
	}
	if h.objects != nil && resume.ObjectKey != "" {
		if err := h.objects.DeleteResumeFile(ctx, resume.ObjectKey); err != nil {
			h.logger.Warn().Err(err).Str("object_key", resume.ObjectKey).Msg("删除对象存储中的简历失败")
		}
	}
	h.rollbackMD5(ctx, resume.UserID, resume.FileMD5)
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

// Text 提取简历文本；本地文件缺失时从对象存储读取
func (h *ResumeHandler) Text(ctx context.Context, c *app.RequestContext) {
	resume, ok := h.ownedResume(ctx, c)
	if !ok {
		return
	}

	text, err := h.extractor.Extract(ctx, resume.StoredFilename, resume.Subdir)
	if parser.KindOf(err) == parser.KindNotFound && h.objects != nil && resume.ObjectKey != "" {
		data, getErr := h.objects.GetResumeFile(ctx, resume.ObjectKey)
		if getErr == nil {
			text, err = h.extractor.ExtractBytes(ctx, resume.StoredFilename, data)
		}
	}
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"resumeId": resume.ID,
		"text":     text,
		"chars":    utf8.RuneCountInString(text),
	})
}

// Download 下载原始文件；本地文件缺失时重定向到对象存储的临时链接
func (h *ResumeHandler) Download(ctx context.Context, c *app.RequestContext) {
	resume, ok := h.ownedResume(ctx, c)
	if !ok {
		return
	}

	data, err := os.ReadFile(filepath.Join(h.cfg.Upload.Root, resume.Subdir, resume.StoredFilename))
	if errors.Is(err, os.ErrNotExist) {
		if h.objects != nil && resume.ObjectKey != "" {
			url, err := h.objects.GetPresignedURL(ctx, resume.ObjectKey, presignedURLExpiry)
			if err != nil {
				writeErr(ctx, c, err)
				return
			}
			c.Redirect(consts.StatusFound, []byte(url))
			return
		}
		err = storage.ErrNotFound
	}
	if err != nil {
		writeErr(ctx, c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+resume.StoredFilename+`"`)
	c.Data(consts.StatusOK, storage.ContentTypeForExt(filepath.Ext(resume.StoredFilename)), data)
}

func (h *ResumeHandler) ownedResume(ctx context.Context, c *app.RequestContext) (*models.Resume, bool) {
	resume, err := h.db.GetResumeByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return nil, false
	}
	if resume.UserID != currentUser(c).ID {
		writeErr(ctx, c, errForbidden)
		return nil, false
	}
	return resume, true
}

func (h *ResumeHandler) rollbackMD5(ctx context.Context, ownerID, md5Hex string) {
	if h.dedupe == nil || md5Hex == "" {
		return
	}
	if err := h.dedupe.RemoveFileMD5(ctx, ownerID, md5Hex); err != nil {
		h.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("撤销文件MD5登记失败")
	}
}
