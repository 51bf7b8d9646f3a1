package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

// ApplicationHandler 岗位投递
type ApplicationHandler struct {
	db *storage.MySQL
}

// NewApplicationHandler 创建投递处理器
func NewApplicationHandler(d Deps) *ApplicationHandler {
	return &ApplicationHandler{db: d.DB}
}

// ApplyRequest 投递请求
type ApplyRequest struct {
	JobID       string  `json:"jobId"`
	ResumeID    *string `json:"resumeId"`
	CoverLetter string  `json:"coverLetter"`
}

// StatusRequest 修改状态的请求
type StatusRequest struct {
	Status string `json:"status"`
}

// Create 求职者投递岗位，同一岗位只能投递一次
func (h *ApplicationHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req ApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.JobID == "" {
		writeError(c, consts.StatusBadRequest, "jobId 不能为空")
		return
	}
	user := currentUser(c)

	job, err := h.db.GetJobByID(ctx, req.JobID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	if job.Status != constants.JobStatusOpen {
		writeError(c, consts.StatusBadRequest, "岗位已停止招聘")
		return
	}
	if req.ResumeID != nil && *req.ResumeID != "" {
		resume, err := h.db.GetResumeByID(ctx, *req.ResumeID)
		if err != nil {
			writeErr(ctx, c, err)
			return
		}
		if resume.UserID != user.ID {
			writeErr(ctx, c, errForbidden)
			return
		}
	} else {
		req.ResumeID = nil
	}

	application := &models.Application{
		JobID:       job.ID,
		ApplicantID: user.ID,
		ResumeID:    req.ResumeID,
		CoverLetter: strings.TrimSpace(req.CoverLetter),
		Status:      constants.ApplicationPending,
	}
	data, _ := models.MapToJSON(map[string]interface{}{"jobId": job.ID, "applicantId": user.ID})
	notification := &models.Notification{
		UserID:  job.EmployerID,
		Type:    constants.NotificationNewApplication,
		Title:   "收到新的岗位申请",
		Message: fmt.Sprintf("%s 申请了 %s", displayName(user), job.Title),
		Data:    data,
	}
	if err := h.db.CreateApplication(ctx, application, notification); err != nil {
		if statusFor(err) == consts.StatusConflict {
			writeError(c, consts.StatusConflict, "已经投递过该岗位")
			return
		}
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, application)
}

// List 求职者看自己的投递，雇主看名下岗位收到的投递
func (h *ApplicationHandler) List(ctx context.Context, c *app.RequestContext) {
	user := currentUser(c)
	var (
		apps []models.Application
		err  error
	)
	switch user.Role {
	case constants.RoleEmployee:
		apps, err = h.db.ListApplicationsByApplicant(ctx, user.ID)
	case constants.RoleEmployer:
		apps, err = h.db.ListApplicationsForEmployer(ctx, user.ID)
	default:
		writeErr(ctx, c, errForbidden)
		return
	}
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"applications": apps, "total": len(apps)})
}

// Get 投递详情，投递者和岗位发布者可见
func (h *ApplicationHandler) Get(ctx context.Context, c *app.RequestContext) {
	application, err := h.db.GetApplicationByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	user := currentUser(c)
	if application.ApplicantID != user.ID && (application.Job == nil || application.Job.EmployerID != user.ID) {
		writeErr(ctx, c, errForbidden)
		return
	}
	c.JSON(consts.StatusOK, application)
}

// UpdateStatus 岗位发布者处理投递并通知求职者
func (h *ApplicationHandler) UpdateStatus(ctx context.Context, c *app.RequestContext) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !constants.ValidApplicationStatus(status) {
		writeError(c, consts.StatusBadRequest, "无效的申请状态: "+req.Status)
		return
	}

	application, err := h.db.GetApplicationByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	if application.Job == nil || application.Job.EmployerID != currentUser(c).ID {
		writeErr(ctx, c, errForbidden)
		return
	}

	data, _ := models.MapToJSON(map[string]interface{}{"applicationId": application.ID, "jobId": application.JobID, "status": status})
	notification := &models.Notification{
		UserID:  application.ApplicantID,
		Type:    constants.NotificationApplicationStatus,
		Title:   "申请状态已更新",
		Message: fmt.Sprintf("你对 %s 的申请状态变为 %s", application.Job.Title, status),
		Data:    data,
	}
	if err := h.db.UpdateApplicationStatus(ctx, application.ID, status, notification); err != nil {
		writeErr(ctx, c, err)
		return
	}
	application.Status = status
	c.JSON(consts.StatusOK, application)
}

// Delete 求职者撤回待处理的投递
func (h *ApplicationHandler) Delete(ctx context.Context, c *app.RequestContext) {
	application, err := h.db.GetApplicationByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	if application.ApplicantID != currentUser(c).ID {
		writeErr(ctx, c, errForbidden)
		return
	}
	if application.Status != constants.ApplicationPending {
		writeError(c, consts.StatusBadRequest, "只能撤回待处理的申请")
		return
	}
	if err := h.db.DeleteApplication(ctx, application.ID); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
