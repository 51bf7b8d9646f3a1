package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

// AdminHandler 管理员审核招聘者
type AdminHandler struct {
	db *storage.MySQL
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(d Deps) *AdminHandler {
	return &AdminHandler{db: d.DB}
}

// ListRecruiters 按审批状态列出招聘者，默认 PENDING；status=ALL 列出全部
func (h *AdminHandler) ListRecruiters(ctx context.Context, c *app.RequestContext) {
	status := strings.ToUpper(c.DefaultQuery("status", constants.ApprovalPending))
	switch status {
	case "ALL":
		status = ""
	case constants.ApprovalPending, constants.ApprovalApproved, constants.ApprovalRejected:
	default:
		writeError(c, consts.StatusBadRequest, "非法的审批状态")
		return
	}
	profiles, err := h.db.ListRecruiterProfiles(ctx, status)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"recruiters": profiles, "total": len(profiles)})
}

// Approve 通过招聘者审核
func (h *AdminHandler) Approve(ctx context.Context, c *app.RequestContext) {
	h.setApproval(ctx, c, constants.ApprovalApproved)
}

// Reject 拒绝招聘者审核
func (h *AdminHandler) Reject(ctx context.Context, c *app.RequestContext) {
	h.setApproval(ctx, c, constants.ApprovalRejected)
}

func (h *AdminHandler) setApproval(ctx context.Context, c *app.RequestContext, status string) {
	n := &models.Notification{
		Type:    constants.NotificationRecruiterApproved,
		Title:   "招聘者审核通过",
		Message: "您的招聘者账号已通过审核，现在可以上传简历并进行匹配。",
	}
	if status == constants.ApprovalRejected {
		n.Type = constants.NotificationRecruiterRejected
		n.Title = "招聘者审核未通过"
		n.Message = "您的招聘者账号未通过审核，如有疑问请联系管理员。"
	}

	profile, err := h.db.SetRecruiterApproval(ctx, c.Param("id"), status, n)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	logger.Ctx(ctx).Info().
		Str("profile_id", profile.ID).
		Str("recruiter_id", profile.UserID).
		Str("status", status).
		Str("admin_id", currentUser(c).ID).
		Msg("招聘者审核状态已更新")
	c.JSON(consts.StatusOK, profile)
}
