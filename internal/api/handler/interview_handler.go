package handler

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

const defaultInterviewMinutes = 60

// InterviewHandler 招聘者的面试安排
type InterviewHandler struct {
	db *storage.MySQL
}

// NewInterviewHandler 创建面试处理器
func NewInterviewHandler(d Deps) *InterviewHandler {
	return &InterviewHandler{db: d.DB}
}

// InterviewInput 创建或修改面试；修改时只应用非空字段
type InterviewInput struct {
	ApplicationID       *string    `json:"applicationId"`
	CandidateName       *string    `json:"candidateName"`
	CandidateEmail      *string    `json:"candidateEmail"`
	JobID               *string    `json:"jobId"`
	ScheduledAt         *time.Time `json:"scheduledAt"`
	DurationMinutes     *int       `json:"durationMinutes"`
	Location            *string    `json:"location"`
	Status              *string    `json:"status"`
	Feedback            *string    `json:"feedback"`
	TechnicalRating     *int       `json:"technicalRating"`
	CommunicationRating *int       `json:"communicationRating"`
	OverallRating       *int       `json:"overallRating"`
}

// List 面试列表，可按 status 过滤
func (h *InterviewHandler) List(ctx context.Context, c *app.RequestContext) {
	status := strings.ToUpper(c.Query("status"))
	if status != "" && !constants.ValidInterviewStatus(status) {
		writeError(c, consts.StatusBadRequest, "非法的面试状态")
		return
	}
	list, err := h.db.ListInterviews(ctx, currentUser(c).ID, status)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"interviews": list, "total": len(list)})
}

// Get 单个面试
func (h *InterviewHandler) Get(ctx context.Context, c *app.RequestContext) {
	interview, err := h.db.GetInterview(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, interview)
}

// Create 安排面试；关联投递时候选人信息取自投递者并通知本人
func (h *InterviewHandler) Create(ctx context.Context, c *app.RequestContext) {
	var in InterviewInput
	if !bindJSON(c, &in) {
		return
	}
	if in.ScheduledAt == nil || in.ScheduledAt.IsZero() {
		writeError(c, consts.StatusBadRequest, "缺少面试时间 scheduledAt")
		return
	}
	user := currentUser(c)
	interview := &models.Interview{
		RecruiterID:     user.ID,
		Status:          constants.InterviewScheduled,
		DurationMinutes: defaultInterviewMinutes,
	}
	if err := applyInterviewInput(interview, &in); err != nil {
		writeErr(ctx, c, err)
		return
	}

	var applicantID string
	if interview.ApplicationID != nil && *interview.ApplicationID != "" {
		application, err := h.db.GetApplicationByID(ctx, *interview.ApplicationID)
		if err != nil {
			writeErr(ctx, c, err)
			return
		}
		applicantID = application.ApplicantID
		if interview.JobID == nil {
			interview.JobID = &application.JobID
		}
		if applicant, err := h.db.GetUserByID(ctx, application.ApplicantID); err == nil {
			if interview.CandidateName == "" {
				interview.CandidateName = displayName(applicant)
			}
			if interview.CandidateEmail == "" {
				interview.CandidateEmail = applicant.Email
			}
		}
	}
	if strings.TrimSpace(interview.CandidateName) == "" {
		writeError(c, consts.StatusBadRequest, "缺少候选人姓名 candidateName")
		return
	}

	if err := h.db.CreateInterview(ctx, interview); err != nil {
		writeErr(ctx, c, err)
		return
	}
	if applicantID != "" {
		data, _ := models.MapToJSON(map[string]interface{}{
			"interviewId": interview.ID,
			"scheduledAt": interview.ScheduledAt,
		})
		err := h.db.CreateNotification(ctx, &models.Notification{
			UserID:  applicantID,
			Type:    constants.NotificationInterview,
			Title:   "面试邀请",
			Message: "您有一场面试安排在 " + interview.ScheduledAt.Format("2006-01-02 15:04"),
			Data:    data,
		})
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("interview_id", interview.ID).Msg("创建面试通知失败")
		}
	}
	c.JSON(consts.StatusCreated, interview)
}

// Update 修改面试信息、状态或反馈
func (h *InterviewHandler) Update(ctx context.Context, c *app.RequestContext) {
	var in InterviewInput
	if !bindJSON(c, &in) {
		return
	}
	interview, err := h.db.GetInterview(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	if err := applyInterviewInput(interview, &in); err != nil {
		writeErr(ctx, c, err)
		return
	}
	if err := h.db.UpdateInterview(ctx, interview); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, interview)
}

// Delete 删除面试
func (h *InterviewHandler) Delete(ctx context.Context, c *app.RequestContext) {
	if err := h.db.DeleteInterview(ctx, currentUser(c).ID, c.Param("id")); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

func applyInterviewInput(iv *models.Interview, in *InterviewInput) error {
	if in.ApplicationID != nil {
		iv.ApplicationID = in.ApplicationID
	}
	if in.CandidateName != nil {
		iv.CandidateName = strings.TrimSpace(*in.CandidateName)
	}
	if in.CandidateEmail != nil {
		iv.CandidateEmail = strings.TrimSpace(*in.CandidateEmail)
	}
	if in.JobID != nil {
		iv.JobID = in.JobID
	}
	if in.ScheduledAt != nil {
		iv.ScheduledAt = *in.ScheduledAt
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return errBadInput
		}
		iv.DurationMinutes = *in.DurationMinutes
	}
	if in.Location != nil {
		iv.Location = strings.TrimSpace(*in.Location)
	}
	if in.Status != nil {
		status := strings.ToUpper(*in.Status)
		if !constants.ValidInterviewStatus(status) {
			return errBadInput
		}
		iv.Status = status
	}
	if in.Feedback != nil {
		iv.Feedback = *in.Feedback
	}
	for _, r := range []*int{in.TechnicalRating, in.CommunicationRating, in.OverallRating} {
		if r != nil && (*r < 1 || *r > 5) {
			return errBadInput
		}
	}
	if in.TechnicalRating != nil {
		iv.TechnicalRating = in.TechnicalRating
	}
	if in.CommunicationRating != nil {
		iv.CommunicationRating = in.CommunicationRating
	}
	if in.OverallRating != nil {
		iv.OverallRating = in.OverallRating
	}
	return nil
}
