package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

// JobHandler 岗位的增删改查
type JobHandler struct {
	db *storage.MySQL
}

// NewJobHandler 创建岗位处理器
func NewJobHandler(d Deps) *JobHandler {
	return &JobHandler{db: d.DB}
}

// JobInput 创建和修改岗位的请求体，修改时空字段保持原值
type JobInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Benefits     []string `json:"benefits"`
	Skills       []string `json:"skills"`
	JobTypes     []string `json:"jobTypes"`
	Location     string   `json:"location"`
	SalaryText   string   `json:"salaryText"`
	Status       string   `json:"status"`
}

// List 公开的岗位列表，默认只列招聘中的岗位，status=ALL 列出全部
func (h *JobHandler) List(ctx context.Context, c *app.RequestContext) {
	page, pageSize := pageParams(c)
	status := strings.ToUpper(c.Query("status"))
	switch status {
	case "":
		status = constants.JobStatusOpen
	case "ALL":
		status = ""
	}

	jobs, total, err := h.db.ListJobs(ctx, storage.JobFilter{
		Query:      c.Query("q"),
		JobType:    strings.ToUpper(c.Query("type")),
		Location:   c.Query("location"),
		Status:     status,
		EmployerID: c.Query("employerId"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"jobs": jobs, "total": total, "page": page, "pageSize": pageSize})
}

// Get 岗位详情
func (h *JobHandler) Get(ctx context.Context, c *app.RequestContext) {
	job, err := h.db.GetJobByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, job)
}

// Create 雇主发布岗位
func (h *JobHandler) Create(ctx context.Context, c *app.RequestContext) {
	var in JobInput
	if !bindJSON(c, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		writeError(c, consts.StatusBadRequest, "标题和描述不能为空")
		return
	}
	status := strings.ToUpper(in.Status)
	if status == "" {
		status = constants.JobStatusOpen
	}
	if !validJobStatus(status) {
		writeError(c, consts.StatusBadRequest, "岗位状态只能是 OPEN 或 CLOSED")
		return
	}

	job := &models.Job{
		EmployerID:   currentUser(c).ID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Requirements: models.StringsToJSON(in.Requirements),
		Benefits:     models.StringsToJSON(in.Benefits),
		Skills:       models.StringsToJSON(in.Skills),
		JobTypes:     models.StringsToJSON(upperAll(in.JobTypes)),
		Location:     strings.TrimSpace(in.Location),
		SalaryText:   strings.TrimSpace(in.SalaryText),
		Status:       status,
	}
	if err := h.db.CreateJob(ctx, job); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, job)
}

// Update 岗位发布者修改岗位
func (h *JobHandler) Update(ctx context.Context, c *app.RequestContext) {
	job, ok := h.ownedJob(ctx, c)
	if !ok {
		return
	}
	var in JobInput
	if !bindJSON(c, &in) {
		return
	}

	if s := strings.TrimSpace(in.Title); s != "" {
		job.Title = s
	}
	if strings.TrimSpace(in.Description) != "" {
		job.Description = in.Description
	}
	if in.Requirements != nil {
		job.Requirements = models.StringsToJSON(in.Requirements)
	}
	if in.Benefits != nil {
		job.Benefits = models.StringsToJSON(in.Benefits)
	}
	if in.Skills != nil {
		job.Skills = models.StringsToJSON(in.Skills)
	}
	if in.JobTypes != nil {
		job.JobTypes = models.StringsToJSON(upperAll(in.JobTypes))
	}
	if in.Location != "" {
		job.Location = strings.TrimSpace(in.Location)
	}
	if in.SalaryText != "" {
		job.SalaryText = strings.TrimSpace(in.SalaryText)
	}
	if in.Status != "" {
		status := strings.ToUpper(in.Status)
		if !validJobStatus(status) {
			writeError(c, consts.StatusBadRequest, "岗位状态只能是 OPEN 或 CLOSED")
			return
		}
		job.Status = status
	}

	if err := h.db.UpdateJob(ctx, job); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, job)
}

// Delete 删除岗位及其投递
func (h *JobHandler) Delete(ctx context.Context, c *app.RequestContext) {
	job, ok := h.ownedJob(ctx, c)
	if !ok {
		return
	}
	if err := h.db.DeleteJob(ctx, job.ID); err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true})
}

// Applications 岗位收到的投递，仅发布者可见
func (h *JobHandler) Applications(ctx context.Context, c *app.RequestContext) {
	job, ok := h.ownedJob(ctx, c)
	if !ok {
		return
	}
	apps, err := h.db.ListApplicationsByJob(ctx, job.ID)
	if err != nil {
		writeErr(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"applications": apps, "total": len(apps)})
}

// ownedJob 读取路径中的岗位并校验当前用户是发布者
func (h *JobHandler) ownedJob(ctx context.Context, c *app.RequestContext) (*models.Job, bool) {
	job, err := h.db.GetJobByID(ctx, c.Param("id"))
	if err != nil {
		writeErr(ctx, c, err)
		return nil, false
	}
	user := currentUser(c)
	if user == nil || (job.EmployerID != user.ID && user.Role != constants.RoleAdmin) {
		writeErr(ctx, c, errForbidden)
		return nil, false
	}
	return job, true
}

func validJobStatus(s string) bool {
	return s == constants.JobStatusOpen || s == constants.JobStatusClosed
}

func upperAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
