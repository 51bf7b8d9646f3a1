package storage

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage/models"
)

// JobFilter 岗位列表查询条件
type JobFilter struct {
	Query      string // 匹配标题和描述
	JobType    string
	Location   string
	Status     string
	EmployerID string
	Page       int
	PageSize   int
}

func (f *JobFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = constants.DefaultPageSize
	}
	if f.PageSize > constants.MaxPageSize {
		f.PageSize = constants.MaxPageSize
	}
}

// CreateJob 创建岗位
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	if job.Status == "" {
		job.Status = constants.JobStatusOpen
	}
	return translateErr(m.db.WithContext(ctx).Create(job).Error)
}

// GetJobByID 通过ID获取岗位
func (m *MySQL) GetJobByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, translateErr(err)
	}
	return &job, nil
}

// ListJobs 分页查询岗位，按创建时间倒序，返回当前页和总数
func (m *MySQL) ListJobs(ctx context.Context, filter JobFilter) ([]models.Job, int64, error) {
	filter.normalize()
	ctx, span := m.startSpan(ctx, "MySQL.ListJobs", "SELECT", "jobs")
	var err error
	defer func() { endSpan(span, err) }()

	q := m.db.WithContext(ctx).Model(&models.Job{})
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if filter.JobType != "" {
		// job_types 存的是JSON数组，按带引号的元素匹配
		q = q.Where("job_types LIKE ?", `%"`+filter.JobType+`"%`)
	}
	if filter.Location != "" {
		q = q.Where("location LIKE ?", "%"+filter.Location+"%")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EmployerID != "" {
		q = q.Where("employer_id = ?", filter.EmployerID)
	}

	var total int64
	if err = q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.Job
	err = q.Order("created_at DESC").Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// UpdateJob 保存岗位的全部字段
func (m *MySQL) UpdateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Save(job).Error
}

// DeleteJob 删除岗位及其投递记录
func (m *MySQL) DeleteJob(ctx context.Context, id string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Job{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateApplication 投递岗位；重复投递返回 ErrDuplicate
func (m *MySQL) CreateApplication(ctx context.Context, app *models.Application, notification *models.Notification) error {
	ctx, span := m.startSpan(ctx, "MySQL.CreateApplication", "INSERT", "applications")
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Application{}).
			Where("job_id = ? AND applicant_id = ?", app.JobID, app.ApplicantID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		if app.Status == "" {
			app.Status = constants.ApplicationPending
		}
		if err := tx.Create(app).Error; err != nil {
			return translateErr(err)
		}
		if notification != nil {
			return tx.Create(notification).Error
		}
		return nil
	})
	endSpan(span, err)
	return err
}

// GetApplicationByID 获取投递记录，附带岗位
func (m *MySQL) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := m.db.WithContext(ctx).Preload("Job").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, translateErr(err)
	}
	return &app, nil
}

// ListApplicationsByApplicant 求职者自己的投递
func (m *MySQL) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).Preload("Job").
		Where("applicant_id = ?", applicantID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// ListApplicationsForEmployer 雇主名下所有岗位收到的投递
func (m *MySQL) ListApplicationsForEmployer(ctx context.Context, employerID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).Preload("Job").Preload("Applicant").
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Where("jobs.employer_id = ?", employerID).
		Order("applications.created_at DESC").
		Find(&apps).Error
	return apps, err
}

// ListApplicationsByJob 某个岗位收到的投递
func (m *MySQL) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).Preload("Applicant").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// UpdateApplicationStatus 修改投递状态并通知求职者
func (m *MySQL) UpdateApplicationStatus(ctx context.Context, id, status string, notification *models.Notification) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Application{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if notification != nil {
			return tx.Create(notification).Error
		}
		return nil
	})
}

// DeleteApplication 删除投递记录
func (m *MySQL) DeleteApplication(ctx context.Context, id string) error {
	res := m.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
