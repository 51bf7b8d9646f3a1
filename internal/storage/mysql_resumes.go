package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"job-board-go/internal/storage/models"
)

// CreateResume 保存简历记录；IsPrimary 为真时同一事务内取消该用户其他主简历
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	ctx, span := m.startSpan(ctx, "MySQL.CreateResume", "INSERT", "resumes")
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(resume).Error; err != nil {
			return translateErr(err)
		}
		if resume.IsPrimary {
			return setPrimary(tx, resume)
		}
		return nil
	})
	endSpan(span, err)
	return err
}

// GetResumeByID 获取简历记录
func (m *MySQL) GetResumeByID(ctx context.Context, id string) (*models.Resume, error) {
	var resume models.Resume
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error; err != nil {
		return nil, translateErr(err)
	}
	return &resume, nil
}

// ListResumesByUser 列出用户的简历，主简历在前
func (m *MySQL) ListResumesByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	var resumes []models.Resume
	err := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC").Order("created_at DESC").
		Find(&resumes).Error
	return resumes, err
}

// SetPrimaryResume 把简历设为主简历，其余简历取消主简历标记
func (m *MySQL) SetPrimaryResume(ctx context.Context, userID, resumeID string) (*models.Resume, error) {
	var resume models.Resume
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", resumeID, userID).First(&resume).Error; err != nil {
			return translateErr(err)
		}
		resume.IsPrimary = true
		return setPrimary(tx, &resume)
	})
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

func setPrimary(tx *gorm.DB, resume *models.Resume) error {
	if err := tx.Model(&models.Resume{}).
		Where("user_id = ? AND id <> ?", resume.UserID, resume.ID).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Resume{}).Where("id = ?", resume.ID).Update("is_primary", true).Error; err != nil {
		return err
	}
	// 用户资料上的简历链接指向主简历
	return tx.Model(&models.User{}).Where("id = ?", resume.UserID).Update("resume_url", resume.FileURL).Error
}

// DeleteResume 删除简历记录；删除的是主简历时清空用户的简历链接
func (m *MySQL) DeleteResume(ctx context.Context, resume *models.Resume) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", resume.ID).Delete(&models.Resume{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if resume.IsPrimary {
			return tx.Model(&models.User{}).Where("id = ?", resume.UserID).Update("resume_url", nil).Error
		}
		return nil
	})
}

// CreateInterview 创建面试安排
func (m *MySQL) CreateInterview(ctx context.Context, interview *models.Interview) error {
	return translateErr(m.db.WithContext(ctx).Create(interview).Error)
}

// GetInterview 获取招聘者名下的面试
func (m *MySQL) GetInterview(ctx context.Context, recruiterID, id string) (*models.Interview, error) {
	var interview models.Interview
	err := m.db.WithContext(ctx).Where("id = ? AND recruiter_id = ?", id, recruiterID).First(&interview).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &interview, nil
}

// ListInterviews 列出招聘者的面试，按时间升序；status 为空不过滤
func (m *MySQL) ListInterviews(ctx context.Context, recruiterID, status string) ([]models.Interview, error) {
	q := m.db.WithContext(ctx).Where("recruiter_id = ?", recruiterID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var interviews []models.Interview
	err := q.Order("scheduled_at ASC").Find(&interviews).Error
	return interviews, err
}

// UpdateInterview 保存面试的全部字段
func (m *MySQL) UpdateInterview(ctx context.Context, interview *models.Interview) error {
	return m.db.WithContext(ctx).Save(interview).Error
}

// DeleteInterview 删除招聘者名下的面试
func (m *MySQL) DeleteInterview(ctx context.Context, recruiterID, id string) error {
	res := m.db.WithContext(ctx).Where("id = ? AND recruiter_id = ?", id, recruiterID).Delete(&models.Interview{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateNotification 创建通知
func (m *MySQL) CreateNotification(ctx context.Context, n *models.Notification) error {
	return m.db.WithContext(ctx).Create(n).Error
}

// ListNotifications 列出用户通知（新的在前）并返回未读数
func (m *MySQL) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, int64, error) {
	q := m.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []models.Notification
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, 0, err
	}

	var unread int64
	err := m.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

// MarkNotificationRead 标记单条通知为已读
func (m *MySQL) MarkNotificationRead(ctx context.Context, userID, id string) error {
	var n models.Notification
	if err := m.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return translateErr(err)
	}
	if n.IsRead {
		return nil
	}
	return m.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	}).Error
}

// MarkAllNotificationsRead 标记用户全部通知为已读，返回更新条数
func (m *MySQL) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := m.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}
