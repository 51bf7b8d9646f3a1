package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage/models"
)

// CreateUser 创建用户；招聘者会同时创建待审批的资料，两者在同一事务中写入
func (m *MySQL) CreateUser(ctx context.Context, user *models.User, profile *models.RecruiterProfile) error {
	ctx, span := m.startSpan(ctx, "MySQL.CreateUser", "INSERT", "users")
	var err error
	defer func() { endSpan(span, err) }()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(user).Error; err != nil {
			return translateErr(err)
		}
		if profile == nil {
			return nil
		}
		profile.UserID = user.ID
		if profile.UploadDir == "" {
			// 用户ID只含字母数字和连字符，可直接作为子目录名
			profile.UploadDir = user.ID
		}
		if profile.ApprovalStatus == "" {
			profile.ApprovalStatus = constants.ApprovalPending
		}
		if err := tx.Create(profile).Error; err != nil {
			return translateErr(err)
		}
		user.RecruiterProfile = profile
		return nil
	})
	return err
}

// GetUserByID 通过ID获取用户，招聘者附带资料
func (m *MySQL) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).Preload("RecruiterProfile").Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

// GetUserByEmail 通过邮箱获取用户，邮箱不区分大小写
func (m *MySQL) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).Preload("RecruiterProfile").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

// GetRecruiterProfile 获取招聘者资料
func (m *MySQL) GetRecruiterProfile(ctx context.Context, userID string) (*models.RecruiterProfile, error) {
	var profile models.RecruiterProfile
	if err := m.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translateErr(err)
	}
	return &profile, nil
}

// UpdateRecruiterProfile 更新招聘者可编辑的资料字段
func (m *MySQL) UpdateRecruiterProfile(ctx context.Context, profile *models.RecruiterProfile) error {
	res := m.db.WithContext(ctx).Model(&models.RecruiterProfile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"agency":          profile.Agency,
			"phone":           profile.Phone,
			"bio":             profile.Bio,
			"specializations": profile.Specializations,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecruiterProfiles 按审批状态列出招聘者，status 为空时列出全部
func (m *MySQL) ListRecruiterProfiles(ctx context.Context, status string) ([]models.RecruiterProfile, error) {
	q := m.db.WithContext(ctx).Preload("User").Order("created_at ASC")
	if status != "" {
		q = q.Where("approval_status = ?", status)
	}
	var profiles []models.RecruiterProfile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// SetRecruiterApproval 审批招聘者并通知本人，两者在同一事务中写入
func (m *MySQL) SetRecruiterApproval(ctx context.Context, profileID, status string, notification *models.Notification) (*models.RecruiterProfile, error) {
	if status != constants.ApprovalApproved && status != constants.ApprovalRejected {
		return nil, errors.New("审批状态只能是 APPROVED 或 REJECTED")
	}

	ctx, span := m.startSpan(ctx, "MySQL.SetRecruiterApproval", "UPDATE", "recruiter_profiles")
	var profile models.RecruiterProfile
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", profileID).First(&profile).Error; err != nil {
			return translateErr(err)
		}
		updates := map[string]interface{}{"approval_status": status}
		if status == constants.ApprovalApproved {
			now := time.Now()
			updates["approved_at"] = now
			profile.ApprovedAt = &now
		} else {
			updates["approved_at"] = nil
			profile.ApprovedAt = nil
		}
		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return err
		}
		profile.ApprovalStatus = status
		if notification != nil {
			notification.UserID = profile.UserID
			return tx.Create(notification).Error
		}
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
