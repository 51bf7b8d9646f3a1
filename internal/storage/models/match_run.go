package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MatchRun 招聘者提交的一次异步批量匹配
type MatchRun struct {
	ID             string         `gorm:"type:char(36);primaryKey" json:"id"`
	RecruiterID    string         `gorm:"type:char(36);not null;index:idx_match_runs_recruiter" json:"recruiterId"`
	JobID          *string        `gorm:"type:char(36)" json:"jobId"`
	JobDescription string         `gorm:"type:text;not null" json:"jobDescription"`
	MinScore       int            `json:"minScore"`
	RecruiterDir   string         `gorm:"type:varchar(100)" json:"recruiterDir"`
	Status         string         `gorm:"type:varchar(20);not null;default:'QUEUED';index:idx_match_runs_status" json:"status"`
	ReportJSON     datatypes.JSON `gorm:"type:json" json:"report,omitempty"`
	Error          string         `gorm:"type:text" json:"error,omitempty"`
	TotalFiles     int            `json:"totalFiles"`
	SuccessCount   int            `json:"successCount"`
	StartedAt      *time.Time     `gorm:"precision:6" json:"startedAt"`
	CompletedAt    *time.Time     `gorm:"precision:6" json:"completedAt"`
	CreatedAt      time.Time      `gorm:"precision:6" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"precision:6" json:"updatedAt"`
}

func (MatchRun) TableName() string {
	return "match_runs"
}

func (m *MatchRun) BeforeCreate(*gorm.DB) error {
	return ensureID(&m.ID)
}
