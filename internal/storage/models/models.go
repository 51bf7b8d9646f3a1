package models

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 平台用户，角色为 EMPLOYEE / EMPLOYER / RECRUITER / ADMIN
type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_unique" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Role         string    `gorm:"type:varchar(20);not null;index:idx_users_role" json:"role"`
	ResumeURL    *string   `gorm:"type:varchar(1024)" json:"resumeUrl"`
	CompanyName  string    `gorm:"type:varchar(255)" json:"companyName,omitempty"`
	CreatedAt    time.Time `gorm:"precision:6" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"precision:6" json:"updatedAt"`

	RecruiterProfile *RecruiterProfile `gorm:"foreignKey:UserID;references:ID" json:"recruiterProfile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return ensureID(&u.ID)
}

// RecruiterProfile 招聘者资料及审批状态
type RecruiterProfile struct {
	ID              string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string         `gorm:"type:char(36);not null;uniqueIndex:idx_recruiter_profiles_user_unique" json:"userId"`
	Agency          string         `gorm:"type:varchar(255)" json:"agency"`
	Phone           string         `gorm:"type:varchar(50)" json:"phone"`
	Bio             string         `gorm:"type:text" json:"bio"`
	Specializations datatypes.JSON `gorm:"type:json" json:"specializations"`
	ApprovalStatus  string         `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_recruiter_profiles_status" json:"approvalStatus"`
	ApprovedAt      *time.Time     `gorm:"precision:6" json:"approvedAt"`
	// UploadDir 招聘者在上传根目录下的子目录名
	UploadDir string    `gorm:"type:varchar(100)" json:"uploadDir"`
	CreatedAt time.Time `gorm:"precision:6" json:"createdAt"`
	UpdatedAt time.Time `gorm:"precision:6" json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (RecruiterProfile) TableName() string {
	return "recruiter_profiles"
}

func (p *RecruiterProfile) BeforeCreate(*gorm.DB) error {
	return ensureID(&p.ID)
}

// Job 雇主发布的岗位
type Job struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	EmployerID   string         `gorm:"type:char(36);not null;index:idx_jobs_employer_id" json:"employerId"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	Requirements datatypes.JSON `gorm:"type:json" json:"requirements"`
	Benefits     datatypes.JSON `gorm:"type:json" json:"benefits"`
	Skills       datatypes.JSON `gorm:"type:json" json:"skills"`
	JobTypes     datatypes.JSON `gorm:"type:json" json:"jobTypes"`
	Location     string         `gorm:"type:varchar(255)" json:"location"`
	SalaryText   string         `gorm:"type:varchar(255)" json:"salaryText"`
	Status       string         `gorm:"type:varchar(20);not null;default:'OPEN';index:idx_jobs_status" json:"status"`
	CreatedAt    time.Time      `gorm:"precision:6;index:idx_jobs_created_at" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"precision:6" json:"updatedAt"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	return ensureID(&j.ID)
}

// Application 求职者对岗位的投递，同一人对同一岗位只能投递一次
type Application struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	JobID       string    `gorm:"type:char(36);not null;uniqueIndex:idx_applications_job_applicant,priority:1" json:"jobId"`
	ApplicantID string    `gorm:"type:char(36);not null;uniqueIndex:idx_applications_job_applicant,priority:2;index:idx_applications_applicant" json:"applicantId"`
	ResumeID    *string   `gorm:"type:char(36)" json:"resumeId"`
	CoverLetter string    `gorm:"type:text" json:"coverLetter"`
	Status      string    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_applications_status" json:"status"`
	CreatedAt   time.Time `gorm:"precision:6" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"precision:6" json:"updatedAt"`

	Job       *Job  `gorm:"foreignKey:JobID;references:ID" json:"job,omitempty"`
	Applicant *User `gorm:"foreignKey:ApplicantID;references:ID" json:"applicant,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	return ensureID(&a.ID)
}

// Interview 招聘者安排的面试
type Interview struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	ApplicationID       *string   `gorm:"type:char(36);index:idx_interviews_application" json:"applicationId"`
	CandidateName       string    `gorm:"type:varchar(255);not null" json:"candidateName"`
	CandidateEmail      string    `gorm:"type:varchar(255)" json:"candidateEmail"`
	RecruiterID         string    `gorm:"type:char(36);not null;index:idx_interviews_recruiter" json:"recruiterId"`
	JobID               *string   `gorm:"type:char(36)" json:"jobId"`
	ScheduledAt         time.Time `gorm:"precision:6;not null;index:idx_interviews_scheduled_at" json:"scheduledAt"`
	DurationMinutes     int       `gorm:"default:60" json:"durationMinutes"`
	Location            string    `gorm:"type:varchar(255)" json:"location"`
	Status              string    `gorm:"type:varchar(20);not null;default:'SCHEDULED'" json:"status"`
	Feedback            string    `gorm:"type:text" json:"feedback"`
	TechnicalRating     *int      `json:"technicalRating"`
	CommunicationRating *int      `json:"communicationRating"`
	OverallRating       *int      `json:"overallRating"`
	CreatedAt           time.Time `gorm:"precision:6" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"precision:6" json:"updatedAt"`
}

func (Interview) TableName() string {
	return "interviews"
}

func (i *Interview) BeforeCreate(*gorm.DB) error {
	return ensureID(&i.ID)
}

// Resume 上传的简历文件记录
type Resume struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           string    `gorm:"type:char(36);not null;index:idx_resumes_user" json:"userId"`
	Title            string    `gorm:"type:varchar(255)" json:"title"`
	ExperienceLevel  string    `gorm:"type:varchar(50)" json:"experienceLevel"`
	IsPrimary        bool      `gorm:"default:false" json:"isPrimary"`
	FileURL          string    `gorm:"type:varchar(1024)" json:"fileUrl"`
	OriginalFilename string    `gorm:"type:varchar(255)" json:"originalFilename"`
	StoredFilename   string    `gorm:"type:varchar(255);not null" json:"storedFilename"`
	Subdir           string    `gorm:"type:varchar(100)" json:"subdir,omitempty"`
	FileSize         int64     `json:"fileSize"`
	FileMD5          string    `gorm:"type:char(32);index:idx_resumes_md5" json:"fileMd5"`
	ObjectKey        string    `gorm:"type:varchar(1024)" json:"-"`
	CreatedAt        time.Time `gorm:"precision:6" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"precision:6" json:"updatedAt"`
}

func (Resume) TableName() string {
	return "resumes"
}

func (r *Resume) BeforeCreate(*gorm.DB) error {
	return ensureID(&r.ID)
}

// Notification 发给用户的站内通知
type Notification struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string         `gorm:"type:char(36);not null;index:idx_notifications_user_read,priority:1" json:"userId"`
	Type      string         `gorm:"type:varchar(50);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Data      datatypes.JSON `gorm:"type:json" json:"data,omitempty"`
	IsRead    bool           `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"isRead"`
	ReadAt    *time.Time     `gorm:"precision:6" json:"readAt"`
	CreatedAt time.Time      `gorm:"precision:6" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	return ensureID(&n.ID)
}

// ensureID 主键为空时生成 UUIDv7
func ensureID(id *string) error {
	if *id != "" {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v.String()
	return nil
}

// StringsToJSON 把字符串列表转换为 datatypes.JSON，nil 视为空数组
func StringsToJSON(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return b
}

// JSONToStrings 把 datatypes.JSON 解析为字符串列表，解析失败返回空列表
func JSONToStrings(data datatypes.JSON) []string {
	var items []string
	if len(data) == 0 || json.Unmarshal(data, &items) != nil || items == nil {
		return []string{}
	}
	return items
}

// MapToJSON MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
