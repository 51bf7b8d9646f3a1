package constants

import "time"

const (
	// MinTextLength 提取文本和岗位描述的最小有效长度（按字符计）
	MinTextLength = 10
	// MaxUploadSizeMB 单个简历文件大小上限
	MaxUploadSizeMB = 50
	// MaxResumeChars 送入AI的简历文本最大字符数
	MaxResumeChars = 15000
	// DefaultMatchCallDelay 相邻两次AI调用之间的间隔
	DefaultMatchCallDelay = 500 * time.Millisecond

	// DefaultPageSize 列表接口默认分页大小
	DefaultPageSize = 20
	// MaxPageSize 列表接口最大分页大小
	MaxPageSize = 100

	// MatchLockTTL 异步匹配任务的分布式锁有效期
	MatchLockTTL = 30 * time.Minute
)

// 用户角色
const (
	RoleEmployee  = "EMPLOYEE"
	RoleEmployer  = "EMPLOYER"
	RoleRecruiter = "RECRUITER"
	RoleAdmin     = "ADMIN"
)

// 招聘者审核状态
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// 岗位状态
const (
	JobStatusOpen   = "OPEN"
	JobStatusClosed = "CLOSED"
)

// 申请状态
const (
	ApplicationPending  = "PENDING"
	ApplicationReviewed = "REVIEWED"
	ApplicationAccepted = "ACCEPTED"
	ApplicationRejected = "REJECTED"
)

// 面试状态
const (
	InterviewScheduled = "SCHEDULED"
	InterviewCompleted = "COMPLETED"
	InterviewCancelled = "CANCELLED"
	InterviewNoShow    = "NO_SHOW"
)

// 异步匹配任务状态
const (
	MatchRunQueued    = "QUEUED"
	MatchRunRunning   = "RUNNING"
	MatchRunCompleted = "COMPLETED"
	MatchRunFailed    = "FAILED"
)

// 通知类型
const (
	NotificationRecruiterApproved = "RECRUITER_APPROVED"
	NotificationRecruiterRejected = "RECRUITER_REJECTED"
	NotificationApplicationStatus = "APPLICATION_STATUS"
	NotificationNewApplication    = "NEW_APPLICATION"
	NotificationMatchCompleted    = "MATCH_COMPLETED"
	NotificationInterview         = "INTERVIEW_SCHEDULED"
)

// ValidApplicationStatus 判断申请状态是否合法
func ValidApplicationStatus(s string) bool {
	switch s {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

// ValidInterviewStatus 判断面试状态是否合法
func ValidInterviewStatus(s string) bool {
	switch s {
	case InterviewScheduled, InterviewCompleted, InterviewCancelled, InterviewNoShow:
		return true
	}
	return false
}
