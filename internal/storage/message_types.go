package storage

import "time"

// EventMatchRequested outbox 中匹配任务的事件类型
const EventMatchRequested = "match.requested"

// MatchTaskMessage 异步匹配任务消息
type MatchTaskMessage struct {
	RunID        string    `json:"run_id"`
	RecruiterID  string    `json:"recruiter_id"`
	RecruiterDir string    `json:"recruiter_dir,omitempty"`
	MinScore     int       `json:"min_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
