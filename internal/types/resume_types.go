package types

import "time"

// ResumeFile 上传目录中的一份简历文件
type ResumeFile struct {
	Name string `json:"name"`
	// Subdir 为 nil 表示文件位于上传根目录
	Subdir *string `json:"subdir"`
	Path   string  `json:"path"`
	Size   int64   `json:"size"`
}

// SubdirName 返回子目录名，根目录下的文件返回空字符串
func (f ResumeFile) SubdirName() string {
	if f.Subdir == nil {
		return ""
	}
	return *f.Subdir
}

// ExperienceMatch 候选人经验与岗位要求的匹配程度
type ExperienceMatch string

const (
	ExperienceExceeds      ExperienceMatch = "exceeds"
	ExperienceMeets        ExperienceMatch = "meets"
	ExperiencePartial      ExperienceMatch = "partial"
	ExperienceInsufficient ExperienceMatch = "insufficient"
)

// Valid 判断取值是否在允许范围内
func (e ExperienceMatch) Valid() bool {
	switch e {
	case ExperienceExceeds, ExperienceMeets, ExperiencePartial, ExperienceInsufficient:
		return true
	}
	return false
}

// MatchAnalysis AI对一份简历相对岗位描述的结构化评估
type MatchAnalysis struct {
	CandidateName     string          `json:"candidateName"`
	CandidateEmail    string          `json:"candidateEmail"`
	MatchScore        int             `json:"matchScore"`
	Strengths         []string        `json:"strengths"`
	MissingSkills     []string        `json:"missingSkills"`
	ExperienceMatch   ExperienceMatch `json:"experienceMatch"`
	Summary           string          `json:"summary"`
	Recommendations   []string        `json:"recommendations"`
	TopSkills         []string        `json:"topSkills"`
	YearsOfExperience float64         `json:"yearsOfExperience"`
}

// MatchStage 批量匹配中出错的阶段
type MatchStage string

const (
	StageTextExtraction      MatchStage = "text_extraction"
	StageInsufficientContent MatchStage = "insufficient_content"
	StageAIAnalysis          MatchStage = "ai_analysis"
	StageUnexpected          MatchStage = "unexpected"
)

// MatchSuccess 分数达到阈值的简历
type MatchSuccess struct {
	File      ResumeFile    `json:"file"`
	Analysis  MatchAnalysis `json:"analysis"`
	Truncated bool          `json:"truncated"`
	TextChars int           `json:"textChars"`
}

// MatchFiltered 分数低于阈值的简历
type MatchFiltered struct {
	File       ResumeFile `json:"file"`
	MatchScore int        `json:"matchScore"`
	Reason     string     `json:"reason"`
}

// MatchFailure 处理失败的简历
type MatchFailure struct {
	File  ResumeFile `json:"file"`
	Stage MatchStage `json:"stage"`
	Error string     `json:"error"`
}

// BatchMatchReport 一次批量匹配的结果汇总
type BatchMatchReport struct {
	JobDescriptionDigest string          `json:"jobDescriptionDigest"`
	MinScore             int             `json:"minScore"`
	RecruiterDir         string          `json:"recruiterDir,omitempty"`
	TotalFiles           int             `json:"totalFiles"`
	Successes            []MatchSuccess  `json:"successes"`
	Filtered             []MatchFiltered `json:"filtered"`
	Errors               []MatchFailure  `json:"errors"`
	ProcessedAt          time.Time       `json:"processedAt"`
	DurationMillis       int64           `json:"durationMs"`
}

// Consistent 判断成功、过滤、失败三者之和是否等于文件总数
func (r *BatchMatchReport) Consistent() bool {
	return len(r.Successes)+len(r.Filtered)+len(r.Errors) == r.TotalFiles
}
