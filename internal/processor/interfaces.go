package processor

import (
	"context"

	"job-board-go/internal/types"
)

// TextExtractor 按文件名和子目录提取简历文本
type TextExtractor interface {
	Extract(ctx context.Context, filename, subdir string) (string, error)
}

// MatchEvaluator 评估简历文本与岗位描述的匹配度
type MatchEvaluator interface {
	Evaluate(ctx context.Context, jobDescription, resumeText string) (*types.MatchAnalysis, error)
}

// ResumeScanner 列出上传目录中的简历文件
type ResumeScanner interface {
	ScanResumes(recruiterDir string) ([]types.ResumeFile, error)
}

// Matcher 执行一次批量匹配
type Matcher interface {
	Match(ctx context.Context, req MatchRequest) (*types.BatchMatchReport, error)
}
