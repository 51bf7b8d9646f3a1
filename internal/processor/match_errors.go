package processor

import (
	"errors"
	"fmt"
)

// 基础错误
var (
	ErrJobDescriptionTooShort = errors.New("岗位描述过短")
	ErrUploadRootUnavailable  = errors.New("上传目录无法访问")
	ErrInvalidRecruiterDir    = errors.New("非法的招聘者目录名")
	ErrMatchRunNotFound       = errors.New("匹配任务不存在")
	ErrMatchRunLocked         = errors.New("匹配任务正在被其他消费者处理")
	ErrStoreReportFailed      = errors.New("保存匹配报告失败")
	ErrEnqueueFailed          = errors.New("匹配任务入队失败")
	ErrMatchInterrupted       = errors.New("匹配任务被中断")
)

// MatchError 异步匹配任务的错误信息
type MatchError struct {
	RunID   string
	Op      string
	BaseErr error
	Detail  string
}

func (e *MatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, RunID:%s): %s", e.BaseErr, e.Op, e.RunID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, RunID:%s)", e.BaseErr, e.Op, e.RunID)
}

func (e *MatchError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *MatchError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newMatchError(runID, op string, base error, detail string) error {
	return &MatchError{RunID: runID, Op: op, BaseErr: base, Detail: detail}
}
