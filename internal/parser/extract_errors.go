package parser

import (
	"errors"
	"fmt"
)

// ErrorKind 文本提取失败的类别
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindUnreadable          ErrorKind = "unreadable"
	KindEmpty               ErrorKind = "empty"
	KindTooLarge            ErrorKind = "too_large"
	KindUnsupportedFormat   ErrorKind = "unsupported_format"
	KindParseFailed         ErrorKind = "parse_failed"
	KindInsufficientContent ErrorKind = "insufficient_content"
)

// PDFFailure PDF解析最终失败时的分类
type PDFFailure string

const (
	PDFFailureNone       PDFFailure = ""
	PDFFailurePassword   PDFFailure = "password"
	PDFFailureCorrupted  PDFFailure = "corrupted"
	PDFFailureImageBased PDFFailure = "image_based"
	PDFFailureGeneric    PDFFailure = "generic"
)

// 基础错误，与 ErrorKind 一一对应
var (
	ErrNotFound            = errors.New("文件不存在")
	ErrUnreadable          = errors.New("文件无法读取")
	ErrEmptyFile           = errors.New("文件为空")
	ErrFileTooLarge        = errors.New("文件超过大小上限")
	ErrUnsupportedFormat   = errors.New("不支持的文件格式")
	ErrParseFailed         = errors.New("文件解析失败")
	ErrInsufficientContent = errors.New("提取的文本内容不足")
)

// PDF 失败分类对应的错误
var (
	ErrPDFPasswordProtected = errors.New("PDF受密码保护")
	ErrPDFCorrupted         = errors.New("PDF文件已损坏")
	ErrPDFImageBased        = errors.New("PDF为扫描件，没有可提取的文本")
)

var kindErrors = map[ErrorKind]error{
	KindNotFound:            ErrNotFound,
	KindUnreadable:          ErrUnreadable,
	KindEmpty:               ErrEmptyFile,
	KindTooLarge:            ErrFileTooLarge,
	KindUnsupportedFormat:   ErrUnsupportedFormat,
	KindParseFailed:         ErrParseFailed,
	KindInsufficientContent: ErrInsufficientContent,
}

var pdfFailureErrors = map[PDFFailure]error{
	PDFFailurePassword:   ErrPDFPasswordProtected,
	PDFFailureCorrupted:  ErrPDFCorrupted,
	PDFFailureImageBased: ErrPDFImageBased,
}

// ExtractError 文本提取失败的详细信息
type ExtractError struct {
	Kind       ErrorKind
	Filename   string
	Op         string
	BaseErr    error // 底层错误（可为空）
	Detail     string
	PDFFailure PDFFailure
}

func (e *ExtractError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s, 文件:%s)", kindErrors[e.Kind], e.Op, e.Filename)
	if e.PDFFailure != PDFFailureNone {
		msg += fmt.Sprintf(" [pdf:%s]", e.PDFFailure)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.BaseErr != nil {
		msg += ": " + e.BaseErr.Error()
	}
	return msg
}

func (e *ExtractError) Unwrap() error {
	return e.BaseErr
}

// Is 让 errors.Is 能按类别和PDF失败分类匹配
func (e *ExtractError) Is(target error) bool {
	if base, ok := kindErrors[e.Kind]; ok && base == target {
		return true
	}
	if pe, ok := pdfFailureErrors[e.PDFFailure]; ok && pe == target {
		return true
	}
	return false
}

// KindOf 返回错误的提取失败类别，非 ExtractError 返回空字符串
func KindOf(err error) ErrorKind {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

func newExtractError(kind ErrorKind, filename, op, detail string, base error) *ExtractError {
	return &ExtractError{
		Kind:     kind,
		Filename: filename,
		Op:       op,
		BaseErr:  base,
		Detail:   detail,
	}
}
