package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
)

// PDFExtractor PDF文本提取接口
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte, uri string) (string, PDFFailure, error)
}

// SupportedExtensions 可提取文本的文件扩展名
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".txt"}

// IsSupportedExtension 判断文件名的扩展名是否受支持（不区分大小写）
func IsSupportedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// FileTextExtractor 从上传目录中的简历文件提取纯文本
type FileTextExtractor struct {
	root     string
	maxBytes int64
	minChars int
	pdf      PDFExtractor
	logger   zerolog.Logger
}

// ExtractorOption 文本提取器的配置选项
type ExtractorOption func(*FileTextExtractor)

// WithMaxFileSize 设置文件大小上限（字节）
func WithMaxFileSize(n int64) ExtractorOption {
	return func(e *FileTextExtractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithMinTextLength 设置提取结果的最小字符数
func WithMinTextLength(n int) ExtractorOption {
	return func(e *FileTextExtractor) {
		if n > 0 {
			e.minChars = n
		}
	}
}

// WithExtractorLogger 配置日志记录器
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *FileTextExtractor) {
		e.logger = l
	}
}

// NewFileTextExtractor 创建文本提取器。pdf 为空时PDF文件按解析失败处理。
func NewFileTextExtractor(root string, pdf PDFExtractor, options ...ExtractorOption) *FileTextExtractor {
	e := &FileTextExtractor{
		root:     root,
		maxBytes: int64(constants.MaxUploadSizeMB) * 1024 * 1024,
		minChars: constants.MinTextLength,
		pdf:      pdf,
		logger:   logger.Component("text_extractor"),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Root 返回上传根目录
func (e *FileTextExtractor) Root() string {
	return e.root
}

// Extract 按文件名（和可选的子目录）在上传目录中定位文件并提取文本。
// 未指定子目录且根目录下不存在时，会在一级子目录中查找。
func (e *FileTextExtractor) Extract(ctx context.Context, filename, subdir string) (string, error) {
	if !isPlainName(filename) || (subdir != "" && !isPlainName(subdir)) {
		return "", newExtractError(KindNotFound, filename, "resolve", "invalid file or directory name", nil)
	}

	path, err := e.resolve(filename, subdir)
	if err != nil {
		return "", err
	}
	return e.extractPath(ctx, path, filename)
}

// ExtractFile 从任意路径提取文本
func (e *FileTextExtractor) ExtractFile(ctx context.Context, path string) (string, error) {
	return e.extractPath(ctx, path, filepath.Base(path))
}

// ExtractBytes 从内存中的文件内容提取文本，filename 只用于判断格式
func (e *FileTextExtractor) ExtractBytes(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", newExtractError(KindEmpty, filename, "stat", "", nil)
	}
	if int64(len(data)) > e.maxBytes {
		return "", newExtractError(KindTooLarge, filename, "stat",
			fmt.Sprintf("%d bytes exceeds limit of %d bytes", len(data), e.maxBytes), nil)
	}
	if !IsSupportedExtension(filename) {
		return "", newExtractError(KindUnsupportedFormat, filename, "dispatch", filepath.Ext(filename), nil)
	}
	return e.extractData(ctx, filename, data)
}

func (e *FileTextExtractor) resolve(filename, subdir string) (string, error) {
	path := filepath.Join(e.root, subdir, filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", newExtractError(KindUnreadable, filename, "stat", "", err)
	}

	if subdir == "" {
		// os.ReadDir 已按名称排序，第一个命中的子目录优先
		entries, err := os.ReadDir(e.root)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				candidate := filepath.Join(e.root, entry.Name(), filename)
				if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
					e.logger.Debug().Str("file", filename).Str("subdir", entry.Name()).Msg("在子目录中找到文件")
					return candidate, nil
				}
			}
		}
	}
	return "", newExtractError(KindNotFound, filename, "resolve", "", nil)
}

func (e *FileTextExtractor) extractPath(ctx context.Context, path, displayName string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newExtractError(KindNotFound, displayName, "stat", "", nil)
		}
		return "", newExtractError(KindUnreadable, displayName, "stat", "", err)
	}
	if info.IsDir() {
		return "", newExtractError(KindUnreadable, displayName, "stat", "path is a directory", nil)
	}
	if info.Size() == 0 {
		return "", newExtractError(KindEmpty, displayName, "stat", "", nil)
	}
	if info.Size() > e.maxBytes {
		return "", newExtractError(KindTooLarge, displayName, "stat",
			fmt.Sprintf("%d bytes exceeds limit of %d bytes", info.Size(), e.maxBytes), nil)
	}
	if !IsSupportedExtension(displayName) {
		return "", newExtractError(KindUnsupportedFormat, displayName, "dispatch", filepath.Ext(displayName), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", newExtractError(KindUnreadable, displayName, "read", "", err)
	}
	return e.extractData(ctx, displayName, data)
}

func (e *FileTextExtractor) extractData(ctx context.Context, filename string, data []byte) (string, error) {
	var raw string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		raw = strings.ToValidUTF8(string(data), string(utf8.RuneError))

	case ".docx":
		text, warnings, err := docxToText(data)
		if err != nil {
			return "", newExtractError(KindParseFailed, filename, "docx", "", err)
		}
		for _, w := range warnings {
			e.logger.Warn().Str("file", filename).Str("warning", w).Msg("DOCX转换警告")
		}
		raw = text

	case ".doc":
		raw = legacyDocText(data)
		if utf8.RuneCountInString(raw) < e.minChars {
			return "", newExtractError(KindParseFailed, filename, "doc", "legacy .doc format", nil)
		}

	case ".pdf":
		if e.pdf == nil {
			return "", newExtractError(KindParseFailed, filename, "pdf", "no pdf extractor configured", nil)
		}
		text, failure, err := e.pdf.Extract(ctx, data, filename)
		if err != nil {
			ee := newExtractError(KindParseFailed, filename, "pdf", "", err)
			ee.PDFFailure = failure
			if ee.PDFFailure == PDFFailureNone {
				ee.PDFFailure = PDFFailureGeneric
			}
			return "", ee
		}
		raw = text

	default:
		return "", newExtractError(KindUnsupportedFormat, filename, "dispatch", filepath.Ext(filename), nil)
	}

	text := normalizeText(raw)
	if n := utf8.RuneCountInString(text); n < e.minChars {
		return "", newExtractError(KindInsufficientContent, filename, "validate",
			fmt.Sprintf("%d characters, need at least %d", n, e.minChars), nil)
	}
	return text, nil
}

var (
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// normalizeText 去除控制字符（保留换行和制表符），合并多余空行并去除首尾空白
func normalizeText(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// legacyDocText 旧版 .doc 没有可用的解析库，只保留其中可读的文本片段
func legacyDocText(data []byte) string {
	s := strings.ToValidUTF8(string(data), "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r <= 0x08, r == 0x0B, r == 0x0C, r >= 0x0E && r <= 0x1F, r == 0x7F:
			return -1
		case r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// isPlainName 只允许单层名称，拒绝路径分隔符和 . / ..
func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return false
	}
	return filepath.Base(name) == name
}
