package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"job-board-go/internal/logger"
)

// errNoPDFText 解析成功但没有任何文本
var errNoPDFText = errors.New("pdf parsed but contains no text")

// PDFTextExtractor 依次用三种方式尝试提取PDF文本：
// 按配置构建的 Eino 解析器、默认配置的 Eino 解析器、重新包装缓冲区后的 unipdf 读取。
type PDFTextExtractor struct {
	configured *pdf.PDFParser
	fallback   *pdf.PDFParser
	toPages    bool
	timeout    time.Duration
	licenseKey string
	logger     zerolog.Logger
}

// PDFOption PDF提取器的配置选项
type PDFOption func(*PDFTextExtractor)

// WithPDFToPages 第一次尝试是否按页解析
func WithPDFToPages(toPages bool) PDFOption {
	return func(e *PDFTextExtractor) {
		e.toPages = toPages
	}
}

// WithPDFTimeout 单次Eino解析的超时时间
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(e *PDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithUnidocLicenseKey 为 unipdf 设置计量许可证
func WithUnidocLicenseKey(key string) PDFOption {
	return func(e *PDFTextExtractor) {
		e.licenseKey = key
	}
}

// WithPDFLogger 配置日志记录器
func WithPDFLogger(l zerolog.Logger) PDFOption {
	return func(e *PDFTextExtractor) {
		e.logger = l
	}
}

// NewPDFTextExtractor 初始化PDF文本提取器
func NewPDFTextExtractor(ctx context.Context, options ...PDFOption) (*PDFTextExtractor, error) {
	e := &PDFTextExtractor{
		toPages: true,
		timeout: 30 * time.Second,
		logger:  logger.Component("pdf_extractor"),
	}
	for _, option := range options {
		option(e)
	}

	var err error
	e.configured, err = pdf.NewPDFParser(ctx, &pdf.Config{ToPages: e.toPages})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}
	e.fallback, err = pdf.NewPDFParser(ctx, &pdf.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create default Eino PDF parser: %w", err)
	}

	if e.licenseKey != "" {
		if err := license.SetMeteredKey(e.licenseKey); err != nil {
			// 没有许可证时 unipdf 仍可尝试，只记录警告
			e.logger.Warn().Err(err).Msg("设置UniDoc许可证失败")
		}
	}
	return e, nil
}

// Extract 从PDF字节中提取文本。全部尝试失败时返回最终失败分类。
func (e *PDFTextExtractor) Extract(ctx context.Context, data []byte, uri string) (string, PDFFailure, error) {
	startTime := time.Now()
	attempts := []struct {
		name string
		run  func() (string, error)
	}{
		{"eino_configured", func() (string, error) { return e.parseWithEino(ctx, e.configured, data, uri) }},
		{"eino_default", func() (string, error) { return e.parseWithEino(ctx, e.fallback, data, uri) }},
		{"unipdf_rewrapped", func() (string, error) { return e.parseWithUnipdf(data) }},
	}

	var errs []error
	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		text, err := runGuarded(attempt.run)
		if err == nil && strings.TrimSpace(text) != "" {
			e.logger.Debug().
				Str("uri", uri).
				Str("attempt", attempt.name).
				Int("chars", len(text)).
				Dur("elapsed", time.Since(startTime)).
				Msg("PDF提取完成")
			return text, PDFFailureNone, nil
		}
		if err == nil {
			err = errNoPDFText
		}
		e.logger.Warn().Err(err).Str("uri", uri).Int("attempt", i+1).Str("method", attempt.name).Msg("PDF提取尝试失败")
		errs = append(errs, fmt.Errorf("%s: %w", attempt.name, err))
	}

	return "", classifyPDFFailure(errs), errors.Join(errs...)
}

func (e *PDFTextExtractor) parseWithEino(ctx context.Context, p *pdf.PDFParser, data []byte, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := p.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{"source": uri}),
	)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", errNoPDFText
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if c := strings.TrimSpace(doc.Content); c != "" {
			pages = append(pages, c)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *PDFTextExtractor) parseWithUnipdf(data []byte) (string, error) {
	// 使用独立的副本，避免前两次尝试留下的读取状态
	buf := make([]byte, len(data))
	copy(buf, data)

	pdfReader, err := model.NewPdfReader(bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	encrypted, err := pdfReader.IsEncrypted()
	if err != nil {
		return "", fmt.Errorf("failed to check encryption: %w", err)
	}
	if encrypted {
		// 仅尝试空密码
		ok, err := pdfReader.Decrypt([]byte(""))
		if err != nil || !ok {
			return "", fmt.Errorf("encrypted PDF requires a password")
		}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}

	licenseLogged := false
	return joinPages(numPages, func(i int) (string, error) {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			// 未设置许可证时每一页都会在这里失败
			if !licenseLogged {
				e.logger.Warn().Err(err).Msg("unipdf无法创建文本提取器，请检查UniDoc许可证")
				licenseLogged = true
			}
			return "", fmt.Errorf("failed to create extractor for page %d: %w", i, err)
		}
		return ex.ExtractText()
	})
}

// joinPages 逐页提取并拼接文本。没有任何一页提取成功时返回第一个错误。
func joinPages(numPages int, extract func(page int) (string, error)) (string, error) {
	var sb strings.Builder
	var firstErr error
	extracted := 0
	for i := 1; i <= numPages; i++ {
		pageText, err := extract(i)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		extracted++
		if t := strings.TrimSpace(pageText); t != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(t)
		}
	}
	if extracted == 0 && firstErr != nil {
		return "", fmt.Errorf("no page could be extracted (%d pages): %w", numPages, firstErr)
	}
	return sb.String(), nil
}

// runGuarded 把解析库中的 panic 转换为错误
func runGuarded(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing pdf: %v", r)
		}
	}()
	return fn()
}

// classifyPDFFailure 根据全部尝试的错误判断最终失败类型
func classifyPDFFailure(errs []error) PDFFailure {
	if len(errs) == 0 {
		return PDFFailureGeneric
	}

	noText := 0
	corrupted := false
	for _, err := range errs {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "password") || strings.Contains(msg, "encrypt"):
			return PDFFailurePassword
		case errors.Is(err, errNoPDFText):
			noText++
		case containsAny(msg, "malformed", "xref", "trailer", "invalid header", "not a pdf",
			"eof", "corrupt", "invalid pdf", "startxref"):
			corrupted = true
		}
	}

	switch {
	case corrupted:
		return PDFFailureCorrupted
	case noText > 0:
		// 至少有一次解析成功但没有文本
		return PDFFailureImageBased
	default:
		return PDFFailureGeneric
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
