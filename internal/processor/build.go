package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"job-board-go/internal/agent"
	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/parser"
)

// BuildTextExtractor 按配置构建PDF解析器和文本提取器
func BuildTextExtractor(ctx context.Context, cfg *config.Config) (*parser.FileTextExtractor, error) {
	opts := []parser.PDFOption{
		parser.WithPDFToPages(cfg.Extractor.PDFToPages),
		parser.WithPDFTimeout(config.GetDuration(cfg.Extractor.PDFTimeout, 30*time.Second)),
		parser.WithPDFLogger(logger.Component("pdf_extractor")),
	}
	if cfg.Extractor.UnidocLicenseKey != "" {
		opts = append(opts, parser.WithUnidocLicenseKey(cfg.Extractor.UnidocLicenseKey))
	}
	pdf, err := parser.NewPDFTextExtractor(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化PDF解析器失败: %w", err)
	}

	return parser.NewFileTextExtractor(cfg.Upload.Root, pdf,
		parser.WithMaxFileSize(cfg.MaxUploadBytes()),
		parser.WithMinTextLength(cfg.Extractor.MinTextLength),
		parser.WithExtractorLogger(logger.Component("text_extractor")),
	), nil
}

// BuildEvaluator 创建大模型评估器；配置了提示词文件时使用文件内容作为模板
func BuildEvaluator(ctx context.Context, cfg *config.Config) (*parser.LLMJobEvaluator, error) {
	chatModel, err := agent.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("初始化LLM失败: %w", err)
	}

	opts := []parser.LLMJobEvaluatorOption{parser.WithEvaluatorLogger(logger.Component("evaluator"))}
	if path := cfg.Matcher.PromptTemplatePath; path != "" {
		tpl, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取提示词模板失败: %w", err)
		}
		opts = append(opts, parser.WithCustomPromptTemplate(string(tpl)))
	}
	return parser.NewLLMJobEvaluator(chatModel, opts...), nil
}

// BuildMatcher 按配置组装批量匹配器
func BuildMatcher(cfg *config.Config, scanner ResumeScanner, extractor TextExtractor, evaluator MatchEvaluator) *BatchMatcher {
	return NewBatchMatcher(scanner, extractor, evaluator,
		WithCallDelay(config.GetDuration(cfg.Matcher.CallDelay, 500*time.Millisecond)),
		WithMaxResumeChars(cfg.Matcher.MaxResumeChars),
		WithMinJobDescription(cfg.Matcher.MinJobDescription),
		WithMatcherLogger(logger.Component("matcher")),
	)
}
