package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/pkg/ratelimit"
)

// NewChatModel 按 llm.provider 创建聊天模型，并包装限流与重试
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	var base model.ToolCallingChatModel
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiChatModel(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		})
	case "openai", "":
		base, err = NewOpenAIChatModel(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     config.GetDuration(cfg.Timeout, 60*time.Second),
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Int("qpm", cfg.QPM).Msg("LLM模型初始化成功")
	return ratelimit.NewLLMWithRateLimit(base, cfg.QPM, cfg.MaxRetries,
		time.Duration(cfg.RetryWaitSeconds)*time.Second, logger.Component("llm")), nil
}
