package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiChatModel 基于 Google GenAI 的 eino 聊天模型，要求返回 application/json
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

// GeminiConfig Gemini 模型配置
type GeminiConfig struct {
	APIKey      string
	BaseURL     string // 测试或代理时覆盖
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewGeminiChatModel 创建 Gemini 聊天模型
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*GeminiChatModel, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	return &GeminiChatModel{
		client:      client,
		model:       modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate 实现 model.BaseChatModel，系统消息作为 SystemInstruction 发送
func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: &g.temperature,
		MaxTokens:   &g.maxTokens,
		Model:       &g.model,
	}, opts...)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if options.Temperature != nil {
		t := *options.Temperature
		config.Temperature = &t
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*options.MaxTokens)
	}

	var contents []*genai.Content
	var system []string
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini request has no user content")
	}

	resp, err := g.client.Models.GenerateContent(ctx, *options.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}

	msg := schema.AssistantMessage(output, nil)
	if resp.UsageMetadata != nil {
		msg.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			},
		}
	}
	return msg, nil
}

// Stream 以单个分片的形式返回 Generate 的结果
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 匹配评估不使用工具，直接返回自身副本
func (g *GeminiChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *g
	return &clone, nil
}
