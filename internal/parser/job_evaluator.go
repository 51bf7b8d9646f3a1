package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"job-board-go/internal/logger"
	"job-board-go/internal/types"
)

// 评估结果缺失字段时使用的默认值
const (
	DefaultCandidateName = "Unknown Candidate"
	DefaultSummary       = "No summary provided."
)

// ErrEmptyLLMResponse LLM返回空内容
var ErrEmptyLLMResponse = errors.New("LLM returned empty response")

// LLMJobEvaluator 调用LLM评估简历与岗位描述的匹配度
type LLMJobEvaluator struct {
	llmModel        model.ToolCallingChatModel
	promptTemplate  string // 两个 %s 依次为岗位描述和简历文本
	fewShotExamples string
	logger          zerolog.Logger
}

// LLMJobEvaluatorOption 是LLM评估器的配置选项
type LLMJobEvaluatorOption func(*LLMJobEvaluator)

// WithCustomPromptTemplate 设置自定义提示词模板，模板必须包含两个 %s
func WithCustomPromptTemplate(template string) LLMJobEvaluatorOption {
	return func(e *LLMJobEvaluator) {
		if strings.Count(template, "%s") == 2 {
			e.promptTemplate = template
		}
	}
}

// WithFewShotExamples 设置少样本示例，传入空字符串则不使用示例
func WithFewShotExamples(examples string) LLMJobEvaluatorOption {
	return func(e *LLMJobEvaluator) {
		e.fewShotExamples = examples
	}
}

// WithEvaluatorLogger 配置日志记录器
func WithEvaluatorLogger(l zerolog.Logger) LLMJobEvaluatorOption {
	return func(e *LLMJobEvaluator) {
		e.logger = l
	}
}

// NewLLMJobEvaluator 创建一个新的评估器实例
func NewLLMJobEvaluator(llmModel model.ToolCallingChatModel, options ...LLMJobEvaluatorOption) *LLMJobEvaluator {
	evaluator := &LLMJobEvaluator{
		llmModel:        llmModel,
		promptTemplate:  defaultMatchPromptTemplate,
		fewShotExamples: defaultMatchFewShot,
		logger:          logger.Component("job_evaluator"),
	}
	for _, opt := range options {
		opt(evaluator)
	}
	return evaluator
}

const defaultMatchPromptTemplate = `你是一位资深的技术招聘专家。请基于下面的【岗位描述】和【候选人简历】进行对比分析，并只输出一个JSON对象，字段如下：

- "candidateName": 字符串，候选人姓名；简历中找不到时填 "Unknown Candidate"
- "candidateEmail": 字符串，候选人邮箱；找不到时填空字符串
- "matchScore": 整数 (0-100)，整体匹配程度
- "strengths": 字符串数组，候选人与岗位高度匹配的具体优势
- "missingSkills": 字符串数组，岗位要求但简历中缺失的技能或经验
- "experienceMatch": 只能是 "exceeds"、"meets"、"partial"、"insufficient" 之一
- "summary": 字符串，针对该岗位的简短评估摘要（不超过3句话）
- "recommendations": 字符串数组，给招聘方的下一步建议
- "topSkills": 字符串数组，候选人最突出的技能（最多8项）
- "yearsOfExperience": 数字，相关工作年限的估计值

JSON要求：
- 所有字段名和字符串值都使用双引号，字符串内部的双引号必须转义。
- 不要在JSON之外输出任何解释、Markdown标记或代码块。
- 简历为英文时使用英文填写文本字段，否则与简历语言保持一致。

评分原则：
- 岗位中明确的硬性要求（学历、年限、必备技能）不满足时，matchScore 通常低于40。
- 核心技能和直接相关的项目经验权重最高；加分项只在核心能力满足时考虑。
- 90以上：几乎完美匹配；70-89：值得面试；50-69：存在明显差距；50以下：不建议推进。

【岗位描述】:
"""
%s
"""

【候选人简历】:
"""
%s
"""`

const defaultMatchFewShot = `示例：
【岗位描述】: "Senior Go engineer, 5+ years backend experience, Kubernetes, PostgreSQL."
【候选人简历】: "Jane Doe, jane@example.com. 6 years building Go microservices on Kubernetes; MySQL and Redis."
示例输出:
{"candidateName":"Jane Doe","candidateEmail":"jane@example.com","matchScore":78,"strengths":["6 years of Go microservice development","Production Kubernetes experience"],"missingSkills":["PostgreSQL"],"experienceMatch":"exceeds","summary":"Strong Go and Kubernetes background that exceeds the experience requirement. Database experience is MySQL rather than PostgreSQL.","recommendations":["Probe relational database depth in the technical interview"],"topSkills":["Go","Kubernetes","MySQL","Redis"],"yearsOfExperience":6}`

const systemBaseMessage = "你是一位资深的AI招聘助手，专注于分析岗位描述和候选人简历的匹配度，只输出JSON。"

// Evaluate 执行岗位描述与简历的匹配评估，缺失字段以默认值补全
func (e *LLMJobEvaluator) Evaluate(ctx context.Context, jobDescriptionText, resumeText string) (*types.MatchAnalysis, error) {
	if e.llmModel == nil {
		return nil, fmt.Errorf("LLMJobEvaluator: llmModel is not initialized")
	}

	systemMessage := systemBaseMessage
	if e.fewShotExamples != "" {
		systemMessage = e.fewShotExamples + "\n\n" + systemBaseMessage
	}
	messages := []*einoschema.Message{
		einoschema.SystemMessage(systemMessage),
		einoschema.UserMessage(fmt.Sprintf(e.promptTemplate, jobDescriptionText, resumeText)),
	}

	e.logger.Debug().
		Int("jd_chars", utf8.RuneCountInString(jobDescriptionText)).
		Int("resume_chars", utf8.RuneCountInString(resumeText)).
		Msg("调用LLM进行匹配评估")

	response, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLMJobEvaluator: LLM call failed: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, fmt.Errorf("LLMJobEvaluator: %w", ErrEmptyLLMResponse)
	}

	return ParseMatchAnalysis(response.Content)
}

// ParseMatchAnalysis 从LLM的原始输出中解析评估结果
func ParseMatchAnalysis(content string) (*types.MatchAnalysis, error) {
	processed := strings.TrimPrefix(content, "\uFEFF")
	processed = stripCodeFence(processed)

	jsonStr := extractJSONFromEvaluatorResponse(processed)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMJobEvaluator: failed to extract JSON from LLM response: %.200s", processed)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		fixed := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &raw); jsonErr != nil {
			return nil, fmt.Errorf("LLMJobEvaluator: failed to unmarshal LLM JSON response after sanitization: %w (sanitize: %v)", err, jsonErr)
		}
	}

	analysis := normalizeAnalysis(raw)
	return &analysis, nil
}

// normalizeAnalysis 把松散的JSON字段转换为结构化结果，缺失或类型不符的字段取默认值
func normalizeAnalysis(raw map[string]any) types.MatchAnalysis {
	a := types.MatchAnalysis{
		CandidateName:     stringField(raw, "candidateName"),
		CandidateEmail:    stringField(raw, "candidateEmail"),
		MatchScore:        clampScore(numberField(raw, "matchScore")),
		Strengths:         stringsField(raw, "strengths"),
		MissingSkills:     stringsField(raw, "missingSkills"),
		ExperienceMatch:   types.ExperienceMatch(strings.ToLower(stringField(raw, "experienceMatch"))),
		Summary:           stringField(raw, "summary"),
		Recommendations:   stringsField(raw, "recommendations"),
		TopSkills:         stringsField(raw, "topSkills"),
		YearsOfExperience: math.Max(0, numberField(raw, "yearsOfExperience")),
	}
	if a.CandidateName == "" {
		a.CandidateName = DefaultCandidateName
	}
	if !a.ExperienceMatch.Valid() {
		a.ExperienceMatch = types.ExperiencePartial
	}
	if a.Summary == "" {
		a.Summary = DefaultSummary
	}
	return a
}

func clampScore(v float64) int {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(math.Round(v))
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(raw map[string]any, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "+")), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// stringsField 总是返回非nil切片，单个字符串被当作一项
func stringsField(raw map[string]any, key string) []string {
	out := []string{}
	switch v := raw[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripCodeFence 去掉 ```json ... ``` 包裹
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(t), "```")
}

// extractJSONFromEvaluatorResponse 从文本中提取第一个完整的JSON对象，忽略字符串内部的花括号
func extractJSONFromEvaluatorResponse(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inStr:
			escaped = true
		case c == '"':
			inStr = !inStr
		case c == '{' && !inStr:
			level++
		case c == '}' && !inStr:
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	// 字符串内引号未转义时按字符串感知的方式匹配会失败，退回到只数花括号
	level = 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 把字符串字面量内部未转义的双引号改写为 \"。
// 下一个非空白字符是 : , ] } 时才认为该引号结束了字符串。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
