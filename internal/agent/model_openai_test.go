package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-board-go/internal/config"
)

func TestOpenAIChatModelRequestsJSONObject(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"matchScore\":80}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`)
	}))
	defer srv.Close()

	m, err := NewOpenAIChatModel(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", Temperature: 0.2})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("only json"),
		schema.UserMessage("evaluate"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"matchScore":80}`, msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, 17, msg.ResponseMeta.Usage.TotalTokens)

	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok, "请求应携带 response_format")
	assert.Equal(t, "json_object", format["type"])

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestOpenAIChatModelRequiresKey(t *testing.T) {
	_, err := NewOpenAIChatModel(OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAIChatModelSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	m, err := NewOpenAIChatModel(OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.LLMConfig{Provider: "claude-via-fax", APIKey: "x"})
	assert.Error(t, err)
}

func TestNewChatModelWrapsOpenAI(t *testing.T) {
	m, err := NewChatModel(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "sk-test", QPM: 60})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
