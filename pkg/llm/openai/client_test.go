package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/llm"
	"github.com/oceanbase/remindsense-go/pkg/llm/openai"
)

func TestNewClient_RequiresConfig(t *testing.T) {
	_, err := openai.NewClient(nil)
	assert.Error(t, err)
}

func TestGenerateWithMessages(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "qwen-plus",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"too_many\": true}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	client, err := openai.NewClient(&openai.Config{APIKey: "test-key", Model: "qwen-plus", BaseURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	text, err := client.GenerateWithMessages(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "classify"},
		{Role: llm.RoleUser, Content: "too many reminders"},
	}, llm.WithJSONMode(), llm.WithMaxTokens(64))
	require.NoError(t, err)
	assert.Equal(t, `{"too_many": true}`, text)

	assert.Equal(t, "qwen-plus", got["model"])
	assert.Equal(t, float64(64), got["max_tokens"])
	format, ok := got["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	messages, ok := got["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	client, err := openai.NewClient(&openai.Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hello")
	assert.Error(t, err)
}
