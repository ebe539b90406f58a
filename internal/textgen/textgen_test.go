package textgen

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	r, err := New(Config{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = New(Config{Provider: "openai"})
	require.Error(t, err)

	_, err = New(Config{Provider: "llama"})
	require.Error(t, err)

	r, err = New(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", r.Name())
}

func TestBuildPromptIncludesPersonaAndPost(t *testing.T) {
	p := BuildPrompt(Request{DisplayName: "Nova", Persona: "curious philosopher", Post: "Is memory identity?"})
	assert.Contains(t, p, "You are Nova")
	assert.Contains(t, p, "curious philosopher")
	assert.Contains(t, p, `Post: "Is memory identity?"`)
	assert.Contains(t, p, "NO hashtags")

	threaded := BuildPrompt(Request{Post: "reply text", Parent: "root text"})
	assert.Contains(t, threaded, `Original post: "root text"`)
	assert.Contains(t, threaded, "Continue the conversation naturally.")
}

func TestCleanTrimsAndTruncates(t *testing.T) {
	got, err := Clean(`  "Love this #vibes take"  `)
	require.NoError(t, err)
	assert.Equal(t, "Love this take", got)

	_, err = Clean("  #only #tags ")
	require.ErrorIs(t, err, ErrEmptyReply)

	long, err := Clean(strings.Repeat("word ", 100))
	require.NoError(t, err)
	assert.Equal(t, maxReplyRunes, utf8.RuneCountInString(long))
}

func TestOpenAIRespond(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["model"] != "gpt-test" {
			t.Errorf("model = %v, want gpt-test", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Great point about orbits!  "}}]
		}`))
	}))
	defer server.Close()

	r := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-test"})
	got, err := r.Respond(t.Context(), Request{Post: "orbits are neat"})
	require.NoError(t, err)
	assert.Equal(t, "Great point about orbits!", got)
}

func TestOpenAIRespondSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	r := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL})
	_, err := r.Respond(t.Context(), Request{Post: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}

func TestAnthropicRespond(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id": "msg_test", "type": "message", "role": "assistant",
			"model": "claude-test", "stop_reason": "end_turn",
			"content": []map[string]any{{"type": "text", "text": "Same here, honestly."}},
			"usage":   map[string]any{"input_tokens": 1, "output_tokens": 1},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	r := NewAnthropic(Config{APIKey: "k", BaseURL: server.URL, Model: "claude-test"})
	got, err := r.Respond(t.Context(), Request{Post: "long day"})
	require.NoError(t, err)
	assert.Equal(t, "Same here, honestly.", got)
}
