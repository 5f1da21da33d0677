package assist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// Points a client at the /v1 base of a test server.
func newTestClient(serverURL string) *Client {
	cfg := DefaultConfig()
	cfg.Endpoint = serverURL + "/v1"
	cfg.APIKey = "secret"
	cfg.Logger = log.New(io.Discard, "", 0)
	return NewClient(cfg)
}

func TestGenerateSendsInstructionAndStripsFences(t *testing.T) {
	var received openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected request path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```python\\nfrom manim import *\\n\\nclass A(Scene):\\n    def construct(self):\\n        pass\\n```" +
			`"}}]}`))
	}))
	defer server.Close()

	code, err := newTestClient(server.URL).Generate(context.Background(), "a red circle")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	expected := "from manim import *\n\nclass A(Scene):\n    def construct(self):\n        pass"
	if code != expected {
		t.Errorf("Unexpected code:\n%q", code)
	}

	if len(received.Messages) != 2 {
		t.Fatalf("Expected system and user messages, got %+v", received.Messages)
	}
	if received.Messages[0].Role != openai.ChatMessageRoleSystem || received.Messages[0].Content != SystemInstruction {
		t.Errorf("Unexpected system message %+v", received.Messages[0])
	}
	if received.Messages[1].Role != openai.ChatMessageRoleUser || received.Messages[1].Content != "a red circle" {
		t.Errorf("Unexpected user message %+v", received.Messages[1])
	}
	if received.Model != DefaultConfig().Model {
		t.Errorf("Unexpected model %q", received.Model)
	}
}

func TestGenerateReportsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "x")
	if err == nil || err.Error() != "assistant: 401 Unauthorized: bad key" {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Generate(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	for _, cfg := range []Config{{Endpoint: "http://localhost"}, {APIKey: "secret"}} {
		client := NewClient(cfg)
		if _, err := client.Generate(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Expected ErrNotConfigured for %+v, got %v", cfg, err)
		}
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"plain code":                           "plain code",
		"```\ncode\n```":                       "code",
		"```python\nx = 1\ny = 2\n```\n":       "x = 1\ny = 2",
		"Here you go:\n```py\nx = 1\n```\nBye": "x = 1",
		"```python\nunterminated":              "unterminated",
		"```":                                  "",
	}
	for text, want := range cases {
		if got := StripFences(text); got != want {
			t.Errorf("StripFences(%q) = %q, expected %q", text, got, want)
		}
	}
}
