package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleteSendsSystemAndUserMessages(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"<b>hi</b>"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", "gpt-3.5-turbo", option.WithBaseURL(srv.URL+"/"))
	out, err := p.Complete(context.Background(), "Speak as Aria.", "prompt")
	require.NoError(t, err)

	assert.Equal(t, "<b>hi</b>", out)
	assert.Equal(t, "gpt-3.5-turbo", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "Speak as Aria.", body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, "prompt", body.Messages[1].Content)
	assert.Equal(t, "openai:gpt-3.5-turbo", p.Name())
}

func TestOpenAICompleteDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", "gpt-3.5-turbo", option.WithBaseURL(srv.URL+"/"))
	_, err := p.Complete(context.Background(), "s", "p")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGeminiCompleteUsesSystemInstruction(t *testing.T) {
	var body struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"<i>hola</i>"}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGemini(context.Background(), "g-key", "gemini-2.0-flash", srv.URL)
	require.NoError(t, err)
	out, err := p.Complete(context.Background(), "Speak as Aria.", "prompt")
	require.NoError(t, err)

	assert.Equal(t, "<i>hola</i>", out)
	require.Len(t, body.Contents, 1)
	assert.Equal(t, "prompt", body.Contents[0].Parts[0].Text)
	require.Len(t, body.SystemInstruction.Parts, 1)
	assert.Equal(t, "Speak as Aria.", body.SystemInstruction.Parts[0].Text)
}

func TestGeminiCompleteReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	p, err := NewGemini(context.Background(), "g-key", "gemini-2.0-flash", srv.URL)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), "s", "p")
	assert.Error(t, err)
}
