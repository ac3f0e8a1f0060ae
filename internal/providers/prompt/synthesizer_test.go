package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-server/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(context.Context, Input) (Output, error) {
	return Output{}, errors.New("down")
}

func TestStaticSynthesizer(t *testing.T) {
	out, err := NewStaticSynthesizer().Synthesize(context.Background(), Input{
		Garment:  "Pink Sakura Kimono",
		Backdrop: "A quiet park path lined with cherry trees",
		Hint:     "smiling softly.",
	})
	require.NoError(t, err)
	assert.Equal(t, staticProviderName, out.Provider)
	assert.Contains(t, out.Prompt, "wearing pink sakura kimono")
	assert.Contains(t, out.Prompt, "set against a quiet park path lined with cherry trees")
	assert.Contains(t, out.Prompt, ", smiling softly,")
	assert.True(t, strings.HasSuffix(out.Prompt, "."))
	assert.Equal(t, 1, strings.Count(out.Prompt, "."))
}

func TestStaticSynthesizerDefaults(t *testing.T) {
	out, err := NewStaticSynthesizer().Synthesize(context.Background(), Input{})
	require.NoError(t, err)
	assert.Contains(t, out.Prompt, "a traditional kimono")
	assert.Contains(t, out.Prompt, "a softly lit studio")
}

func TestSingleSentence(t *testing.T) {
	assert.Equal(t, "A vivid scene.", singleSentence("\n  \"A vivid scene.\"\nextra"))
	assert.Equal(t, "Golden cranes.", singleSentence("Prompt: Golden cranes."))
	assert.Equal(t, "", singleSentence("  \n "))
}

func TestOpenAISynthesizerUsesChatCompletion(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"\"A dreamy portrait in a blue wave kimono beneath glowing lanterns.\""}}]}`)
	}))
	defer srv.Close()

	s, err := NewOpenAISynthesizer(OpenAIOptions{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	out, err := s.Synthesize(context.Background(), Input{Garment: "blue wave kimono", Backdrop: "night festival lanterns", Hint: "wink"})
	require.NoError(t, err)
	assert.Equal(t, openAIProviderName, out.Provider)
	assert.Equal(t, "A dreamy portrait in a blue wave kimono beneath glowing lanterns.", out.Prompt)
	assert.Equal(t, defaultOpenAIModel, body.Model)
	require.Len(t, body.Messages, 2)
	assert.Contains(t, body.Messages[1].Content, "blue wave kimono")
	assert.Contains(t, body.Messages[1].Content, "wink")
}

func TestOpenAISynthesizerFallsBack(t *testing.T) {
	var capturedReason string
	s, err := NewOpenAISynthesizer(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		Fallback: NewStaticSynthesizer(),
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	require.NoError(t, err)
	out, err := s.Synthesize(context.Background(), Input{Garment: "gold crane kimono", Backdrop: "mountain temple"})
	require.NoError(t, err)
	assert.Equal(t, staticProviderName, out.Provider)
	assert.Equal(t, "chat_completion", out.FallbackReason)
	assert.Equal(t, "chat_completion", capturedReason)
}

func TestOpenAISynthesizerWithoutFallbackIsPromptError(t *testing.T) {
	s, err := NewOpenAISynthesizer(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
	})
	require.NoError(t, err)
	_, err = s.Synthesize(context.Background(), Input{})
	assert.Equal(t, domain.KindPrompt, domain.KindOf(err))

	s.fallback = failingSynthesizer{}
	_, err = s.Synthesize(context.Background(), Input{})
	assert.True(t, errors.Is(err, domain.ErrPrompt))
}

func TestNewOpenAISynthesizerRequiresKey(t *testing.T) {
	_, err := NewOpenAISynthesizer(OpenAIOptions{APIKey: "  "})
	assert.Error(t, err)
}
