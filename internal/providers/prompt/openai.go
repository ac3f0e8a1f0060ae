package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"avatar-server/internal/domain"
)

const (
	openAIDefaultTimeout = 15 * time.Second
	defaultOpenAIModel   = "gpt-4o-mini"
)

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Fallback   Synthesizer
	OnFallback func(reason string, err error)
}

// OpenAISynthesizer asks a chat model for the prompt and falls back to
// another synthesizer on any failure.
type OpenAISynthesizer struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	fallback   Synthesizer
	onFallback func(reason string, err error)
}

func NewOpenAISynthesizer(opts OpenAIOptions) (*OpenAISynthesizer, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = openAIDefaultTimeout
	}
	return &OpenAISynthesizer{
		client:     openai.NewClient(reqOpts...),
		model:      coalesce(strings.TrimSpace(opts.Model), defaultOpenAIModel),
		timeout:    timeout,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

// Model returns the chat model in use.
func (o *OpenAISynthesizer) Model() string { return o.model }

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, in Input) (Output, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	completion, err := o.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write prompts for an image generation model. Reply with the prompt only."),
			openai.UserMessage(buildInstruction(in)),
		},
		Temperature: openai.Float(0.8),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, &domain.Error{Kind: domain.KindCanceled, Op: "synthesize prompt", Err: ctx.Err()}
		}
		return o.useFallback(ctx, in, "chat_completion", err)
	}
	if len(completion.Choices) == 0 {
		return o.useFallback(ctx, in, "empty_choices", errors.New("no choices"))
	}
	text := singleSentence(completion.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, in, "empty_response", errors.New("empty response"))
	}
	return Output{Prompt: text, Provider: openAIProviderName}, nil
}

func (o *OpenAISynthesizer) useFallback(ctx context.Context, in Input, reason string, cause error) (Output, error) {
	if o.onFallback != nil {
		o.onFallback(reason, cause)
	}
	if o.fallback == nil {
		return Output{}, &domain.Error{Kind: domain.KindPrompt, Op: "synthesize prompt", Message: reason, Err: cause}
	}
	out, err := o.fallback.Synthesize(ctx, in)
	if err != nil {
		return Output{}, &domain.Error{Kind: domain.KindPrompt, Op: "synthesize prompt", Message: "fallback failed", Err: errors.Join(cause, err)}
	}
	out.FallbackReason = reason
	return out, nil
}

func buildInstruction(in Input) string {
	sb := &strings.Builder{}
	sb.WriteString("Create an image generation prompt for a personal avatar.\n")
	fmt.Fprintf(sb, "The person wears a kimono described as: %s.\n", strings.TrimSpace(in.Garment))
	fmt.Fprintf(sb, "The background is described as: %s.\n", strings.TrimSpace(in.Backdrop))
	if hint := strings.TrimSpace(in.Hint); hint != "" {
		fmt.Fprintf(sb, "The user asked for: %s. Work this into the prompt.\n", hint)
	}
	sb.WriteString("Blend the garment and the background into one scene, naming color palette, artistic style and mood, ")
	sb.WriteString("and add one distinctive visual detail that ties them together. ")
	sb.WriteString("The prompt must be a single sentence.")
	return sb.String()
}
