package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"
)

// Input is what a synthesizer sees: the two style descriptions and an
// optional user hint.
type Input struct {
	Garment  string
	Backdrop string
	Hint     string
}

// Output is one synthesized positive prompt.
type Output struct {
	Prompt         string
	Provider       string
	FallbackReason string
}

// Synthesizer turns style descriptions into a single-sentence image prompt.
type Synthesizer interface {
	Synthesize(ctx context.Context, in Input) (Output, error)
}

// StaticSynthesizer builds the prompt from a fixed sentence template. It never
// fails and is the fallback for remote synthesizers.
type StaticSynthesizer struct{}

func NewStaticSynthesizer() *StaticSynthesizer {
	return &StaticSynthesizer{}
}

func (s *StaticSynthesizer) Synthesize(ctx context.Context, in Input) (Output, error) {
	lower := cases.Lower(language.English)
	garment := coalesce(lower.String(strings.TrimSpace(in.Garment)), "a traditional kimono")
	backdrop := coalesce(lower.String(strings.TrimSpace(in.Backdrop)), "a softly lit studio")
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "A portrait of the person wearing %s, set against %s", garment, backdrop)
	if hint := strings.TrimSpace(in.Hint); hint != "" {
		fmt.Fprintf(sb, ", %s", strings.TrimRight(hint, ". "))
	}
	sb.WriteString(", with harmonious colors, soft cinematic lighting and a richly detailed illustrated style.")
	return Output{Prompt: sb.String(), Provider: staticProviderName}, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// singleSentence trims model chatter down to the first non-empty line
// without surrounding quotes.
func singleSentence(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(strings.TrimPrefix(line, "Prompt:"))
		if line != "" {
			return line
		}
	}
	return ""
}
