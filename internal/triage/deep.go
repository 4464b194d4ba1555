package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/argus-triage/argus-go/internal/event"
)

const deepSystemPrompt = `You are a security analyst reviewing one classified HTTP access-log event.
Write a short plain-text assessment (3 sentences max) of the classification for a human analyst:
what the request appears to attempt, whether the label fits, and what to check next.
Do not output JSON or markdown.`

// DeepAnalyzer produces an optional LLM narrative for Explain. The
// classification verdict never depends on it; it only annotates.
type DeepAnalyzer struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewDeepAnalyzer returns nil when ANTHROPIC_API_KEY is not set, so the
// service degrades to deterministic explanations out of the box.
func NewDeepAnalyzer() *DeepAnalyzer {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil
	}
	model := anthropic.Model(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = anthropic.ModelClaude3_5HaikuLatest
	}
	return &DeepAnalyzer{client: anthropic.NewClient(), model: model}
}

// Narrate asks the model for an analyst-facing summary of the event and its
// classification.
func (d *DeepAnalyzer) Narrate(ctx context.Context, ev *event.Event, expl *Explanation) (string, error) {
	prompt := fmt.Sprintf(
		"Event %s\nMethod: %s\nURL: %s\nPayload: %s\nStatus: %d (%d bytes)\nLabel: %s (confidence %.2f)\nRule hits: %v",
		ev.EventID, ev.Method, ev.URL, ev.Payload, ev.StatusCode, ev.ResponseSize,
		expl.AttackType, expl.Confidence, expl.RuleHits,
	)

	message, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     d.model,
		MaxTokens: 300,
		System: []anthropic.TextBlockParam{
			{Text: deepSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("deep analysis: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("deep analysis: empty response")
	}
	return strings.TrimSpace(message.Content[0].Text), nil
}
