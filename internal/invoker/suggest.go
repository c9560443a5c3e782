package invoker

import (
	"context"
	"strings"

	"tswnano/internal/prompt"
	"tswnano/pkg/nanotypes"
)

// SuggestNext predicts one sentence continuing text.
func (inv *Invoker) SuggestNext(ctx context.Context, text string) (string, error) {
	out, err := inv.Invoke(ctx, prompt.ContinuationCommand(), text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// FillBlank asks for the text replacing a [BLANK] marker appended to text.
func (inv *Invoker) FillBlank(ctx context.Context, text string) (string, error) {
	cmd := nanotypes.Command{
		Name:       "FillBlank",
		Capability: nanotypes.CapabilityTextGeneration,
		Options:    nanotypes.TextGenerationOptions{},
	}
	out, err := inv.Invoke(ctx, cmd, prompt.BlankFillPrompt(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(out, prompt.BlankMarker, "")), nil
}
