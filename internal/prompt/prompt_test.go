package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tswnano/pkg/nanotypes"
)

func TestPageGroundedSystemPrompt(t *testing.T) {
	got := PageGroundedSystemPrompt("Cats sleep sixteen hours a day.")

	assert.Contains(t, got, "I could not find the answer based on the context you provided.")
	assert.Contains(t, got, "concise")
	assert.True(t, strings.HasSuffix(got, "Context:\nCats sleep sixteen hours a day."))
}

func TestPageGroundedSystemPrompt_EmptyContext(t *testing.T) {
	got := PageGroundedSystemPrompt("")
	assert.Contains(t, got, RefusalSentence)
	assert.True(t, strings.HasSuffix(got, "Context:\n"))
}

func TestCustomGroundedSystemPrompt(t *testing.T) {
	got := CustomGroundedSystemPrompt("Answer like a pirate.", "Page body")
	assert.Equal(t, "Answer like a pirate.\n\nThis page content:\n\nPage body", got)
}

func TestContinuationCommand(t *testing.T) {
	cmd := ContinuationCommand()
	assert.Equal(t, nanotypes.CapabilityTextGeneration, cmd.Capability)

	opts, ok := cmd.TextGeneration()
	require.True(t, ok)
	assert.Equal(t, ContinuationSystemPrompt(), opts.SystemPrompt)
	assert.Contains(t, opts.SystemPrompt, "Only one sentence.")
	require.Len(t, opts.InitialPrompts, 1)
	assert.Equal(t, nanotypes.RoleAssistant, opts.InitialPrompts[0].Role)
	assert.Equal(t, "Predict the user's next inputting based on the given text.", opts.InitialPrompts[0].Content)
}

func TestBlankFillPrompt(t *testing.T) {
	got := BlankFillPrompt("The weather today is")
	assert.True(t, strings.HasSuffix(got, "The weather today is[BLANK]"))
	assert.Contains(t, got, "Output only the replacement text")
	assert.Equal(t, 1, strings.Count(got, "The weather today is"))
}

func TestSummarizerInstructions(t *testing.T) {
	tests := []struct {
		name     string
		opts     nanotypes.SummarizationOptions
		contains []string
	}{
		{
			name:     "defaults",
			opts:     nanotypes.SummarizationOptions{},
			contains: []string{"key points", "5 bullet points", "markdown"},
		},
		{
			name:     "headline short plain",
			opts:     nanotypes.SummarizationOptions{Type: "headline", Length: "short", Format: "plain-text"},
			contains: []string{"single headline", "at most 12 words", "plain text"},
		},
		{
			name:     "tldr long with context",
			opts:     nanotypes.SummarizationOptions{Type: "tl;dr", Length: "long", SharedContext: "A news article"},
			contains: []string{"busy reader", "1 paragraph", "Background: A news article"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SummarizerInstructions(tt.opts)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestRewriterInstructions(t *testing.T) {
	got := RewriterInstructions(nanotypes.RewritingOptions{Tone: "more-formal", Length: "shorter"})
	assert.Contains(t, got, "more formal")
	assert.Contains(t, got, "shorter")
	assert.Contains(t, got, "Keep the original formatting.")

	got = RewriterInstructions(nanotypes.RewritingOptions{Format: "plain-text"})
	assert.Contains(t, got, "Keep the original tone.")
	assert.Contains(t, got, "plain text")
}

func TestWriterInstructions(t *testing.T) {
	got := WriterInstructions(nanotypes.WritingOptions{Tone: "casual"})
	assert.Contains(t, got, "Tone: casual.")
	assert.Contains(t, got, "Length: medium.")
	assert.NotContains(t, got, "Background:")
}

func TestTranslatorInstructions(t *testing.T) {
	assert.Contains(t, TranslatorInstructions(nanotypes.TranslationOptions{}), "from en to zh")
	assert.Contains(t, TranslatorInstructions(nanotypes.TranslationOptions{SourceLanguage: "fr", TargetLanguage: "de"}), "from fr to de")
}
