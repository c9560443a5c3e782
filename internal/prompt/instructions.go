package prompt

import (
	"fmt"
	"strings"

	"tswnano/pkg/nanotypes"
)

// SummarizerInstructions renders summarizer options as a system prompt for a general chat model.
func SummarizerInstructions(o nanotypes.SummarizationOptions) string {
	kind := valueOr(o.Type, nanotypes.SummaryTypeKeyPoints)
	format := valueOr(o.Format, nanotypes.FormatMarkdown)
	length := valueOr(o.Length, nanotypes.LengthMedium)

	lines := []string{"You summarize the text the user sends."}
	switch kind {
	case nanotypes.SummaryTypeTLDR:
		lines = append(lines, "Write a short overview that lets a busy reader get the gist.")
	case nanotypes.SummaryTypeTeaser:
		lines = append(lines, "Write an intriguing teaser that makes the reader want to read the text.")
	case nanotypes.SummaryTypeHeadline:
		lines = append(lines, "Write a single headline that captures the main point.")
	default:
		lines = append(lines, "Extract the key points as a list.")
	}
	lines = append(lines, fmt.Sprintf("Length: %s.", summaryLength(kind, length)))
	lines = append(lines, formatInstruction(format))
	lines = append(lines, sharedContextLine(o.SharedContext)...)
	lines = append(lines, "Reply with the summary only.")
	return strings.Join(lines, "\n")
}

// WriterInstructions renders writer options as a system prompt.
func WriterInstructions(o nanotypes.WritingOptions) string {
	lines := []string{
		"You write new text following the brief the user sends.",
		fmt.Sprintf("Tone: %s.", valueOr(o.Tone, nanotypes.ToneNeutral)),
		fmt.Sprintf("Length: %s.", valueOr(o.Length, nanotypes.LengthMedium)),
		formatInstruction(valueOr(o.Format, nanotypes.FormatMarkdown)),
	}
	lines = append(lines, sharedContextLine(o.SharedContext)...)
	lines = append(lines, "Reply with the written text only.")
	return strings.Join(lines, "\n")
}

// RewriterInstructions renders rewriter options as a system prompt.
func RewriterInstructions(o nanotypes.RewritingOptions) string {
	lines := []string{"You rewrite the text the user sends while keeping its meaning."}

	switch valueOr(o.Tone, nanotypes.ToneAsIs) {
	case nanotypes.ToneMoreFormal:
		lines = append(lines, "Make the tone more formal.")
	case nanotypes.ToneMoreCasual:
		lines = append(lines, "Make the tone more casual.")
	default:
		lines = append(lines, "Keep the original tone.")
	}

	switch valueOr(o.Length, nanotypes.LengthAsIs) {
	case nanotypes.LengthShorter:
		lines = append(lines, "Make it shorter.")
	case nanotypes.LengthLonger:
		lines = append(lines, "Make it longer.")
	default:
		lines = append(lines, "Keep roughly the same length.")
	}

	if f := valueOr(o.Format, nanotypes.FormatAsIs); f != nanotypes.FormatAsIs {
		lines = append(lines, formatInstruction(f))
	} else {
		lines = append(lines, "Keep the original formatting.")
	}
	lines = append(lines, sharedContextLine(o.SharedContext)...)
	lines = append(lines, "Reply with the rewritten text only.")
	return strings.Join(lines, "\n")
}

// TranslatorInstructions renders translator options as a system prompt.
func TranslatorInstructions(o nanotypes.TranslationOptions) string {
	source := valueOr(o.SourceLanguage, nanotypes.DefaultLanguage)
	target := valueOr(o.TargetLanguage, "zh")
	return fmt.Sprintf("Translate the text the user sends from %s to %s.\nReply with the translation only.", source, target)
}

// summaryLength follows the sizes the browser summarizer documents per type.
func summaryLength(kind, length string) string {
	sizes := map[string][3]string{
		nanotypes.SummaryTypeKeyPoints: {"3 bullet points", "5 bullet points", "7 bullet points"},
		nanotypes.SummaryTypeHeadline:  {"at most 12 words", "at most 17 words", "at most 22 words"},
	}
	s, ok := sizes[kind]
	if !ok {
		s = [3]string{"1 sentence", "3 sentences", "1 paragraph"}
	}

	switch length {
	case nanotypes.LengthShort:
		return s[0]
	case nanotypes.LengthLong:
		return s[2]
	default:
		return s[1]
	}
}

func formatInstruction(format string) string {
	if format == nanotypes.FormatPlainText {
		return "Use plain text with no markdown."
	}
	return "Use markdown formatting."
}

func sharedContextLine(shared string) []string {
	if strings.TrimSpace(shared) == "" {
		return nil
	}
	return []string{"Background: " + strings.TrimSpace(shared)}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
