package stringprocessing

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// CleanPageText normalizes page content before it is used as chat context.
// Terminal escape sequences and fenced code blocks are removed and every
// whitespace run collapses to a single space.
func CleanPageText(text string) string {
	text = ansi.Strip(text)
	text = stripFencedBlocks(text)
	return strings.Join(strings.Fields(text), " ")
}

// stripFencedBlocks drops ``` fenced regions. An unterminated fence runs to the end.
func stripFencedBlocks(text string) string {
	var b strings.Builder
	inFence := false
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			b.WriteString(line)
		}
	}
	return b.String()
}

// Preview shortens text to at most width terminal cells for one-line display.
func Preview(text string, width int) string {
	line := strings.Join(strings.Fields(text), " ")
	return ansi.Truncate(line, width, "…")
}
