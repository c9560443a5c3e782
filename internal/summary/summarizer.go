package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tswnano/internal/logger"
	"tswnano/internal/stringprocessing"
	"tswnano/pkg/nanotypes"
)

// DefaultLongContextThreshold is the page length from which chat grounding
// uses a summary instead of the raw page.
const DefaultLongContextThreshold = 30000

// Invoker runs one command. *invoker.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, cmd nanotypes.Command, input string) (string, error)
}

// LongContextCommand is the summarizer command applied to each chunk.
func LongContextCommand() nanotypes.Command {
	return nanotypes.Command{
		Name:       "LongContext",
		Capability: nanotypes.CapabilitySummarization,
		Options: nanotypes.SummarizationOptions{
			Format: nanotypes.FormatPlainText,
			Length: nanotypes.LengthLong,
		},
	}
}

// Summarizer condenses text of any length by summarizing bounded chunks.
type Summarizer struct {
	invoker   Invoker
	chunkSize int
	overlap   int
}

// NewSummarizer creates a Summarizer. Chunk parameters are validated on use.
func NewSummarizer(inv Invoker, chunkSize, overlap int) *Summarizer {
	return &Summarizer{invoker: inv, chunkSize: chunkSize, overlap: overlap}
}

// SummarizeLongContext splits text into chunks, summarizes each one and joins
// the summaries in chunk order.
func (s *Summarizer) SummarizeLongContext(ctx context.Context, text string) (string, error) {
	chunks, err := stringprocessing.Split(text, s.chunkSize, s.overlap)
	if err != nil {
		return "", err
	}

	logger.Debug("Summarizing long context", "characters", utf8.RuneCountInString(text), "chunks", len(chunks))

	cmd := LongContextCommand()
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := s.invoker.Invoke(ctx, cmd, chunk)
		if err != nil {
			return "", fmt.Errorf("summarizing chunk %d of %d: %w", i+1, len(chunks), err)
		}
		summaries = append(summaries, strings.TrimSpace(out))
	}
	return strings.Join(summaries, "\n"), nil
}

// ContextPreparer returns the page text to ground a chat turn with.
type ContextPreparer struct {
	summarizer *Summarizer
	cache      *Cache
	threshold  int
}

// NewContextPreparer creates a preparer. A threshold of zero or less uses the default.
func NewContextPreparer(summarizer *Summarizer, cache *Cache, threshold int) *ContextPreparer {
	if threshold <= 0 {
		threshold = DefaultLongContextThreshold
	}
	if cache == nil {
		cache = NewCache()
	}
	return &ContextPreparer{summarizer: summarizer, cache: cache, threshold: threshold}
}

// Cache returns the summary cache backing the preparer.
func (p *ContextPreparer) Cache() *Cache {
	return p.cache
}

// Prepare returns pageText unchanged when it is shorter than the threshold and
// its cached long-context summary otherwise. key identifies the page.
func (p *ContextPreparer) Prepare(ctx context.Context, key, pageText string) (string, error) {
	if utf8.RuneCountInString(pageText) < p.threshold {
		return pageText, nil
	}
	return p.cache.GetOrCompute(key, func() (string, error) {
		return p.summarizer.SummarizeLongContext(ctx, pageText)
	})
}
