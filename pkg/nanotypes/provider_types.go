package nanotypes

import "context"

// StreamChunk represents a single chunk of a streaming response.
type StreamChunk struct {
	Content string // The text delta of this chunk
	Done    bool   // Whether this is the final chunk
	Error   error  // Any error that occurred during streaming
}

// CapabilityProvider is the on-device model runtime. It exposes one factory per
// capability it supports.
type CapabilityProvider interface {
	// Name identifies the provider in logs and probe output.
	Name() string

	// Factory returns the factory for c. The boolean is false when the
	// runtime does not expose the capability at all.
	Factory(c Capability) (CapabilityFactory, bool)
}

// CapabilityFactory creates model handles for one capability.
type CapabilityFactory interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context, opts Options) (ModelHandle, error)
}

// ModelHandle is an opaque live model instance. Its operation set is discovered
// by asserting the operation interfaces below.
type ModelHandle interface{}

// Prompter is a handle that answers a prompt in one shot.
type Prompter interface {
	Prompt(ctx context.Context, input string) (string, error)
}

// StreamingPrompter is a handle that can stream a prompt response as deltas.
// The channel is closed after a chunk with Done or Error set.
type StreamingPrompter interface {
	PromptStreaming(ctx context.Context, input string) (<-chan StreamChunk, error)
}

// Summarizer is a handle that summarizes text.
type Summarizer interface {
	Summarize(ctx context.Context, input string) (string, error)
}

// Writer is a handle that writes new text from a brief.
type Writer interface {
	Write(ctx context.Context, input string) (string, error)
}

// Rewriter is a handle that rewrites existing text.
type Rewriter interface {
	Rewrite(ctx context.Context, input string) (string, error)
}

// Translator is a handle that translates text.
type Translator interface {
	Translate(ctx context.Context, input string) (string, error)
}

// Destroyer is implemented by handles that hold resources until released.
type Destroyer interface {
	Destroy()
}
