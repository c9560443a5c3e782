package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"tswnano/pkg/nanotypes"
)

// FakeProvider is a scripted CapabilityProvider for tests.
type FakeProvider struct {
	mu        sync.Mutex
	name      string
	factories map[nanotypes.Capability]*FakeFactory
}

// NewFakeProvider creates a provider exposing no capabilities.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		name:      "fake",
		factories: make(map[nanotypes.Capability]*FakeFactory),
	}
}

// Name returns "fake".
func (p *FakeProvider) Name() string {
	return p.name
}

// With exposes factory for capability c and returns the provider for chaining.
func (p *FakeProvider) With(c nanotypes.Capability, factory *FakeFactory) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[c] = factory
	return p
}

// Factory implements nanotypes.CapabilityProvider.
func (p *FakeProvider) Factory(c nanotypes.Capability) (nanotypes.CapabilityFactory, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.factories[c]
	if !ok {
		return nil, false
	}
	return f, true
}

// FakeFactory records availability queries and handle creations.
type FakeFactory struct {
	mu                sync.Mutex
	availability      nanotypes.Availability
	availabilityErr   error
	createErr         error
	newHandle         func(opts nanotypes.Options) nanotypes.ModelHandle
	availabilityCalls int
	createCalls       int
	lastOptions       nanotypes.Options
	handles           []nanotypes.ModelHandle
}

// NewFakeFactory creates a factory reporting availability and building handles with newHandle.
func NewFakeFactory(availability nanotypes.Availability, newHandle func(opts nanotypes.Options) nanotypes.ModelHandle) *FakeFactory {
	return &FakeFactory{availability: availability, newHandle: newHandle}
}

// FailAvailability makes Availability return err.
func (f *FakeFactory) FailAvailability(err error) *FakeFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilityErr = err
	return f
}

// FailCreate makes Create return err.
func (f *FakeFactory) FailCreate(err error) *FakeFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
	return f
}

// SetAvailability changes the reported availability.
func (f *FakeFactory) SetAvailability(a nanotypes.Availability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availability = a
}

// Availability implements nanotypes.CapabilityFactory.
func (f *FakeFactory) Availability(_ context.Context) (nanotypes.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilityCalls++
	return f.availability, f.availabilityErr
}

// Create implements nanotypes.CapabilityFactory.
func (f *FakeFactory) Create(_ context.Context, opts nanotypes.Options) (nanotypes.ModelHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastOptions = opts
	if f.createErr != nil {
		return nil, f.createErr
	}
	var h nanotypes.ModelHandle
	if f.newHandle != nil {
		h = f.newHandle(opts)
	}
	f.handles = append(f.handles, h)
	return h, nil
}

// AvailabilityCalls returns how often availability was queried.
func (f *FakeFactory) AvailabilityCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availabilityCalls
}

// CreateCalls returns how many handles were requested.
func (f *FakeFactory) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

// LastOptions returns the options passed to the latest Create.
func (f *FakeFactory) LastOptions() nanotypes.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// Handles returns every handle created so far.
func (f *FakeFactory) Handles() []nanotypes.ModelHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nanotypes.ModelHandle(nil), f.handles...)
}

// DestroyCounts returns the Destroy call count of every created handle.
func (f *FakeFactory) DestroyCounts() []int {
	var counts []int
	for _, h := range f.Handles() {
		if c, ok := h.(interface{ DestroyCount() int }); ok {
			counts = append(counts, c.DestroyCount())
		}
	}
	return counts
}

// Responder produces a scripted result for one operation call.
type Responder func(ctx context.Context, input string) (string, error)

// Reply always answers with out.
func Reply(out string) Responder {
	return func(context.Context, string) (string, error) { return out, nil }
}

// Echo answers with prefix followed by the input.
func Echo(prefix string) Responder {
	return func(_ context.Context, input string) (string, error) { return prefix + input, nil }
}

// Fail always returns err.
func Fail(err error) Responder {
	return func(context.Context, string) (string, error) { return "", err }
}

// HandleBase counts Destroy calls and records operation inputs.
type HandleBase struct {
	destroyed atomic.Int32
	mu        sync.Mutex
	inputs    []string
}

// Destroy implements nanotypes.Destroyer.
func (h *HandleBase) Destroy() {
	h.destroyed.Add(1)
}

// DestroyCount returns how many times Destroy ran.
func (h *HandleBase) DestroyCount() int {
	return int(h.destroyed.Load())
}

// Inputs returns the inputs passed to the handle's operation.
func (h *HandleBase) Inputs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.inputs...)
}

func (h *HandleBase) record(input string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = append(h.inputs, input)
}

// PromptHandle exposes only Prompt.
type PromptHandle struct {
	HandleBase
	Respond Responder
}

// Prompt implements nanotypes.Prompter.
func (h *PromptHandle) Prompt(ctx context.Context, input string) (string, error) {
	h.record(input)
	return h.Respond(ctx, input)
}

// SummarizeHandle exposes only Summarize.
type SummarizeHandle struct {
	HandleBase
	Respond Responder
}

// Summarize implements nanotypes.Summarizer.
func (h *SummarizeHandle) Summarize(ctx context.Context, input string) (string, error) {
	h.record(input)
	return h.Respond(ctx, input)
}

// WriteHandle exposes only Write.
type WriteHandle struct {
	HandleBase
	Respond Responder
}

// Write implements nanotypes.Writer.
func (h *WriteHandle) Write(ctx context.Context, input string) (string, error) {
	h.record(input)
	return h.Respond(ctx, input)
}

// RewriteHandle exposes only Rewrite.
type RewriteHandle struct {
	HandleBase
	Respond Responder
}

// Rewrite implements nanotypes.Rewriter.
func (h *RewriteHandle) Rewrite(ctx context.Context, input string) (string, error) {
	h.record(input)
	return h.Respond(ctx, input)
}

// TranslateHandle exposes only Translate.
type TranslateHandle struct {
	HandleBase
	Respond Responder
}

// Translate implements nanotypes.Translator.
func (h *TranslateHandle) Translate(ctx context.Context, input string) (string, error) {
	h.record(input)
	return h.Respond(ctx, input)
}

// BareHandle exposes no operation at all.
type BareHandle struct {
	HandleBase
}

// StreamHandle streams scripted deltas. The first delta is sent immediately;
// every later delta waits for a value on Step when Step is non-nil.
type StreamHandle struct {
	HandleBase
	Deltas []string
	Step   chan struct{}
	Err    error
	// IgnoreCancel keeps sending after the context is cancelled.
	IgnoreCancel bool
}

// Prompt implements nanotypes.Prompter by joining all deltas.
func (h *StreamHandle) Prompt(_ context.Context, input string) (string, error) {
	h.record(input)
	if h.Err != nil {
		return "", h.Err
	}
	out := ""
	for _, d := range h.Deltas {
		out += d
	}
	return out, nil
}

// PromptStreaming implements nanotypes.StreamingPrompter.
func (h *StreamHandle) PromptStreaming(ctx context.Context, input string) (<-chan nanotypes.StreamChunk, error) {
	h.record(input)
	ch := make(chan nanotypes.StreamChunk)

	go func() {
		defer close(ch)

		send := func(chunk nanotypes.StreamChunk) bool {
			if h.IgnoreCancel {
				ch <- chunk
				return true
			}
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for i, d := range h.Deltas {
			if i > 0 && h.Step != nil {
				if h.IgnoreCancel {
					<-h.Step
				} else {
					select {
					case <-h.Step:
					case <-ctx.Done():
						return
					}
				}
			}
			if !send(nanotypes.StreamChunk{Content: d}) {
				return
			}
		}

		if h.Err != nil {
			send(nanotypes.StreamChunk{Done: true, Error: h.Err})
			return
		}
		send(nanotypes.StreamChunk{Done: true})
	}()

	return ch, nil
}
