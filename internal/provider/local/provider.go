// Package local exposes a model served by a local OpenAI-compatible runtime
// (Ollama, llama.cpp server, LM Studio) as a capability provider. A single chat
// model backs every capability; the dedicated summarizer, writer, rewriter and
// translator are emulated with instruction system prompts.
package local

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"tswnano/internal/logger"
	"tswnano/pkg/nanotypes"
)

// DefaultEndpoint is the OpenAI-compatible API served by Ollama on loopback.
const DefaultEndpoint = "http://127.0.0.1:11434/v1"

// Config holds the connection settings for the local runtime.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	// MaxRetries is passed to the client; zero disables retries.
	MaxRetries int
}

// Provider implements nanotypes.CapabilityProvider for a local runtime.
type Provider struct {
	endpoint string
	model    string
	client   openai.Client
}

// New creates a provider. No request is made until a capability is probed.
func New(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// Local runtimes ignore the key but the client always sends one.
		apiKey = "local"
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(endpoint),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}

	logger.Debug("Local provider created", "endpoint", endpoint, "model", cfg.Model)
	return &Provider{
		endpoint: endpoint,
		model:    cfg.Model,
		client:   openai.NewClient(options...),
	}
}

// Name returns "local".
func (p *Provider) Name() string {
	return "local"
}

// Endpoint returns the normalized base URL.
func (p *Provider) Endpoint() string {
	return p.endpoint
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// Factory returns a factory for every known capability.
func (p *Provider) Factory(c nanotypes.Capability) (nanotypes.CapabilityFactory, bool) {
	if !c.IsValid() {
		return nil, false
	}
	return &factory{provider: p, capability: c}, true
}

type factory struct {
	provider   *Provider
	capability nanotypes.Capability
}

// Availability asks the runtime for its model list. The configured model being
// listed means readily; a reachable runtime without it means after-download; an
// unreachable runtime means no.
func (f *factory) Availability(ctx context.Context) (nanotypes.Availability, error) {
	p := f.provider
	if p.model == "" {
		return nanotypes.AvailabilityNo, nil
	}

	page, err := p.client.Models.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Debug("Local runtime unreachable", "endpoint", p.endpoint, "error", err)
		return nanotypes.AvailabilityNo, nil
	}

	for _, m := range page.Data {
		if m.ID == p.model || strings.TrimSuffix(m.ID, ":latest") == p.model {
			return nanotypes.AvailabilityReadily, nil
		}
	}
	return nanotypes.AvailabilityAfterDownload, nil
}

// Create builds a handle exposing the operation that matches the capability.
func (f *factory) Create(_ context.Context, opts nanotypes.Options) (nanotypes.ModelHandle, error) {
	if opts != nil && opts.Capability() != f.capability {
		return nil, fmt.Errorf("options for %s given to a %s model", opts.Capability(), f.capability)
	}

	base := &session{provider: f.provider}
	switch f.capability {
	case nanotypes.CapabilityTextGeneration:
		o, _ := opts.(nanotypes.TextGenerationOptions)
		base.system = o.SystemPrompt
		base.initial = o.InitialPrompts
		base.topK = o.TopK
		base.temperature = o.Temperature
		return &promptHandle{base}, nil
	case nanotypes.CapabilitySummarization:
		o, _ := opts.(nanotypes.SummarizationOptions)
		base.system = promptInstructions(o)
		return &summarizeHandle{base}, nil
	case nanotypes.CapabilityWriting:
		o, _ := opts.(nanotypes.WritingOptions)
		base.system = promptInstructions(o)
		return &writeHandle{base}, nil
	case nanotypes.CapabilityRewriting:
		o, _ := opts.(nanotypes.RewritingOptions)
		base.system = promptInstructions(o)
		return &rewriteHandle{base}, nil
	case nanotypes.CapabilityTranslation:
		o, _ := opts.(nanotypes.TranslationOptions)
		base.system = promptInstructions(o)
		return &translateHandle{base}, nil
	}
	return nil, fmt.Errorf("unsupported capability %q", f.capability)
}
