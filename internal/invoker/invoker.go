package invoker

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"tswnano/internal/logger"
	"tswnano/pkg/nanotypes"
)

// DefaultMaxInputChars bounds the input of the dedicated summarizer, writer,
// rewriter and translator capabilities.
const DefaultMaxInputChars = 4096

// Config controls how the invoker validates and dispatches commands.
type Config struct {
	// Policy selects which availability answers are usable.
	Policy nanotypes.AvailabilityPolicy
	// MaxInputChars rejects longer input for non text generation commands.
	// Zero disables the check.
	MaxInputChars int
}

// DefaultConfig returns the strict policy with the standard input bound.
func DefaultConfig() Config {
	return Config{
		Policy:        nanotypes.PolicyStrict,
		MaxInputChars: DefaultMaxInputChars,
	}
}

// Invoker runs commands against a capability provider.
// It holds no per-call state and is safe for concurrent use.
type Invoker struct {
	provider      nanotypes.CapabilityProvider
	probe         *CapabilityProbe
	maxInputChars int
}

// New creates an Invoker for the provider.
func New(provider nanotypes.CapabilityProvider, cfg Config) *Invoker {
	return &Invoker{
		provider:      provider,
		probe:         NewCapabilityProbe(cfg.Policy),
		maxInputChars: cfg.MaxInputChars,
	}
}

// Provider returns the underlying capability provider.
func (inv *Invoker) Provider() nanotypes.CapabilityProvider {
	return inv.provider
}

// Probe returns the availability probe used before every handle creation.
func (inv *Invoker) Probe() *CapabilityProbe {
	return inv.probe
}

// Invoke runs cmd on input and returns the model output.
// Every failure is an *nanotypes.InvocationError.
func (inv *Invoker) Invoke(ctx context.Context, cmd nanotypes.Command, input string) (string, error) {
	return inv.run(ctx, cmd, input, nil)
}

// InvokeStreaming behaves like Invoke but reports progress through onChunk,
// which receives the full text accumulated so far. Handles that cannot stream
// report their single result once.
func (inv *Invoker) InvokeStreaming(ctx context.Context, cmd nanotypes.Command, input string, onChunk func(accumulated string)) (string, error) {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	return inv.run(ctx, cmd, input, onChunk)
}

// InvokeFailSoft runs cmd and renders recoverable failures as the output text.
// Only InvalidCommand is returned as an error.
func (inv *Invoker) InvokeFailSoft(ctx context.Context, cmd nanotypes.Command, input string) (string, error) {
	return nanotypes.FailSoftText(inv.Invoke(ctx, cmd, input))
}

func (inv *Invoker) run(ctx context.Context, cmd nanotypes.Command, input string, onChunk func(string)) (out string, err error) {
	c := cmd.Capability
	if !c.IsValid() {
		return "", invalidCommand(cmd, fmt.Sprintf("unknown capability %q", c))
	}
	if cmd.Options != nil && cmd.Options.Capability() != c {
		return "", invalidCommand(cmd, fmt.Sprintf("options for %s given to a %s command", cmd.Options.Capability(), c))
	}

	if !c.IsTextGeneration() && inv.maxInputChars > 0 {
		if n := utf8.RuneCountInString(input); n > inv.maxInputChars {
			return "", nanotypes.NewInvocationError(nanotypes.KindInputTooLarge, c,
				fmt.Sprintf("input has %d characters, limit is %d", n, inv.maxInputChars), nil).WithCommand(cmd.Name)
		}
	}

	factory, err := inv.probe.Check(ctx, inv.provider, c)
	if err != nil {
		return "", annotate(err, cmd.Name)
	}

	handle, err := factory.Create(ctx, cmd.Options)
	if err != nil {
		return "", nanotypes.NewInvocationError(nanotypes.KindProviderError, c, "failed to create model", err).WithCommand(cmd.Name)
	}
	logger.Debug("Model handle created", "command", cmd.Name, "capability", c)
	defer release(handle, cmd.Name)

	op, ok := resolveOperation(handle)
	if !ok {
		return "", nanotypes.NewInvocationError(nanotypes.KindUnsupportedOperation, c,
			"model handle exposes no supported operation", nil).WithCommand(cmd.Name)
	}

	out, err = op.execute(ctx, input, onChunk)
	if err != nil {
		logger.Debug("Model operation failed", "command", cmd.Name, "operation", op.kind, "error", err)
		return out, nanotypes.NewInvocationError(nanotypes.KindProviderError, c,
			fmt.Sprintf("%s failed", op.kind), err).WithCommand(cmd.Name)
	}
	return out, nil
}

// release destroys the handle when it holds resources. Runs exactly once per created handle.
func release(handle nanotypes.ModelHandle, command string) {
	if d, ok := handle.(nanotypes.Destroyer); ok {
		d.Destroy()
		logger.Debug("Model handle released", "command", command)
	}
}

func invalidCommand(cmd nanotypes.Command, msg string) error {
	return nanotypes.NewInvocationError(nanotypes.KindInvalidCommand, cmd.Capability, msg, nil).WithCommand(cmd.Name)
}

func annotate(err error, command string) error {
	var ie *nanotypes.InvocationError
	if errors.As(err, &ie) {
		return ie.WithCommand(command)
	}
	return err
}
