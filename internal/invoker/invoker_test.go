package invoker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tswnano/internal/testutils"
	"tswnano/pkg/nanotypes"
)

func summarizeCommand() nanotypes.Command {
	return nanotypes.Command{
		Name:       "Summary",
		Capability: nanotypes.CapabilitySummarization,
		Options:    nanotypes.SummarizationOptions{Type: "tl;dr", Format: "plain-text", Length: "short"},
	}
}

func promptCommand() nanotypes.Command {
	return nanotypes.Command{
		Name:       "Ask",
		Capability: nanotypes.CapabilityTextGeneration,
		Options:    nanotypes.TextGenerationOptions{SystemPrompt: "Be brief."},
	}
}

func TestInvoke_SummarizeHandle(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.SummarizeHandle{Respond: testutils.Reply("short summary")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	out, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "a long article")

	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
	assert.Equal(t, 1, factory.CreateCalls())
	assert.Equal(t, []int{1}, factory.DestroyCounts())

	h := factory.Handles()[0].(*testutils.SummarizeHandle)
	assert.Equal(t, []string{"a long article"}, h.Inputs())
}

func TestInvoke_DispatchByHandleShape(t *testing.T) {
	tests := []struct {
		name   string
		cmd    nanotypes.Command
		handle func() nanotypes.ModelHandle
		want   string
	}{
		{
			name:   "prompt",
			cmd:    promptCommand(),
			handle: func() nanotypes.ModelHandle { return &testutils.PromptHandle{Respond: testutils.Echo("prompt:")} },
			want:   "prompt:hello",
		},
		{
			name: "write",
			cmd:  nanotypes.Command{Name: "Draft", Capability: nanotypes.CapabilityWriting, Options: nanotypes.WritingOptions{Tone: "casual"}},
			handle: func() nanotypes.ModelHandle {
				return &testutils.WriteHandle{Respond: testutils.Echo("write:")}
			},
			want: "write:hello",
		},
		{
			name: "rewrite",
			cmd:  nanotypes.Command{Name: "Polish", Capability: nanotypes.CapabilityRewriting, Options: nanotypes.RewritingOptions{}},
			handle: func() nanotypes.ModelHandle {
				return &testutils.RewriteHandle{Respond: testutils.Echo("rewrite:")}
			},
			want: "rewrite:hello",
		},
		{
			name: "translate",
			cmd:  nanotypes.Command{Name: "Translate", Capability: nanotypes.CapabilityTranslation, Options: nanotypes.TranslationOptions{TargetLanguage: "zh"}},
			handle: func() nanotypes.ModelHandle {
				return &testutils.TranslateHandle{Respond: testutils.Echo("translate:")}
			},
			want: "translate:hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
				return tt.handle()
			})
			provider := testutils.NewFakeProvider().With(tt.cmd.Capability, factory)

			out, err := New(provider, DefaultConfig()).Invoke(context.Background(), tt.cmd, "hello")

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, []int{1}, factory.DestroyCounts())
		})
	}
}

// multiHandle exposes every operation; prompt must win.
type multiHandle struct {
	testutils.HandleBase
}

func (m *multiHandle) Prompt(context.Context, string) (string, error)    { return "prompt", nil }
func (m *multiHandle) Summarize(context.Context, string) (string, error) { return "summarize", nil }
func (m *multiHandle) Rewrite(context.Context, string) (string, error)   { return "rewrite", nil }

func TestInvoke_PromptTakesPrecedence(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &multiHandle{}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	out, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
	require.NoError(t, err)
	assert.Equal(t, "prompt", out)
}

func TestInvoke_OptionsPassedVerbatim(t *testing.T) {
	topK := 3
	cmd := nanotypes.Command{
		Name:       "Odd",
		Capability: nanotypes.CapabilityTextGeneration,
		// topK without temperature is inconsistent but still invoked.
		Options: nanotypes.TextGenerationOptions{TopK: &topK},
	}
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.PromptHandle{Respond: testutils.Reply("ok")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	_, err := New(provider, DefaultConfig()).Invoke(context.Background(), cmd, "hi")
	require.NoError(t, err)
	assert.Equal(t, cmd.Options, factory.LastOptions())
}

func TestInvoke_CapabilityUnavailable(t *testing.T) {
	t.Run("provider lacks capability", func(t *testing.T) {
		provider := testutils.NewFakeProvider()
		_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
		assert.ErrorIs(t, err, nanotypes.ErrCapabilityUnavailable)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := New(nil, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
		assert.ErrorIs(t, err, nanotypes.ErrCapabilityUnavailable)
	})

	t.Run("availability no creates nothing", func(t *testing.T) {
		factory := testutils.NewFakeFactory(nanotypes.AvailabilityNo, nil)
		provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

		_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
		assert.ErrorIs(t, err, nanotypes.ErrCapabilityUnavailable)
		assert.Equal(t, 0, factory.CreateCalls())
	})

	t.Run("availability query fails", func(t *testing.T) {
		boom := errors.New("runtime crashed")
		factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, nil).FailAvailability(boom)
		provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

		_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
		assert.ErrorIs(t, err, nanotypes.ErrCapabilityUnavailable)
		assert.ErrorIs(t, err, boom)
	})
}

func TestInvoke_AvailabilityPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  nanotypes.AvailabilityPolicy
		avail   nanotypes.Availability
		wantErr bool
	}{
		{"strict rejects after-download", nanotypes.PolicyStrict, nanotypes.AvailabilityAfterDownload, true},
		{"strict accepts readily", nanotypes.PolicyStrict, nanotypes.AvailabilityReadily, false},
		{"permissive accepts after-download", nanotypes.PolicyPermissive, nanotypes.AvailabilityAfterDownload, false},
		{"permissive rejects no", nanotypes.PolicyPermissive, nanotypes.AvailabilityNo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := testutils.NewFakeFactory(tt.avail, func(nanotypes.Options) nanotypes.ModelHandle {
				return &testutils.SummarizeHandle{Respond: testutils.Reply("ok")}
			})
			provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)
			inv := New(provider, Config{Policy: tt.policy, MaxInputChars: DefaultMaxInputChars})

			_, err := inv.Invoke(context.Background(), summarizeCommand(), "text")
			if tt.wantErr {
				assert.ErrorIs(t, err, nanotypes.ErrCapabilityUnavailable)
				assert.Equal(t, 0, factory.CreateCalls())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvoke_UnsupportedOperationStillReleases(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.BareHandle{}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")

	assert.ErrorIs(t, err, nanotypes.ErrUnsupportedOperation)
	assert.Equal(t, []int{1}, factory.DestroyCounts())
}

func TestInvoke_NilHandleIsUnsupported(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, nil)
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
	assert.ErrorIs(t, err, nanotypes.ErrUnsupportedOperation)
}

func TestInvoke_ProviderErrorReleasesOnce(t *testing.T) {
	boom := errors.New("model crashed")
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.RewriteHandle{Respond: testutils.Fail(boom)}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityRewriting, factory)
	cmd := nanotypes.Command{Name: "Polish", Capability: nanotypes.CapabilityRewriting, Options: nanotypes.RewritingOptions{}}

	_, err := New(provider, DefaultConfig()).Invoke(context.Background(), cmd, "text")

	assert.ErrorIs(t, err, nanotypes.ErrProviderError)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, factory.DestroyCounts())

	var ie *nanotypes.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Polish", ie.Command)
}

func TestInvoke_CreateFailure(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, nil).FailCreate(errors.New("out of memory"))
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	_, err := New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
	assert.ErrorIs(t, err, nanotypes.ErrProviderError)
	assert.Empty(t, factory.DestroyCounts())
}

// panicHandle panics inside its operation.
type panicHandle struct {
	testutils.HandleBase
}

func (p *panicHandle) Summarize(context.Context, string) (string, error) {
	panic("provider bug")
}

func TestInvoke_PanicStillReleases(t *testing.T) {
	h := &panicHandle{}
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle { return h })
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	assert.Panics(t, func() {
		_, _ = New(provider, DefaultConfig()).Invoke(context.Background(), summarizeCommand(), "text")
	})
	assert.Equal(t, 1, h.DestroyCount())
}

func TestInvoke_InvalidCommand(t *testing.T) {
	provider := testutils.NewFakeProvider()
	inv := New(provider, DefaultConfig())

	_, err := inv.Invoke(context.Background(), nanotypes.Command{Name: "Paint", Capability: "painter"}, "text")
	assert.ErrorIs(t, err, nanotypes.ErrInvalidCommand)
	assert.False(t, nanotypes.IsRecoverable(err))

	mismatched := nanotypes.Command{Name: "Mixed", Capability: nanotypes.CapabilityWriting, Options: nanotypes.SummarizationOptions{}}
	_, err = inv.Invoke(context.Background(), mismatched, "text")
	assert.ErrorIs(t, err, nanotypes.ErrInvalidCommand)

	_, err = inv.InvokeFailSoft(context.Background(), mismatched, "text")
	assert.ErrorIs(t, err, nanotypes.ErrInvalidCommand)
}

func TestInvoke_InputTooLarge(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.SummarizeHandle{Respond: testutils.Reply("ok")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)
	inv := New(provider, Config{MaxInputChars: 10})

	_, err := inv.Invoke(context.Background(), summarizeCommand(), strings.Repeat("x", 11))
	assert.ErrorIs(t, err, nanotypes.ErrInputTooLarge)
	assert.Equal(t, 0, factory.AvailabilityCalls())
	assert.Equal(t, 0, factory.CreateCalls())

	// Exactly at the bound is accepted; the bound counts characters, not bytes.
	_, err = inv.Invoke(context.Background(), summarizeCommand(), strings.Repeat("é", 10))
	assert.NoError(t, err)
}

func TestInvoke_TextGenerationIgnoresInputBound(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.PromptHandle{Respond: testutils.Reply("ok")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	_, err := New(provider, Config{MaxInputChars: 5}).Invoke(context.Background(), promptCommand(), "a much longer prompt")
	assert.NoError(t, err)
}

func TestInvokeFailSoft(t *testing.T) {
	provider := testutils.NewFakeProvider()
	out, err := New(provider, DefaultConfig()).InvokeFailSoft(context.Background(), summarizeCommand(), "text")

	require.NoError(t, err)
	assert.Contains(t, out, "does not support summarizer")
}

func TestInvokeStreaming_AccumulatesDeltas(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.StreamHandle{Deltas: []string{"Hel", "lo ", "world"}}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	var seen []string
	out, err := New(provider, DefaultConfig()).InvokeStreaming(context.Background(), promptCommand(), "hi", func(acc string) {
		seen = append(seen, acc)
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, []string{"Hel", "Hello ", "Hello world"}, seen)
	assert.Equal(t, []int{1}, factory.DestroyCounts())
}

func TestInvokeStreaming_NonStreamingHandleReportsOnce(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.SummarizeHandle{Respond: testutils.Reply("summary")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilitySummarization, factory)

	var seen []string
	out, err := New(provider, DefaultConfig()).InvokeStreaming(context.Background(), summarizeCommand(), "text", func(acc string) {
		seen = append(seen, acc)
	})

	require.NoError(t, err)
	assert.Equal(t, "summary", out)
	assert.Equal(t, []string{"summary"}, seen)
}

func TestInvokeStreaming_StreamErrorKeepsPartial(t *testing.T) {
	boom := errors.New("stream broke")
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.StreamHandle{Deltas: []string{"partial"}, Err: boom}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	out, err := New(provider, DefaultConfig()).InvokeStreaming(context.Background(), promptCommand(), "hi", nil)

	assert.ErrorIs(t, err, nanotypes.ErrProviderError)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", out)
	assert.Equal(t, []int{1}, factory.DestroyCounts())
}

func TestInvokeStreaming_CancellationReleases(t *testing.T) {
	step := make(chan struct{})
	handle := &testutils.StreamHandle{Deltas: []string{"first", " second"}, Step: step}
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle { return handle })
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	ctx, cancel := context.WithCancel(context.Background())
	firstSeen := make(chan struct{})
	var once sync.Once

	var out string
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err = New(provider, DefaultConfig()).InvokeStreaming(ctx, promptCommand(), "hi", func(string) {
			once.Do(func() { close(firstSeen) })
		})
	}()

	<-firstSeen
	cancel()
	<-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "first", out)
	assert.Equal(t, 1, handle.DestroyCount())
}

func TestSuggestNext(t *testing.T) {
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		return &testutils.PromptHandle{Respond: testutils.Reply("  and then it rained.\n")}
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	out, err := New(provider, DefaultConfig()).SuggestNext(context.Background(), "The sky darkened")
	require.NoError(t, err)
	assert.Equal(t, "and then it rained.", out)

	opts, ok := factory.LastOptions().(nanotypes.TextGenerationOptions)
	require.True(t, ok)
	require.Len(t, opts.InitialPrompts, 1)
	assert.Contains(t, opts.SystemPrompt, "continuations")
}

func TestFillBlank(t *testing.T) {
	var handle *testutils.PromptHandle
	factory := testutils.NewFakeFactory(nanotypes.AvailabilityReadily, func(nanotypes.Options) nanotypes.ModelHandle {
		handle = &testutils.PromptHandle{Respond: testutils.Reply(" sunny[BLANK] ")}
		return handle
	})
	provider := testutils.NewFakeProvider().With(nanotypes.CapabilityTextGeneration, factory)

	out, err := New(provider, DefaultConfig()).FillBlank(context.Background(), "Today is")
	require.NoError(t, err)
	assert.Equal(t, "sunny", out)
	require.Len(t, handle.Inputs(), 1)
	assert.True(t, strings.HasSuffix(handle.Inputs()[0], "Today is[BLANK]"))
}

func TestCapabilityProbe_Survey(t *testing.T) {
	provider := testutils.NewFakeProvider().
		With(nanotypes.CapabilityTextGeneration, testutils.NewFakeFactory(nanotypes.AvailabilityReadily, nil)).
		With(nanotypes.CapabilitySummarization, testutils.NewFakeFactory(nanotypes.AvailabilityAfterDownload, nil))

	results := NewCapabilityProbe(nanotypes.PolicyStrict).Survey(context.Background(), provider)
	require.Len(t, results, len(nanotypes.AllCapabilities()))

	byCap := map[nanotypes.Capability]ProbeResult{}
	for _, r := range results {
		byCap[r.Capability] = r
	}
	assert.True(t, byCap[nanotypes.CapabilityTextGeneration].Usable)
	assert.True(t, byCap[nanotypes.CapabilitySummarization].Supported)
	assert.False(t, byCap[nanotypes.CapabilitySummarization].Usable)
	assert.False(t, byCap[nanotypes.CapabilityWriting].Supported)
}

func TestNewCapabilityProbe_DefaultsToStrict(t *testing.T) {
	assert.Equal(t, nanotypes.PolicyStrict, NewCapabilityProbe("").Policy())
}
