package local

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"tswnano/internal/logger"
	"tswnano/internal/prompt"
	"tswnano/pkg/nanotypes"
)

// ErrHandleDestroyed is returned by operations on a released handle.
var ErrHandleDestroyed = errors.New("model handle destroyed")

// session holds the per-handle request template.
type session struct {
	provider    *Provider
	system      string
	initial     []nanotypes.PromptMessage
	topK        *int
	temperature *float64
	closed      atomic.Bool
}

// Destroy implements nanotypes.Destroyer.
func (s *session) Destroy() {
	s.closed.Store(true)
}

// Destroyed reports whether Destroy ran.
func (s *session) Destroyed() bool {
	return s.closed.Load()
}

func (s *session) params(input string) (openai.ChatCompletionNewParams, []option.RequestOption) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(s.initial)+2)
	if s.system != "" {
		messages = append(messages, openai.SystemMessage(s.system))
	}
	for _, m := range s.initial {
		switch m.Role {
		case nanotypes.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case nanotypes.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case nanotypes.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(input))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.provider.model),
		Messages: messages,
	}
	if s.temperature != nil {
		params.Temperature = openai.Float(*s.temperature)
	}

	var opts []option.RequestOption
	if s.topK != nil {
		// top_k is not part of the OpenAI schema; local runtimes accept it.
		opts = append(opts, option.WithJSONSet("top_k", *s.topK))
	}
	return params, opts
}

func (s *session) complete(ctx context.Context, input string) (string, error) {
	if s.Destroyed() {
		return "", ErrHandleDestroyed
	}

	params, opts := s.params(input)
	logger.Debug("Local completion starting", "model", s.provider.model, "message_count", len(params.Messages))

	completion, err := s.provider.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

func (s *session) stream(ctx context.Context, input string) (<-chan nanotypes.StreamChunk, error) {
	if s.Destroyed() {
		return nil, ErrHandleDestroyed
	}

	params, opts := s.params(input)
	logger.Debug("Local stream starting", "model", s.provider.model, "message_count", len(params.Messages))

	stream := s.provider.client.Chat.Completions.NewStreaming(ctx, params, opts...)
	ch := make(chan nanotypes.StreamChunk)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- nanotypes.StreamChunk{Content: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case ch <- nanotypes.StreamChunk{Done: true, Error: stream.Err()}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

type promptHandle struct{ *session }

// Prompt implements nanotypes.Prompter.
func (h *promptHandle) Prompt(ctx context.Context, input string) (string, error) {
	return h.complete(ctx, input)
}

// PromptStreaming implements nanotypes.StreamingPrompter.
func (h *promptHandle) PromptStreaming(ctx context.Context, input string) (<-chan nanotypes.StreamChunk, error) {
	return h.stream(ctx, input)
}

type summarizeHandle struct{ *session }

func (h *summarizeHandle) Summarize(ctx context.Context, input string) (string, error) {
	return h.complete(ctx, input)
}

type writeHandle struct{ *session }

func (h *writeHandle) Write(ctx context.Context, input string) (string, error) {
	return h.complete(ctx, input)
}

type rewriteHandle struct{ *session }

func (h *rewriteHandle) Rewrite(ctx context.Context, input string) (string, error) {
	return h.complete(ctx, input)
}

type translateHandle struct{ *session }

func (h *translateHandle) Translate(ctx context.Context, input string) (string, error) {
	return h.complete(ctx, input)
}

// promptInstructions renders dedicated-capability options as a system prompt.
func promptInstructions(opts nanotypes.Options) string {
	switch o := opts.(type) {
	case nanotypes.SummarizationOptions:
		return prompt.SummarizerInstructions(o)
	case nanotypes.WritingOptions:
		return prompt.WriterInstructions(o)
	case nanotypes.RewritingOptions:
		return prompt.RewriterInstructions(o)
	case nanotypes.TranslationOptions:
		return prompt.TranslatorInstructions(o)
	}
	return ""
}
