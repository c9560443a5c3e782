package invoker

import (
	"context"
	"strings"

	"tswnano/pkg/nanotypes"
)

// operationKind is the shape a handle was resolved to.
type operationKind int

const (
	opPrompt operationKind = iota
	opSummarize
	opWrite
	opRewrite
	opTranslate
)

func (k operationKind) String() string {
	return [...]string{"prompt", "summarize", "write", "rewrite", "translate"}[k]
}

// operation is a handle resolved once into the single operation it will run.
type operation struct {
	kind   operationKind
	call   func(ctx context.Context, input string) (string, error)
	stream nanotypes.StreamingPrompter
}

// resolveOperation picks the first operation the handle exposes, in the order
// prompt, summarize, write, rewrite, translate.
func resolveOperation(handle nanotypes.ModelHandle) (operation, bool) {
	if handle == nil {
		return operation{}, false
	}

	streamer, _ := handle.(nanotypes.StreamingPrompter)
	if h, ok := handle.(nanotypes.Prompter); ok {
		return operation{kind: opPrompt, call: h.Prompt, stream: streamer}, true
	}
	if streamer != nil {
		return operation{kind: opPrompt, stream: streamer}, true
	}
	if h, ok := handle.(nanotypes.Summarizer); ok {
		return operation{kind: opSummarize, call: h.Summarize}, true
	}
	if h, ok := handle.(nanotypes.Writer); ok {
		return operation{kind: opWrite, call: h.Write}, true
	}
	if h, ok := handle.(nanotypes.Rewriter); ok {
		return operation{kind: opRewrite, call: h.Rewrite}, true
	}
	if h, ok := handle.(nanotypes.Translator); ok {
		return operation{kind: opTranslate, call: h.Translate}, true
	}
	return operation{}, false
}

// execute runs the operation. With onChunk set and a streaming handle, every
// delta is accumulated and the running text is passed to onChunk.
func (op operation) execute(ctx context.Context, input string, onChunk func(string)) (string, error) {
	if op.stream != nil && (onChunk != nil || op.call == nil) {
		return op.executeStreaming(ctx, input, onChunk)
	}

	out, err := op.call(ctx, input)
	if err != nil {
		return "", err
	}
	if onChunk != nil {
		onChunk(out)
	}
	return out, nil
}

func (op operation) executeStreaming(ctx context.Context, input string, onChunk func(string)) (string, error) {
	chunks, err := op.stream.PromptStreaming(ctx, input)
	if err != nil {
		return "", err
	}
	// Keep draining after an early return so the producer can finish.
	defer func() {
		go func() {
			for range chunks {
			}
		}()
	}()

	var acc strings.Builder
	for {
		select {
		case <-ctx.Done():
			return acc.String(), ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return acc.String(), ctx.Err()
			}
			if chunk.Error != nil {
				return acc.String(), chunk.Error
			}
			if chunk.Content != "" {
				acc.WriteString(chunk.Content)
				if onChunk != nil {
					onChunk(acc.String())
				}
			}
			if chunk.Done {
				return acc.String(), nil
			}
		}
	}
}
