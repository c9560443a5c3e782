// Package chat implements the page-grounded chat session: a single-turn-at-a-time
// state machine over the message history that streams model output into a
// placeholder assistant message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"tswnano/internal/logger"
	"tswnano/internal/prompt"
	"tswnano/internal/testutils"
	"tswnano/pkg/nanotypes"
)

// Session errors.
var (
	ErrTurnInFlight         = errors.New("a response is still in progress")
	ErrEmptyInput           = errors.New("message is empty")
	ErrNotStreaming         = errors.New("no response is streaming")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotUserMessage       = errors.New("only user messages can be edited or resubmitted")
	ErrNothingToRegenerate  = errors.New("no user message to regenerate from")
	ErrNotTextGenerationCmd = errors.New("chat commands must use the languageModel capability")
)

// Invoker streams one command invocation. *invoker.Invoker satisfies it.
type Invoker interface {
	InvokeStreaming(ctx context.Context, cmd nanotypes.Command, input string, onChunk func(accumulated string)) (string, error)
}

// ContextPreparer turns page text into grounding context. *summary.ContextPreparer satisfies it.
type ContextPreparer interface {
	Prepare(ctx context.Context, key, pageText string) (string, error)
}

// Config describes the page a session is grounded in.
type Config struct {
	// PageKey identifies the page for summary caching.
	PageKey string
	// PageText is the cleaned page content.
	PageText string
	// Command is the system command; the zero value means the Default command.
	Command nanotypes.Command
	// TestMode makes the session ID deterministic.
	TestMode bool
}

// Session is one chat over one page. Only one turn runs at a time.
type Session struct {
	id       string
	invoker  Invoker
	preparer ContextPreparer
	pageKey  string
	pageText string

	mu         sync.Mutex
	command    nanotypes.Command
	messages   []nanotypes.ChatMessage
	nextID     int
	state      nanotypes.ChatState
	inFlight   bool
	generation uint64
	activeID   int
	cancel     context.CancelFunc
	observers  map[int]func(nanotypes.ChatSnapshot)
	observerID int
	pending    []nanotypes.ChatSnapshot
	delivering bool
}

// turn carries everything one model run needs, captured under the lock.
type turn struct {
	ctx           context.Context
	cancel        context.CancelFunc
	generation    uint64
	placeholderID int
	input         string
	command       nanotypes.Command
	history       []nanotypes.PromptMessage
}

// NewSession creates an idle session. preparer may be nil, in which case the
// page text is used as context unchanged.
func NewSession(inv Invoker, preparer ContextPreparer, cfg Config) *Session {
	cmd := cfg.Command
	if cmd.Name == "" {
		cmd = nanotypes.NewDefaultCommand()
	}
	return &Session{
		id:        testutils.GenerateUUID(cfg.TestMode),
		invoker:   inv,
		preparer:  preparer,
		pageKey:   cfg.PageKey,
		pageText:  cfg.PageText,
		command:   cmd,
		nextID:    1,
		state:     nanotypes.ChatIdle,
		observers: make(map[int]func(nanotypes.ChatSnapshot)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Submit sends a new user message and blocks until the turn ends.
// Recoverable model errors are written into the assistant message and Submit
// returns nil; only InvalidCommand is returned.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	t, err := s.beginTurn(ctx, func() (string, error) {
		s.appendLocked(nanotypes.RoleUser, text, true, false)
		return text, nil
	})
	if err != nil {
		return err
	}
	return s.execute(t)
}

// EditMessage replaces a user message, drops everything after it and reruns the turn.
func (s *Session) EditMessage(ctx context.Context, id int, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	t, err := s.beginTurn(ctx, func() (string, error) {
		idx, err := s.userIndexLocked(id)
		if err != nil {
			return "", err
		}
		s.messages = s.messages[:idx+1]
		s.messages[idx].Content = text
		return text, nil
	})
	if err != nil {
		return err
	}
	return s.execute(t)
}

// ResubmitFrom drops everything after a user message and reruns it.
func (s *Session) ResubmitFrom(ctx context.Context, id int) error {
	t, err := s.beginTurn(ctx, func() (string, error) {
		idx, err := s.userIndexLocked(id)
		if err != nil {
			return "", err
		}
		s.messages = s.messages[:idx+1]
		return s.messages[idx].Content, nil
	})
	if err != nil {
		return err
	}
	return s.execute(t)
}

// RegenerateLast drops the latest assistant message and reruns the user
// message before it.
func (s *Session) RegenerateLast(ctx context.Context) error {
	t, err := s.beginTurn(ctx, func() (string, error) {
		n := len(s.messages)
		if n > 0 && s.messages[n-1].Role == nanotypes.RoleAssistant {
			n--
		}
		if n == 0 || s.messages[n-1].Role != nanotypes.RoleUser {
			return "", ErrNothingToRegenerate
		}
		s.messages = s.messages[:n]
		return s.messages[n-1].Content, nil
	})
	if err != nil {
		return err
	}
	return s.execute(t)
}

// Cancel stops the streaming turn. Content received so far is kept and marked
// complete; increments arriving afterwards are ignored.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != nanotypes.ChatStreaming {
		s.mu.Unlock()
		return ErrNotStreaming
	}

	s.generation++
	if s.cancel != nil {
		s.cancel()
	}
	if m := s.messageLocked(s.activeID); m != nil {
		m.IsComplete = true
		m.IsThinking = false
	}
	s.state = nanotypes.ChatIdle
	s.changedLocked()
	s.mu.Unlock()

	logger.Debug("Chat turn cancelled", "session", s.id)
	s.deliver()
	return nil
}

// SetSystemCommand changes the command used to build the system prompt.
// The Default command grounds answers in the page; any other languageModel
// command prepends its own system prompt to the page content.
func (s *Session) SetSystemCommand(cmd nanotypes.Command) error {
	if cmd.Capability != nanotypes.CapabilityTextGeneration {
		return fmt.Errorf("%w: %s uses %s", ErrNotTextGenerationCmd, cmd.Name, cmd.Capability)
	}

	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.command = cmd
	s.changedLocked()
	s.mu.Unlock()

	s.deliver()
	return nil
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() nanotypes.ChatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// OnChange registers fn to receive a snapshot after every mutation and returns
// a function removing it. Snapshots arrive in mutation order, one at a time,
// outside the session lock. fn may run on any goroutine that changed the
// session, and a change made while another snapshot is being delivered reaches
// fn after that delivery returns.
func (s *Session) OnChange(fn func(nanotypes.ChatSnapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observerID++
	id := s.observerID
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// beginTurn checks the turn guard, applies the history mutation, appends the
// thinking placeholder and moves to Submitting. Nothing changes when the guard
// or the mutation fails.
func (s *Session) beginTurn(ctx context.Context, mutate func() (string, error)) (*turn, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return nil, ErrTurnInFlight
	}

	saved := append([]nanotypes.ChatMessage(nil), s.messages...)
	input, err := mutate()
	if err != nil {
		s.messages = saved
		s.mu.Unlock()
		return nil, err
	}

	history := s.historyLocked()
	placeholder := s.appendLocked(nanotypes.RoleAssistant, "", false, true)

	turnCtx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.activeID = placeholder
	s.inFlight = true
	s.state = nanotypes.ChatSubmitting

	t := &turn{
		ctx:           turnCtx,
		cancel:        cancel,
		generation:    s.generation,
		placeholderID: placeholder,
		input:         input,
		command:       s.command,
		history:       history,
	}
	s.changedLocked()
	s.mu.Unlock()

	logger.Debug("Chat turn started", "session", s.id, "command", t.command.Name)
	s.deliver()
	return t, nil
}

// execute runs the model for t and settles the placeholder.
func (s *Session) execute(t *turn) error {
	defer func() {
		t.cancel()
		s.mu.Lock()
		s.inFlight = false
		if s.generation == t.generation {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	cmd, err := s.groundedCommand(t)
	if err != nil {
		return s.settle(t, "", err)
	}

	if !s.transition(t, nanotypes.ChatStreaming) {
		return nil
	}

	out, err := s.invoker.InvokeStreaming(t.ctx, cmd, t.input, func(acc string) {
		s.applyIncrement(t, acc)
	})
	return s.settle(t, out, err)
}

// groundedCommand builds the system prompt for the turn's command.
func (s *Session) groundedCommand(t *turn) (nanotypes.Command, error) {
	pageContent := s.pageText
	if s.preparer != nil {
		prepared, err := s.preparer.Prepare(t.ctx, s.pageKey, s.pageText)
		if err != nil {
			return nanotypes.Command{}, err
		}
		pageContent = prepared
	}

	opts, _ := t.command.TextGeneration()
	if t.command.IsDefault() || strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = prompt.PageGroundedSystemPrompt(pageContent)
	} else {
		opts.SystemPrompt = prompt.CustomGroundedSystemPrompt(opts.SystemPrompt, pageContent)
	}
	opts.InitialPrompts = append(append([]nanotypes.PromptMessage(nil), opts.InitialPrompts...), t.history...)

	return nanotypes.Command{
		Name:       t.command.Name,
		Capability: nanotypes.CapabilityTextGeneration,
		Options:    opts,
	}, nil
}

// transition moves a live turn to state. It reports false when the turn is no longer live.
func (s *Session) transition(t *turn, state nanotypes.ChatState) bool {
	s.mu.Lock()
	if s.generation != t.generation {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.changedLocked()
	s.mu.Unlock()

	s.deliver()
	return true
}

// applyIncrement replaces the placeholder content while the turn is live.
func (s *Session) applyIncrement(t *turn, accumulated string) {
	s.mu.Lock()
	if s.generation != t.generation {
		s.mu.Unlock()
		return
	}
	if m := s.messageLocked(t.placeholderID); m != nil {
		m.Content = accumulated
		m.IsThinking = false
	}
	s.changedLocked()
	s.mu.Unlock()

	s.deliver()
}

// settle finishes a live turn with its output or error and returns to Idle.
func (s *Session) settle(t *turn, out string, err error) error {
	s.mu.Lock()
	if s.generation != t.generation {
		// Cancelled: Cancel already settled the placeholder.
		s.mu.Unlock()
		return nil
	}

	var returned error
	switch {
	case err == nil:
		s.completeLocked(t.placeholderID, out)
	case nanotypes.IsRecoverable(err):
		logger.Debug("Chat turn failed", "session", s.id, "error", err)
		s.completeLocked(t.placeholderID, err.Error())
	default:
		s.removeLocked(t.placeholderID)
		returned = err
	}
	s.state = nanotypes.ChatIdle
	s.changedLocked()
	s.mu.Unlock()

	s.deliver()
	return returned
}

func (s *Session) busyLocked() bool {
	return s.state != nanotypes.ChatIdle || s.inFlight
}

func (s *Session) appendLocked(role nanotypes.Role, content string, complete, thinking bool) int {
	id := s.nextID
	s.nextID++
	s.messages = append(s.messages, nanotypes.ChatMessage{
		ID:         id,
		Role:       role,
		Content:    content,
		IsComplete: complete,
		IsThinking: thinking,
	})
	return id
}

func (s *Session) indexLocked(id int) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) userIndexLocked(id int) (int, error) {
	idx := s.indexLocked(id)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %d", ErrMessageNotFound, id)
	}
	if s.messages[idx].Role != nanotypes.RoleUser {
		return -1, ErrNotUserMessage
	}
	return idx, nil
}

func (s *Session) messageLocked(id int) *nanotypes.ChatMessage {
	if idx := s.indexLocked(id); idx >= 0 {
		return &s.messages[idx]
	}
	return nil
}

func (s *Session) completeLocked(id int, content string) {
	if m := s.messageLocked(id); m != nil {
		m.Content = content
		m.IsComplete = true
		m.IsThinking = false
	}
}

func (s *Session) removeLocked(id int) {
	if idx := s.indexLocked(id); idx >= 0 {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
}

// historyLocked returns the completed messages before the newest user message.
func (s *Session) historyLocked() []nanotypes.PromptMessage {
	if len(s.messages) == 0 {
		return nil
	}
	prior := s.messages[:len(s.messages)-1]
	history := make([]nanotypes.PromptMessage, 0, len(prior))
	for _, m := range prior {
		if !m.IsComplete || m.IsThinking || strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, nanotypes.PromptMessage{Role: m.Role, Content: m.Content})
	}
	return history
}

func (s *Session) snapshotLocked() nanotypes.ChatSnapshot {
	return nanotypes.ChatSnapshot{
		SessionID:    s.id,
		State:        s.state,
		Command:      s.command.Name,
		Messages:     append([]nanotypes.ChatMessage(nil), s.messages...),
		IsSubmitting: s.state == nanotypes.ChatSubmitting,
		IsStreaming:  s.state == nanotypes.ChatStreaming,
	}
}

// changedLocked queues a snapshot of the current state. Queue order is
// mutation order.
func (s *Session) changedLocked() {
	s.pending = append(s.pending, s.snapshotLocked())
}

// deliver hands queued snapshots to the observers in order. One goroutine
// delivers at a time; a caller that finds delivery in progress leaves its
// snapshot to that goroutine.
func (s *Session) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		snap := s.pending[0]
		s.pending = s.pending[1:]
		observers := make([]func(nanotypes.ChatSnapshot), 0, len(s.observers))
		for _, fn := range s.observers {
			observers = append(observers, fn)
		}
		s.mu.Unlock()

		for _, fn := range observers {
			fn(snap)
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.mu.Unlock()
}
