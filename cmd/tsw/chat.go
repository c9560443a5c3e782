package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"tswnano/internal/chat"
	"tswnano/internal/logger"
	"tswnano/internal/output"
	"tswnano/internal/stringprocessing"
	"tswnano/internal/summary"
	"tswnano/pkg/nanotypes"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat about a page of text",
	Long: `Start an interactive chat grounded in the text of a page. Long pages are
summarized once and the summary is reused for every turn.

Press Ctrl-C while an answer is streaming to stop it; input is not read
until the answer ends. Type /help for the chat commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("page", "", "File with the page text (- for standard input)")
	chatCmd.Flags().String("key", "", "Identifier of the page for summary caching [default: page path]")
	chatCmd.Flags().String("command", "", "languageModel command to use as the system prompt [default: Default]")
	_ = chatCmd.MarkFlagRequired("page")
}

const chatHelp = `Chat commands:
  /edit <id> <text>   replace one of your messages and answer again
  /resubmit <id>      answer one of your messages again, dropping what follows
  /retry              regenerate the last answer
  /copy               copy the last answer to the clipboard
  /history            show the conversation with message ids
  /prompt [command]   show or change the system command
  /quit               leave the chat
Start a message with // to send text beginning with /.
Press Ctrl-C to stop an answer while it streams.`

type chatActionKind int

const (
	actionSubmit chatActionKind = iota
	actionEdit
	actionResubmit
	actionRetry
	actionCopy
	actionHistory
	actionPrompt
	actionHelp
	actionQuit
)

// chatAction is one parsed REPL line.
type chatAction struct {
	kind chatActionKind
	id   int
	text string
}

// parseChatLine turns a REPL line into an action. Lines that do not start
// with "/" are messages.
func parseChatLine(line string) (chatAction, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "//") {
		return chatAction{kind: actionSubmit, text: line[1:]}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return chatAction{kind: actionSubmit, text: line}, nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(name) {
	case "edit":
		idText, text, _ := strings.Cut(rest, " ")
		id, err := parseMessageID(idText)
		if err != nil {
			return chatAction{}, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return chatAction{}, fmt.Errorf("usage: /edit <id> <text>")
		}
		return chatAction{kind: actionEdit, id: id, text: text}, nil
	case "resubmit":
		id, err := parseMessageID(rest)
		if err != nil {
			return chatAction{}, err
		}
		return chatAction{kind: actionResubmit, id: id}, nil
	case "retry":
		return chatAction{kind: actionRetry}, nil
	case "copy":
		return chatAction{kind: actionCopy}, nil
	case "history":
		return chatAction{kind: actionHistory}, nil
	case "prompt":
		return chatAction{kind: actionPrompt, text: rest}, nil
	case "help", "?":
		return chatAction{kind: actionHelp}, nil
	case "quit", "exit", "q":
		return chatAction{kind: actionQuit}, nil
	default:
		return chatAction{}, fmt.Errorf("unknown chat command /%s (try /help)", name)
	}
}

func parseMessageID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("message id must be a positive number, got %q", s)
	}
	return id, nil
}

// streamPrinter writes the growing assistant message as session snapshots arrive.
type streamPrinter struct {
	mu      sync.Mutex
	out     *output.Printer
	id      int
	printed string
}

func (p *streamPrinter) observe(snap nanotypes.ChatSnapshot) {
	msg, ok := snap.LastMessage()
	if !ok || msg.Role != nanotypes.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if msg.ID != p.id {
		p.id = msg.ID
		p.printed = ""
		p.out.Emit(output.SemanticAssistant, "assistant>")
		p.out.Print(" ")
	}
	if msg.Content == p.printed {
		return
	}
	p.out.Print(streamDelta(p.printed, msg.Content))
	p.printed = msg.Content
}

// loadPage reads the page text from path, or from in when path is "-".
func loadPage(path string, in io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	text := stringprocessing.CleanPageText(string(data))
	if text == "" {
		return "", fmt.Errorf("page %s has no text", path)
	}
	return text, nil
}

// pageKey identifies a page for the summary cache.
func pageKey(key, path string) string {
	if key != "" {
		return key
	}
	if path == "-" {
		return "stdin"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// chatREPL drives one session from the terminal.
type chatREPL struct {
	app     *app
	session *chat.Session
	out     *output.Printer
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := InitializeServices(cmd, testMode)
	if err != nil {
		return err
	}

	pagePath, _ := cmd.Flags().GetString("page")
	key, _ := cmd.Flags().GetString("key")
	commandName, _ := cmd.Flags().GetString("command")

	pageText, err := loadPage(pagePath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	inv, err := a.newInvoker()
	if err != nil {
		return err
	}
	summarizer := summary.NewSummarizer(inv, a.settings.ChunkSize, a.settings.ChunkOverlap)
	preparer := summary.NewContextPreparer(summarizer, summary.NewCache(), a.settings.LongContextThreshold)

	session := chat.NewSession(inv, preparer, chat.Config{
		PageKey:  pageKey(key, pagePath),
		PageText: pageText,
		TestMode: testMode,
	})
	if commandName != "" {
		command, err := a.catalog.Get(commandName)
		if err != nil {
			return err
		}
		if err := session.SetSystemCommand(command); err != nil {
			return err
		}
	}

	out := newPrinter(cmd)
	printer := &streamPrinter{out: out}
	unsubscribe := session.OnChange(printer.observe)
	defer unsubscribe()

	logger.Debug("Chat session started", "session", session.ID(), "page", pageKey(key, pagePath))
	out.Printf("Chatting about %q\n", stringprocessing.Preview(pageText, 60))
	out.Info("Type /help for commands, /quit to leave.")

	repl := &chatREPL{app: a, session: session, out: out}
	return repl.loop(cmd.Context())
}

func (r *chatREPL) loop(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.out.Println("")
				return nil
			}
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		action, err := parseChatLine(input)
		if err != nil {
			r.out.Warning(err.Error())
			continue
		}
		if action.kind == actionQuit {
			return nil
		}
		if err := r.handle(ctx, action); err != nil {
			r.out.Error(err.Error())
		}
	}
}

func (r *chatREPL) handle(ctx context.Context, action chatAction) error {
	switch action.kind {
	case actionSubmit:
		return r.runTurn(ctx, func(ctx context.Context) error { return r.session.Submit(ctx, action.text) })
	case actionEdit:
		return r.runTurn(ctx, func(ctx context.Context) error { return r.session.EditMessage(ctx, action.id, action.text) })
	case actionResubmit:
		return r.runTurn(ctx, func(ctx context.Context) error { return r.session.ResubmitFrom(ctx, action.id) })
	case actionRetry:
		return r.runTurn(ctx, r.session.RegenerateLast)
	case actionCopy:
		return r.copyLastAnswer()
	case actionHistory:
		printHistory(r.out, r.session.Snapshot())
		return nil
	case actionPrompt:
		if action.text == "" {
			r.out.Printf("system command: %s\n", r.out.Style(output.SemanticCommand, r.session.Snapshot().Command))
			return nil
		}
		command, err := r.app.catalog.Get(action.text)
		if err != nil {
			return err
		}
		return r.session.SetSystemCommand(command)
	case actionHelp:
		r.out.Println(chatHelp)
		return nil
	}
	return nil
}

// runTurn runs one blocking session call. Ctrl-C cancels the streaming answer;
// an interrupt that arrives before streaming starts is reported and waited out.
func (r *chatREPL) runTurn(ctx context.Context, fn func(context.Context) error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-sigCh:
				if err := r.session.Cancel(); err != nil {
					r.out.Println("")
					r.out.Warning("not streaming yet, press Ctrl-C again to stop")
					continue
				}
				return
			case <-done:
				return
			}
		}
	}()

	err := fn(ctx)
	close(done)
	wg.Wait()
	r.out.Println("")
	return err
}

func (r *chatREPL) copyLastAnswer() error {
	snap := r.session.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		msg := snap.Messages[i]
		if msg.Role != nanotypes.RoleAssistant {
			continue
		}
		if err := r.app.clipboard.Copy(msg.Content); err != nil {
			return err
		}
		r.out.Success("copied")
		return nil
	}
	return fmt.Errorf("no answer to copy")
}

func printHistory(p *output.Printer, snap nanotypes.ChatSnapshot) {
	if len(snap.Messages) == 0 {
		p.Println("no messages yet")
		return
	}
	for _, msg := range snap.Messages {
		label := p.Style(output.SemanticUser, string(msg.Role))
		if msg.Role == nanotypes.RoleAssistant {
			label = p.Style(output.SemanticAssistant, string(msg.Role))
		}
		suffix := ""
		if !msg.IsComplete {
			suffix = " …"
		}
		p.Printf("[%d] %s: %s%s\n", msg.ID, label, stringprocessing.Preview(msg.Content, 100), suffix)
	}
}
