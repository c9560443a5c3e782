package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"tswnano/internal/logger"
)

// DefaultWordWrap is the rendering width used until SetWordWrap is called.
const DefaultWordWrap = 80

// MarkdownService renders model output for the terminal with Glamour.
type MarkdownService struct {
	initialized bool
	renderer    *glamour.TermRenderer
	plain       bool
}

// NewMarkdownService creates a MarkdownService.
func NewMarkdownService() *MarkdownService {
	return &MarkdownService{}
}

// Name returns "markdown".
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize creates the renderer. Terminals without colour support get
// the notty style.
func (m *MarkdownService) Initialize() error {
	m.plain = lipgloss.ColorProfile() == termenv.Ascii
	renderer, err := m.newRenderer(DefaultWordWrap)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.initialized = true
	logger.Debug("MarkdownService initialized", "plain", m.plain)
	return nil
}

func (m *MarkdownService) newRenderer(width int) (*glamour.TermRenderer, error) {
	style := glamour.WithAutoStyle()
	if m.plain {
		style = glamour.WithStandardStyle("notty")
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer, nil
}

// Render renders markdown to terminal output. Blank input renders as "".
func (m *MarkdownService) Render(markdown string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}

// RenderWithStyle renders with a named Glamour style ("dark", "light",
// "notty", "ascii"), falling back to the default renderer for unknown names.
func (m *MarkdownService) RenderWithStyle(markdown string, style string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(DefaultWordWrap),
	)
	if err != nil {
		logger.Debug("Unknown markdown style, using default", "style", style, "error", err)
		return m.Render(markdown)
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown with style '%s': %w", style, err)
	}
	return rendered, nil
}

// SetWordWrap changes the rendering width.
func (m *MarkdownService) SetWordWrap(width int) error {
	if !m.initialized {
		return fmt.Errorf("markdown service not initialized")
	}
	if width <= 0 {
		return fmt.Errorf("word wrap width must be positive, got %d", width)
	}

	renderer, err := m.newRenderer(width)
	if err != nil {
		return err
	}
	m.renderer = renderer
	return nil
}
