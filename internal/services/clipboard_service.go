package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"tswnano/internal/logger"
)

// ClipboardService copies model output to the system clipboard. On platforms
// without clipboard support Copy returns an error and the CLI prints the text
// instead.
type ClipboardService struct {
	initialized bool
	available   bool
	initErr     error
	write       func(text string) error
}

// NewClipboardService creates a ClipboardService using the platform backend.
func NewClipboardService() *ClipboardService {
	return &ClipboardService{write: writeToClipboard}
}

// Name returns "clipboard".
func (c *ClipboardService) Name() string {
	return "clipboard"
}

// Initialize probes the platform clipboard. A missing clipboard is not an
// initialization failure.
func (c *ClipboardService) Initialize() error {
	c.available = clipboardAvailable
	if c.available {
		if err := initClipboard(); err != nil {
			c.available = false
			c.initErr = err
			logger.Debug("Clipboard unavailable", "error", err)
		}
	}
	c.initialized = true
	return nil
}

// Available reports whether Copy can succeed.
func (c *ClipboardService) Available() bool {
	return c.initialized && c.available
}

// Copy writes text with ANSI escapes removed.
func (c *ClipboardService) Copy(text string) error {
	if !c.initialized {
		return fmt.Errorf("clipboard service not initialized")
	}
	if !c.available {
		if c.initErr != nil {
			return fmt.Errorf("clipboard not available: %w", c.initErr)
		}
		return fmt.Errorf("clipboard not available on this platform")
	}

	plain := strings.TrimSpace(ansi.Strip(text))
	if plain == "" {
		return fmt.Errorf("nothing to copy")
	}
	return c.write(plain)
}
