// Package output provides the console printer used by the tsw CLI.
// Styling is optional and injected through a StyleProvider.
package output

// StyleProvider supplies styles by semantic type.
type StyleProvider interface {
	// GetStyle returns a TextStyle for the given semantic type.
	GetStyle(semantic SemanticType) TextStyle

	// IsAvailable reports whether the provider can style output right now.
	IsAvailable() bool
}

// TextStyle renders text. lipgloss.Style satisfies it.
type TextStyle interface {
	Render(strs ...string) string
}

// Mode defines different output modes the printer can operate in.
type Mode int

const (
	// ModeAuto styles output when a provider is available.
	ModeAuto Mode = iota

	// ModePlain forces plain text with semantic prefixes.
	ModePlain

	// ModeJSON writes one JSON object per line for scripting.
	ModeJSON
)

// SemanticType defines the semantic meaning of output for consistent styling.
type SemanticType string

const (
	// SemanticPlain represents plain text without any semantic meaning.
	SemanticPlain SemanticType = "plain"
	// SemanticInfo represents informational text.
	SemanticInfo SemanticType = "info"
	// SemanticSuccess represents success or completion text.
	SemanticSuccess SemanticType = "success"
	// SemanticWarning represents warning text.
	SemanticWarning SemanticType = "warning"
	// SemanticError represents error text.
	SemanticError SemanticType = "error"

	// SemanticUser labels user chat messages.
	SemanticUser SemanticType = "user"
	// SemanticAssistant labels assistant chat messages.
	SemanticAssistant SemanticType = "assistant"
	// SemanticCommand represents catalog command names.
	SemanticCommand SemanticType = "command"
	// SemanticMuted represents secondary detail.
	SemanticMuted SemanticType = "muted"
)
