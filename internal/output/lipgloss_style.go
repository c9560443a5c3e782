package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// LipglossStyleProvider styles output with lipgloss colours. It reports itself
// unavailable on terminals without colour support.
type LipglossStyleProvider struct {
	styles map[SemanticType]lipgloss.Style
}

// NewLipglossStyleProvider creates the default colour scheme.
func NewLipglossStyleProvider() *LipglossStyleProvider {
	return &LipglossStyleProvider{
		styles: map[SemanticType]lipgloss.Style{
			SemanticInfo:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
			SemanticSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
			SemanticWarning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			SemanticError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			SemanticUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
			SemanticAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
			SemanticCommand:   lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
			SemanticMuted:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// GetStyle returns the style for semantic; unknown types render unstyled.
func (l *LipglossStyleProvider) GetStyle(semantic SemanticType) TextStyle {
	if style, ok := l.styles[semantic]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// IsAvailable reports whether the terminal renders colour.
func (l *LipglossStyleProvider) IsAvailable() bool {
	return lipgloss.ColorProfile() != termenv.Ascii
}
