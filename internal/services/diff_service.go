package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies a span of a text diff.
type ChangeKind int

// Change kinds.
const (
	ChangeEqual ChangeKind = iota
	ChangeInsert
	ChangeDelete
)

// Change is one span of a diff.
type Change struct {
	Kind ChangeKind
	Text string
}

// DiffStats counts the runes a rewrite removed and added.
type DiffStats struct {
	Inserted int
	Deleted  int
}

// DiffService shows what a rewriter command changed.
type DiffService struct {
	initialized bool
	dmp         *diffmatchpatch.DiffMatchPatch
	insertStyle lipgloss.Style
	deleteStyle lipgloss.Style
}

// NewDiffService creates a DiffService.
func NewDiffService() *DiffService {
	return &DiffService{}
}

// Name returns "diff".
func (d *DiffService) Name() string {
	return "diff"
}

// Initialize prepares the differ and styles.
func (d *DiffService) Initialize() error {
	d.dmp = diffmatchpatch.New()
	d.insertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Underline(true)
	d.deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true)
	d.initialized = true
	return nil
}

// Diff computes a semantic, human-readable diff from before to after.
func (d *DiffService) Diff(before, after string) ([]Change, error) {
	if !d.initialized {
		return nil, fmt.Errorf("diff service not initialized")
	}

	diffs := d.dmp.DiffMain(before, after, false)
	diffs = d.dmp.DiffCleanupSemantic(diffs)

	changes := make([]Change, 0, len(diffs))
	for _, diff := range diffs {
		var kind ChangeKind
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			kind = ChangeInsert
		case diffmatchpatch.DiffDelete:
			kind = ChangeDelete
		default:
			kind = ChangeEqual
		}
		changes = append(changes, Change{Kind: kind, Text: diff.Text})
	}
	return changes, nil
}

// Stats summarizes a diff.
func (d *DiffService) Stats(changes []Change) DiffStats {
	var s DiffStats
	for _, c := range changes {
		switch c.Kind {
		case ChangeInsert:
			s.Inserted += utf8.RuneCountInString(c.Text)
		case ChangeDelete:
			s.Deleted += utf8.RuneCountInString(c.Text)
		}
	}
	return s
}

// Render returns after with deletions struck through and insertions underlined.
// Plain mode marks them as [-text-] and {+text+} instead.
func (d *DiffService) Render(before, after string, plain bool) (string, error) {
	changes, err := d.Diff(before, after)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range changes {
		switch {
		case c.Kind == ChangeEqual:
			sb.WriteString(c.Text)
		case plain && c.Kind == ChangeInsert:
			sb.WriteString("{+" + c.Text + "+}")
		case plain:
			sb.WriteString("[-" + c.Text + "-]")
		case c.Kind == ChangeInsert:
			sb.WriteString(d.insertStyle.Render(c.Text))
		default:
			sb.WriteString(d.deleteStyle.Render(c.Text))
		}
	}
	return sb.String(), nil
}
