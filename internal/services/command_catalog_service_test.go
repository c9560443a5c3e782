package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tswnano/internal/version"
	"tswnano/pkg/nanotypes"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func textGen(o nanotypes.TextGenerationOptions) nanotypes.Command {
	return nanotypes.Command{Name: "Pirate", Capability: nanotypes.CapabilityTextGeneration, Options: o}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCommandCatalogService_BuiltIns(t *testing.T) {
	service := NewCommandCatalogService("")
	assert.Equal(t, "command_catalog", service.Name())
	require.NoError(t, service.Initialize())

	entries, err := service.List()
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		assert.True(t, e.BuiltIn)
		names = append(names, e.Command.Name)
	}
	assert.Equal(t, []string{"Default", "Summary", "KeyPoints", "Polish", "Formalize", "Continue", "Translate"}, names)

	def, err := service.Get("default")
	require.NoError(t, err)
	assert.True(t, def.IsDefault())
	assert.Equal(t, nanotypes.TextGenerationOptions{}, def.Options)

	summary, err := service.Get("Summary")
	require.NoError(t, err)
	assert.Equal(t, nanotypes.SummarizationOptions{
		Type:   nanotypes.SummaryTypeTLDR,
		Format: nanotypes.FormatPlainText,
		Length: nanotypes.LengthShort,
	}, summary.Options)

	rewriters, err := service.ByCapability(nanotypes.CapabilityRewriting)
	require.NoError(t, err)
	assert.Len(t, rewriters, 2)

	_, err = service.Get("missing")
	assert.Error(t, err)
}

func TestCommandCatalogService_UserFile(t *testing.T) {
	path := writeCatalog(t, `commands:
  - name: Pirate
    capability: languageModel
    options:
      systemPrompt: Answer like a pirate.
      topK: 3
      temperature: 0.8
  - name: Casual
    capability: rewriter
    options:
      tone: more-casual
`)
	service := NewCommandCatalogService(path)
	require.NoError(t, service.Initialize())

	pirate, err := service.Get("PIRATE")
	require.NoError(t, err)
	opts, ok := pirate.TextGeneration()
	require.True(t, ok)
	assert.Equal(t, "Answer like a pirate.", opts.SystemPrompt)
	assert.Equal(t, 3, *opts.TopK)
	assert.InDelta(t, 0.8, *opts.Temperature, 1e-9)

	entries, err := service.List()
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.False(t, last.BuiltIn)
	assert.Equal(t, "Casual", last.Command.Name)
}

func TestCommandCatalogService_UserFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name: "duplicate of built-in ignoring case",
			content: `commands:
  - name: summary
    capability: summarizer
`,
			errPart: "name already used",
		},
		{
			name: "invalid command",
			content: `commands:
  - name: ab
    capability: writer
`,
			errPart: "at least 3 characters",
		},
		{
			name: "unknown capability",
			content: `commands:
  - name: Painter
    capability: painter
`,
			errPart: "unknown capability",
		},
		{
			name:    "version constraint not met",
			content: "requires: \">= 99.0\"\ncommands: []\n",
			errPart: "catalog requires tswnano",
		},
		{
			name: "too many commands",
			content: "commands:\n" +
				"  - {name: One1, capability: writer}\n  - {name: Two2, capability: writer}\n  - {name: Three, capability: writer}\n" +
				"  - {name: Four4, capability: writer}\n  - {name: Five5, capability: writer}\n  - {name: Six66, capability: writer}\n",
			errPart: "at most 5 are allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewCommandCatalogService(writeCatalog(t, tt.content))
			err := service.Initialize()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}

	err := NewCommandCatalogService(filepath.Join(t.TempDir(), "absent.yaml")).Initialize()
	assert.Error(t, err)
}

func TestCommandCatalogService_NotInitialized(t *testing.T) {
	service := NewCommandCatalogService("")
	_, err := service.Get("Default")
	assert.Error(t, err)
	_, err = service.List()
	assert.Error(t, err)
	_, err = service.ByCapability(nanotypes.CapabilityWriting)
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     nanotypes.Command
		errPart string
	}{
		{name: "valid text generation", cmd: textGen(nanotypes.TextGenerationOptions{TopK: intPtr(3), Temperature: floatPtr(0.7)})},
		{name: "valid without parameters", cmd: textGen(nanotypes.TextGenerationOptions{SystemPrompt: "x"})},
		{name: "blank name", cmd: nanotypes.Command{Name: "  ", Capability: nanotypes.CapabilityWriting}, errPart: "name is required"},
		{name: "short name", cmd: nanotypes.Command{Name: "ab", Capability: nanotypes.CapabilityWriting}, errPart: "at least 3"},
		{name: "long name", cmd: nanotypes.Command{Name: strings.Repeat("a", 51), Capability: nanotypes.CapabilityWriting}, errPart: "at most 50"},
		{name: "name with space", cmd: nanotypes.Command{Name: "my cmd", Capability: nanotypes.CapabilityWriting}, errPart: "must not contain spaces"},
		{name: "unknown capability", cmd: nanotypes.Command{Name: "Painter", Capability: "painter"}, errPart: "unknown capability"},
		{
			name:    "mismatched options",
			cmd:     nanotypes.Command{Name: "Mixed", Capability: nanotypes.CapabilityWriting, Options: nanotypes.RewritingOptions{}},
			errPart: "options for rewriter",
		},
		{name: "topK below range", cmd: textGen(nanotypes.TextGenerationOptions{TopK: intPtr(0), Temperature: floatPtr(1)}), errPart: "between 1 and 8"},
		{name: "topK above range", cmd: textGen(nanotypes.TextGenerationOptions{TopK: intPtr(9), Temperature: floatPtr(1)}), errPart: "between 1 and 8"},
		{name: "temperature too low", cmd: textGen(nanotypes.TextGenerationOptions{TopK: intPtr(1), Temperature: floatPtr(0.05)}), errPart: "greater than or equal to 0.1"},
		{name: "topK alone", cmd: textGen(nanotypes.TextGenerationOptions{TopK: intPtr(2)}), errPart: "set together"},
		{name: "temperature alone", cmd: textGen(nanotypes.TextGenerationOptions{Temperature: floatPtr(0.5)}), errPart: "set together"},
		{
			name:    "bad initial prompt role",
			cmd:     textGen(nanotypes.TextGenerationOptions{InitialPrompts: []nanotypes.PromptMessage{{Role: "tool", Content: "x"}}}),
			errPart: "unknown role",
		},
		{
			name:    "bad summary type",
			cmd:     nanotypes.Command{Name: "Sum", Capability: nanotypes.CapabilitySummarization, Options: nanotypes.SummarizationOptions{Type: "essay"}},
			errPart: "type must be one of",
		},
		{
			name:    "writer rejects rewriter tone",
			cmd:     nanotypes.Command{Name: "Write", Capability: nanotypes.CapabilityWriting, Options: nanotypes.WritingOptions{Tone: nanotypes.ToneMoreFormal}},
			errPart: "tone must be one of",
		},
		{
			name:    "rewriter rejects writer length",
			cmd:     nanotypes.Command{Name: "Rewrite", Capability: nanotypes.CapabilityRewriting, Options: nanotypes.RewritingOptions{Length: nanotypes.LengthLong}},
			errPart: "length must be one of",
		},
		{
			name: "rewriter accepts its values",
			cmd: nanotypes.Command{Name: "Rewrite", Capability: nanotypes.CapabilityRewriting, Options: nanotypes.RewritingOptions{
				Tone: nanotypes.ToneMoreCasual, Format: nanotypes.FormatMarkdown, Length: nanotypes.LengthShorter,
			}},
		},
		{
			name:    "translator needs a target",
			cmd:     nanotypes.Command{Name: "Trans", Capability: nanotypes.CapabilityTranslation, Options: nanotypes.TranslationOptions{}},
			errPart: "target language is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.cmd)
			if tt.errPart == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestValidateCatalog_ReportsEveryProblem(t *testing.T) {
	err := ValidateCatalog([]nanotypes.Command{
		{Name: "Alpha", Capability: nanotypes.CapabilityWriting},
		{Name: "ALPHA", Capability: nanotypes.CapabilityWriting},
		{Name: "x", Capability: nanotypes.CapabilityWriting},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ALPHA": name already used by "Alpha"`)
	assert.Contains(t, err.Error(), "at least 3")
}

func TestParseCatalog_VersionConstraint(t *testing.T) {
	current := version.GetVersion()

	cmds, err := ParseCatalog([]byte("requires: \"<= " + current + "\"\ncommands:\n  - {name: Default, capability: languageModel}\n"))
	require.NoError(t, err)
	assert.Len(t, cmds, 1)

	_, err = ParseCatalog([]byte("requires: \"nonsense\"\ncommands: []\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("commands: [unterminated\n"))
	assert.Error(t, err)
}
