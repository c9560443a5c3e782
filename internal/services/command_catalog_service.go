package services

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"tswnano/internal/data/embedded"
	"tswnano/internal/logger"
	"tswnano/internal/version"
	"tswnano/pkg/nanotypes"
)

// Command name and parameter bounds enforced by ValidateCommand.
const (
	MinCommandNameLength = 3
	MaxCommandNameLength = 50
	MinTopK              = 1
	MaxTopK              = 8
	MinTemperature       = 0.1
	// MaxUserCommands caps the commands a user catalog may define.
	MaxUserCommands = 5
)

// CatalogFile is the on-disk catalog format.
type CatalogFile struct {
	// Requires is a semantic version constraint the running binary must meet.
	Requires string              `yaml:"requires,omitempty"`
	Commands []nanotypes.Command `yaml:"commands"`
}

// CatalogEntry is a command together with where it came from.
type CatalogEntry struct {
	Command nanotypes.Command
	BuiltIn bool
}

// CommandCatalogService holds the built-in commands and the user's own.
type CommandCatalogService struct {
	initialized bool
	userFile    string
	entries     []CatalogEntry
}

// NewCommandCatalogService creates a catalog that also loads userFile when set.
func NewCommandCatalogService(userFile string) *CommandCatalogService {
	return &CommandCatalogService{userFile: userFile}
}

// Name returns "command_catalog".
func (s *CommandCatalogService) Name() string {
	return "command_catalog"
}

// Initialize loads and validates both catalogs.
func (s *CommandCatalogService) Initialize() error {
	if s.initialized {
		return nil
	}
	logger.ServiceOperation("command_catalog", "initialize", "starting")

	builtins, err := ParseCatalog(embedded.CommandCatalogData)
	if err != nil {
		return fmt.Errorf("failed to load built-in commands: %w", err)
	}

	var user []nanotypes.Command
	if s.userFile != "" {
		user, err = LoadCatalogFile(s.userFile)
		if err != nil {
			return err
		}
		if len(user) > MaxUserCommands {
			return fmt.Errorf("%s defines %d commands, at most %d are allowed", s.userFile, len(user), MaxUserCommands)
		}
	}

	entries := make([]CatalogEntry, 0, len(builtins)+len(user))
	for _, cmd := range builtins {
		entries = append(entries, CatalogEntry{Command: cmd, BuiltIn: true})
	}
	for _, cmd := range user {
		entries = append(entries, CatalogEntry{Command: cmd})
	}

	all := make([]nanotypes.Command, 0, len(entries))
	for _, e := range entries {
		all = append(all, e.Command)
	}
	if err := ValidateCatalog(all); err != nil {
		return fmt.Errorf("command catalog validation failed: %w", err)
	}

	s.entries = entries
	s.initialized = true
	logger.ServiceOperation("command_catalog", "initialize", "completed", "builtin", len(builtins), "user", len(user))
	return nil
}

// Get returns the command with the given name, ignoring case.
func (s *CommandCatalogService) Get(name string) (nanotypes.Command, error) {
	if !s.initialized {
		return nanotypes.Command{}, fmt.Errorf("command catalog service not initialized")
	}
	for _, e := range s.entries {
		if strings.EqualFold(e.Command.Name, name) {
			return e.Command, nil
		}
	}
	return nanotypes.Command{}, fmt.Errorf("command %q not found", name)
}

// List returns every command, built-ins first.
func (s *CommandCatalogService) List() ([]CatalogEntry, error) {
	if !s.initialized {
		return nil, fmt.Errorf("command catalog service not initialized")
	}
	return slices.Clone(s.entries), nil
}

// ByCapability returns the commands using capability c.
func (s *CommandCatalogService) ByCapability(c nanotypes.Capability) ([]nanotypes.Command, error) {
	if !s.initialized {
		return nil, fmt.Errorf("command catalog service not initialized")
	}
	var out []nanotypes.Command
	for _, e := range s.entries {
		if e.Command.Capability == c {
			out = append(out, e.Command)
		}
	}
	return out, nil
}

// LoadCatalogFile reads and parses a catalog file.
func LoadCatalogFile(path string) ([]nanotypes.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command catalog %s: %w", path, err)
	}
	cmds, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// ParseCatalog decodes catalog YAML and checks its version constraint.
// It does not validate the commands.
func ParseCatalog(data []byte) ([]nanotypes.Command, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse command catalog: %w", err)
	}

	ok, err := version.Satisfies(file.Requires)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog requires tswnano %s, running %s", file.Requires, version.GetVersion())
	}
	return file.Commands, nil
}

// ValidateCatalog validates every command and checks that names are unique
// regardless of case. All problems are reported together.
func ValidateCatalog(cmds []nanotypes.Command) error {
	var errs []error
	seen := make(map[string]string, len(cmds))
	for _, cmd := range cmds {
		if err := ValidateCommand(cmd); err != nil {
			errs = append(errs, err)
		}
		key := strings.ToLower(cmd.Name)
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("command %q: name already used by %q", cmd.Name, prev))
			continue
		}
		seen[key] = cmd.Name
	}
	return errors.Join(errs...)
}

// ValidateCommand checks a command before it is saved. The invoker never
// calls it; a command that skipped validation still runs.
func ValidateCommand(cmd nanotypes.Command) error {
	if err := validateCommandName(cmd.Name); err != nil {
		return fmt.Errorf("command %q: %w", cmd.Name, err)
	}
	if !cmd.Capability.IsValid() {
		return fmt.Errorf("command %q: unknown capability %q", cmd.Name, cmd.Capability)
	}
	if cmd.Options != nil && cmd.Options.Capability() != cmd.Capability {
		return fmt.Errorf("command %q: options for %s given to a %s command", cmd.Name, cmd.Options.Capability(), cmd.Capability)
	}

	var err error
	switch o := cmd.Options.(type) {
	case nanotypes.TextGenerationOptions:
		err = validateTextGeneration(o)
	case nanotypes.SummarizationOptions:
		err = errors.Join(
			oneOf("type", o.Type, nanotypes.SummaryTypeTLDR, nanotypes.SummaryTypeKeyPoints, nanotypes.SummaryTypeTeaser, nanotypes.SummaryTypeHeadline),
			oneOf("format", o.Format, nanotypes.FormatPlainText, nanotypes.FormatMarkdown),
			oneOf("length", o.Length, nanotypes.LengthShort, nanotypes.LengthMedium, nanotypes.LengthLong),
		)
	case nanotypes.WritingOptions:
		err = errors.Join(
			oneOf("tone", o.Tone, nanotypes.ToneFormal, nanotypes.ToneNeutral, nanotypes.ToneCasual),
			oneOf("format", o.Format, nanotypes.FormatPlainText, nanotypes.FormatMarkdown),
			oneOf("length", o.Length, nanotypes.LengthShort, nanotypes.LengthMedium, nanotypes.LengthLong),
		)
	case nanotypes.RewritingOptions:
		err = errors.Join(
			oneOf("tone", o.Tone, nanotypes.ToneAsIs, nanotypes.ToneMoreFormal, nanotypes.ToneMoreCasual),
			oneOf("format", o.Format, nanotypes.FormatAsIs, nanotypes.FormatPlainText, nanotypes.FormatMarkdown),
			oneOf("length", o.Length, nanotypes.LengthAsIs, nanotypes.LengthShorter, nanotypes.LengthLonger),
		)
	case nanotypes.TranslationOptions:
		if strings.TrimSpace(o.TargetLanguage) == "" {
			err = errors.New("target language is required")
		}
	}
	if err != nil {
		return fmt.Errorf("command %q: %w", cmd.Name, err)
	}
	return nil
}

func validateCommandName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	n := utf8.RuneCountInString(name)
	if n < MinCommandNameLength {
		return fmt.Errorf("name must be at least %d characters long", MinCommandNameLength)
	}
	if n > MaxCommandNameLength {
		return fmt.Errorf("name must be at most %d characters long", MaxCommandNameLength)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return errors.New("name must not contain spaces")
	}
	return nil
}

func validateTextGeneration(o nanotypes.TextGenerationOptions) error {
	if (o.TopK == nil) != (o.Temperature == nil) {
		return errors.New("topK and temperature must be set together")
	}
	if o.TopK != nil && (*o.TopK < MinTopK || *o.TopK > MaxTopK) {
		return fmt.Errorf("topK must be between %d and %d", MinTopK, MaxTopK)
	}
	if o.Temperature != nil && *o.Temperature < MinTemperature {
		return fmt.Errorf("temperature must be greater than or equal to %.1f", MinTemperature)
	}
	for i, m := range o.InitialPrompts {
		if m.Role != nanotypes.RoleUser && m.Role != nanotypes.RoleAssistant && m.Role != nanotypes.RoleSystem {
			return fmt.Errorf("initial prompt %d has unknown role %q", i+1, m.Role)
		}
	}
	return nil
}

// oneOf accepts an empty value, which selects the capability default.
func oneOf(field, value string, allowed ...string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}
