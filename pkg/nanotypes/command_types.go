package nanotypes

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultCommandName is the built-in chat command that grounds answers in the page.
const DefaultCommandName = "Default"

// Options is the capability-specific configuration of a command.
// Exactly one concrete type exists per capability.
type Options interface {
	Capability() Capability
	isOptions()
}

// PromptMessage is a seed message passed to a text generation session.
type PromptMessage struct {
	Role    Role   `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// TextGenerationOptions configures a languageModel command.
// TopK and Temperature are expected to be set together; the invoker does not enforce it.
type TextGenerationOptions struct {
	SystemPrompt   string          `yaml:"systemPrompt,omitempty" json:"systemPrompt,omitempty"`
	InitialPrompts []PromptMessage `yaml:"initialPrompts,omitempty" json:"initialPrompts,omitempty"`
	TopK           *int            `yaml:"topK,omitempty" json:"topK,omitempty"`
	Temperature    *float64        `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// SummarizationOptions configures a summarizer command.
type SummarizationOptions struct {
	SharedContext string `yaml:"sharedContext,omitempty" json:"sharedContext,omitempty"`
	Type          string `yaml:"type,omitempty" json:"type,omitempty"`
	Format        string `yaml:"format,omitempty" json:"format,omitempty"`
	Length        string `yaml:"length,omitempty" json:"length,omitempty"`
}

// WritingOptions configures a writer command.
type WritingOptions struct {
	SharedContext string `yaml:"sharedContext,omitempty" json:"sharedContext,omitempty"`
	Tone          string `yaml:"tone,omitempty" json:"tone,omitempty"`
	Format        string `yaml:"format,omitempty" json:"format,omitempty"`
	Length        string `yaml:"length,omitempty" json:"length,omitempty"`
}

// RewritingOptions configures a rewriter command.
type RewritingOptions struct {
	SharedContext string `yaml:"sharedContext,omitempty" json:"sharedContext,omitempty"`
	Tone          string `yaml:"tone,omitempty" json:"tone,omitempty"`
	Format        string `yaml:"format,omitempty" json:"format,omitempty"`
	Length        string `yaml:"length,omitempty" json:"length,omitempty"`
}

// TranslationOptions configures a translator command.
type TranslationOptions struct {
	SourceLanguage string `yaml:"sourceLanguage,omitempty" json:"sourceLanguage,omitempty"`
	TargetLanguage string `yaml:"targetLanguage,omitempty" json:"targetLanguage,omitempty"`
}

// Capability returns CapabilityTextGeneration.
func (TextGenerationOptions) Capability() Capability { return CapabilityTextGeneration }

// Capability returns CapabilitySummarization.
func (SummarizationOptions) Capability() Capability { return CapabilitySummarization }

// Capability returns CapabilityWriting.
func (WritingOptions) Capability() Capability { return CapabilityWriting }

// Capability returns CapabilityRewriting.
func (RewritingOptions) Capability() Capability { return CapabilityRewriting }

// Capability returns CapabilityTranslation.
func (TranslationOptions) Capability() Capability { return CapabilityTranslation }

func (TextGenerationOptions) isOptions() {}
func (SummarizationOptions) isOptions()  {}
func (WritingOptions) isOptions()        {}
func (RewritingOptions) isOptions()      {}
func (TranslationOptions) isOptions()    {}

// Option values accepted in command options.
const (
	SummaryTypeTLDR      = "tl;dr"
	SummaryTypeKeyPoints = "key-points"
	SummaryTypeTeaser    = "teaser"
	SummaryTypeHeadline  = "headline"

	FormatPlainText = "plain-text"
	FormatMarkdown  = "markdown"
	FormatAsIs      = "as-is"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"

	ToneFormal      = "formal"
	ToneNeutral     = "neutral"
	ToneCasual      = "casual"
	ToneAsIs        = "as-is"
	ToneMoreFormal  = "more-formal"
	ToneMoreCasual  = "more-casual"
	LengthAsIs      = "as-is"
	LengthShorter   = "shorter"
	LengthLonger    = "longer"
	DefaultLanguage = "en"
)

// Command is a named, user-defined configuration binding a capability to its options.
type Command struct {
	Name       string
	Capability Capability
	Options    Options
}

// NewDefaultCommand returns the built-in page-grounded chat command.
func NewDefaultCommand() Command {
	return Command{
		Name:       DefaultCommandName,
		Capability: CapabilityTextGeneration,
		Options:    TextGenerationOptions{},
	}
}

// IsDefault reports whether the command is the built-in page-grounded command.
func (c Command) IsDefault() bool {
	return c.Name == DefaultCommandName
}

// TextGeneration returns the text generation options when the command carries them.
func (c Command) TextGeneration() (TextGenerationOptions, bool) {
	switch o := c.Options.(type) {
	case TextGenerationOptions:
		return o, true
	case *TextGenerationOptions:
		if o != nil {
			return *o, true
		}
	}
	return TextGenerationOptions{}, false
}

// commandDocument is the on-disk shape of a command.
type commandDocument struct {
	Name       string     `yaml:"name"`
	Capability Capability `yaml:"capability"`
	Options    yaml.Node  `yaml:"options,omitempty"`
}

// UnmarshalYAML decodes the options block according to the declared capability.
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	var doc commandDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}

	opts, err := NewOptions(doc.Capability)
	if err != nil {
		return fmt.Errorf("command %q: %w", doc.Name, err)
	}
	if doc.Options.Kind != 0 {
		if err := doc.Options.Decode(opts); err != nil {
			return fmt.Errorf("command %q: invalid options: %w", doc.Name, err)
		}
	}

	c.Name = doc.Name
	c.Capability = doc.Capability
	c.Options = derefOptions(opts)
	return nil
}

// MarshalYAML encodes the command in the catalog format.
func (c Command) MarshalYAML() (interface{}, error) {
	out := struct {
		Name       string     `yaml:"name"`
		Capability Capability `yaml:"capability"`
		Options    Options    `yaml:"options,omitempty"`
	}{
		Name:       c.Name,
		Capability: c.Capability,
		Options:    c.Options,
	}
	return out, nil
}

// NewOptions returns a pointer to the zero options value for the capability.
func NewOptions(c Capability) (interface{}, error) {
	switch c {
	case CapabilityTextGeneration:
		return &TextGenerationOptions{}, nil
	case CapabilitySummarization:
		return &SummarizationOptions{}, nil
	case CapabilityWriting:
		return &WritingOptions{}, nil
	case CapabilityRewriting:
		return &RewritingOptions{}, nil
	case CapabilityTranslation:
		return &TranslationOptions{}, nil
	default:
		return nil, fmt.Errorf("unknown capability %q", c)
	}
}

func derefOptions(v interface{}) Options {
	switch o := v.(type) {
	case *TextGenerationOptions:
		return *o
	case *SummarizationOptions:
		return *o
	case *WritingOptions:
		return *o
	case *RewritingOptions:
		return *o
	case *TranslationOptions:
		return *o
	}
	return nil
}
