// Package prompt builds the system prompts and instructions sent to models.
// Every function is pure.
package prompt

import (
	"fmt"
	"strings"

	"tswnano/pkg/nanotypes"
)

// RefusalSentence is returned by grounded models when the context lacks the answer.
const RefusalSentence = "I could not find the answer based on the context you provided."

// ContinuationSeedMessage is the assistant seed paired with ContinuationSystemPrompt.
const ContinuationSeedMessage = "Predict the user's next inputting based on the given text."

// BlankMarker is the placeholder appended by BlankFillPrompt.
const BlankMarker = "[BLANK]"

// PageGroundedSystemPrompt instructs the model to answer only from context.
func PageGroundedSystemPrompt(context string) string {
	var b strings.Builder
	b.WriteString("You are an expert in answering user questions. You always understand user questions well, ")
	b.WriteString("and then provide high-quality answers based on the information provided in the context.\n")
	b.WriteString("Try to keep the answer concise and relevant to the context without providing unnecessary information and explanations.\n")
	fmt.Fprintf(&b, "If the provided context does not contain relevant information, just respond %q\n", RefusalSentence)
	b.WriteString("Context:\n")
	b.WriteString(context)
	return b.String()
}

// CustomGroundedSystemPrompt appends page content to a command's own system prompt.
func CustomGroundedSystemPrompt(systemPrompt, pageContent string) string {
	return systemPrompt + "\n\nThis page content:\n\n" + pageContent
}

// ContinuationSystemPrompt asks for exactly one natural sentence continuing the input.
func ContinuationSystemPrompt() string {
	return `Task: Generate relevant and diverse continuations for text, generate only one of possible continuations. Your responses should be:
Laconic: Only the words after the input text. Only one sentence.
Relevant: The generated content should be highly relevant to the input text.
Unique: Provide only the most likely continuation.
Natural and fluent: The generated text should be grammatically correct and read naturally.
Context-aware: Understand the context and generate responses that are appropriate.`
}

// ContinuationCommand is the text generation command used for next-sentence suggestions.
func ContinuationCommand() nanotypes.Command {
	return nanotypes.Command{
		Name:       "Suggest",
		Capability: nanotypes.CapabilityTextGeneration,
		Options: nanotypes.TextGenerationOptions{
			SystemPrompt: ContinuationSystemPrompt(),
			InitialPrompts: []nanotypes.PromptMessage{
				{Role: nanotypes.RoleAssistant, Content: ContinuationSeedMessage},
			},
		},
	}
}

// BlankFillPrompt asks the model to replace a [BLANK] marker placed after text.
func BlankFillPrompt(text string) string {
	return "Fill in the " + BlankMarker + " at the end of the text below with the most natural continuation.\n" +
		"Output only the replacement text. Do not explain, do not repeat the input, and keep the existing indentation.\n\n" +
		text + BlankMarker
}
