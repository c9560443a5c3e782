package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"tswnano/internal/invoker"
	"tswnano/internal/logger"
	"tswnano/internal/output"
	"tswnano/pkg/nanotypes"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [text...]",
	Short: "Run one catalog command on text",
	Long: `Run a command from the catalog (see "tsw commands list") on the given text,
or on standard input when no text is given. Recoverable model failures are
printed in place of the output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [text...]",
	Short: "Suggest how text continues",
	Long: `Predict the next sentence of the text. With --blank, fill the [BLANK]
marker in the text instead.`,
	RunE: runSuggest,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which capabilities the configured model can serve",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	runCmd.Flags().Bool("markdown", false, "Render the output as markdown")
	runCmd.Flags().Bool("diff", false, "Show what a rewriter command changed")
	runCmd.Flags().Bool("stream", false, "Print output as it is generated")
	suggestCmd.Flags().Bool("blank", false, "Fill the [BLANK] marker instead of continuing")
	probeCmd.Flags().Bool("json", false, "Print one JSON object per capability")
}

// signalContext is cancelled on the first interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// newPrinter writes to the command's output, styled when the terminal
// supports colour.
func newPrinter(cmd *cobra.Command, options ...output.Option) *output.Printer {
	base := []output.Option{output.WithWriter(cmd.OutOrStdout())}
	if testMode {
		base = append(base, output.TestMode())
	} else {
		base = append(base, output.WithStyles(output.NewLipglossStyleProvider()))
	}
	return output.NewPrinter(append(base, options...)...)
}

// streamDelta returns what to print to move the screen from printed to next.
// Text that does not extend what was printed starts on a new line.
func streamDelta(printed, next string) string {
	if strings.HasPrefix(next, printed) {
		return next[len(printed):]
	}
	return "\n" + next
}

// readInput joins args, falling back to all of r when there are none.
func readInput(args []string, r io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read standard input: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	a, err := InitializeServices(cmd, testMode)
	if err != nil {
		return err
	}
	command, err := a.catalog.Get(args[0])
	if err != nil {
		return err
	}
	input, err := readInput(args[1:], cmd.InOrStdin())
	if err != nil {
		return err
	}
	inv, err := a.newInvoker()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := newPrinter(cmd)
	stream, _ := cmd.Flags().GetBool("stream")
	var result string
	if stream {
		printed := ""
		result, err = nanotypes.FailSoftText(inv.InvokeStreaming(ctx, command, input, func(accumulated string) {
			out.Print(streamDelta(printed, accumulated))
			printed = accumulated
		}))
		if err != nil {
			return err
		}
		out.Println(streamDelta(printed, result))
		return nil
	}

	result, err = inv.InvokeFailSoft(ctx, command, input)
	if err != nil {
		return err
	}
	logger.Debug("Command finished", "command", command.Name, "characters", len(result))

	showDiff, _ := cmd.Flags().GetBool("diff")
	if showDiff && command.Capability == nanotypes.CapabilityRewriting {
		rendered, err := a.diff.Render(input, result, !out.IsStylable())
		if err != nil {
			return err
		}
		changes, err := a.diff.Diff(input, result)
		if err != nil {
			return err
		}
		stats := a.diff.Stats(changes)
		out.Println(rendered)
		out.Println("")
		out.Info(fmt.Sprintf("%d inserted, %d deleted", stats.Inserted, stats.Deleted))
		return nil
	}

	markdown, _ := cmd.Flags().GetBool("markdown")
	if markdown {
		rendered, err := a.markdown.Render(result)
		if err != nil {
			return err
		}
		out.Print(rendered)
		return nil
	}
	out.Println(result)
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := InitializeServices(cmd, testMode)
	if err != nil {
		return err
	}
	text, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	inv, err := a.newInvoker()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	blank, _ := cmd.Flags().GetBool("blank")
	var suggestion string
	if blank {
		suggestion, err = nanotypes.FailSoftText(inv.FillBlank(ctx, text))
	} else {
		suggestion, err = nanotypes.FailSoftText(inv.SuggestNext(ctx, text))
	}
	if err != nil {
		return err
	}
	newPrinter(cmd).Println(suggestion)
	return nil
}

func runProbe(cmd *cobra.Command, _ []string) error {
	a, err := InitializeServices(cmd, testMode)
	if err != nil {
		return err
	}
	inv, err := a.newInvoker()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	var out *output.Printer
	if jsonOutput {
		out = newPrinter(cmd, output.JSON())
	} else {
		out = newPrinter(cmd)
	}

	results := inv.Probe().Survey(ctx, inv.Provider())
	if jsonOutput {
		for _, r := range results {
			out.Record(probeRecord(r))
		}
		return nil
	}

	out.Printf("model %s, policy %s\n", a.settings.Model, a.settings.AvailabilityPolicy)
	for _, line := range formatProbeResults(out, results) {
		out.Println(line)
	}
	return nil
}

// probeRecord is the JSON form of one probe result.
func probeRecord(r invoker.ProbeResult) map[string]interface{} {
	record := map[string]interface{}{
		"capability":   r.Capability,
		"supported":    r.Supported,
		"availability": r.Availability,
		"usable":       r.Usable,
	}
	if r.Err != nil {
		record["error"] = r.Err.Error()
	}
	return record
}

// formatProbeResults renders one line per capability.
func formatProbeResults(p *output.Printer, results []invoker.ProbeResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		availability := string(r.Availability)
		switch {
		case !r.Supported:
			availability = "unsupported"
		case r.Err != nil:
			availability = "error: " + r.Err.Error()
		case availability == "":
			availability = "unknown"
		}

		mark := p.Style(output.SemanticError, "no")
		if r.Usable {
			mark = p.Style(output.SemanticSuccess, "yes")
		}
		lines = append(lines, fmt.Sprintf("  %-16s %-14s usable: %s", r.Capability, availability, mark))
	}
	return lines
}
