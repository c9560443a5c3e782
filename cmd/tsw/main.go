// Package main provides the tswnano CLI: one-shot commands, page-grounded chat
// and availability probing against an on-device model runtime.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tswnano/internal/logger"
	"tswnano/internal/services"
	"tswnano/internal/version"
)

var (
	logLevel     string
	logFile      string
	testMode     bool
	endpoint     string
	model        string
	apiKey       string
	policy       string
	commandsFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsw",
	Short: "tswnano - small on-device model commands and page chat",
	Long: `tswnano runs summarizer, writer, rewriter, translator and prompt commands
against a local OpenAI-compatible model runtime, and chats about a page of text.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		detailed, _ := cmd.Flags().GetBool("detailed")
		if detailed {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

// flagBindings maps persistent flags to configuration keys.
var flagBindings = map[string]string{
	"log-level":     services.KeyLogLevel,
	"endpoint":      services.KeyEndpoint,
	"model":         services.KeyModel,
	"api-key":       services.KeyAPIKey,
	"policy":        services.KeyAvailabilityPolicy,
	"commands-file": services.KeyCommandsFile,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: warn]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode (ignores .env files)")
	flags.StringVar(&endpoint, "endpoint", "", "Model runtime endpoint [env: TSW_ENDPOINT]")
	flags.StringVar(&model, "model", "", "Model name [env: TSW_MODEL]")
	flags.StringVar(&apiKey, "api-key", "", "API key for the runtime, if it needs one [env: TSW_API_KEY]")
	flags.StringVar(&policy, "policy", "", "Availability policy (strict|permissive) [env: TSW_AVAILABILITY_POLICY]")
	flags.StringVar(&commandsFile, "commands-file", "", "YAML file with user commands [env: TSW_COMMANDS_FILE]")

	versionCmd.Flags().Bool("detailed", false, "Show build details")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Configure logger with CLI flags; reconfigured once settings are resolved.
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}
