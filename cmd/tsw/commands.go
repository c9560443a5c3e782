package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tswnano/internal/services"
	"tswnano/pkg/nanotypes"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List or validate catalog commands",
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and user commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := InitializeServices(cmd, testMode)
		if err != nil {
			return err
		}
		entries, err := a.catalog.List()
		if err != nil {
			return err
		}
		printCatalog(cmd.OutOrStdout(), entries)
		return nil
	},
}

var commandsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a user command file against the built-in commands",
	Long: `Validate a user command file. Without an argument the configured
commands file is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := InitializeServices(cmd, testMode)
		if err != nil {
			return err
		}
		path := a.settings.CommandsFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no commands file given or configured")
		}

		entries, err := a.catalog.List()
		if err != nil {
			return err
		}
		n, err := validateUserCatalog(path, entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands ok\n", path, n)
		return nil
	},
}

func init() {
	commandsCmd.AddCommand(commandsListCmd)
	commandsCmd.AddCommand(commandsValidateCmd)
}

// validateUserCatalog checks path the way the catalog service would load it
// next to the built-in entries.
func validateUserCatalog(path string, entries []services.CatalogEntry) (int, error) {
	user, err := services.LoadCatalogFile(path)
	if err != nil {
		return 0, err
	}
	if len(user) > services.MaxUserCommands {
		return 0, fmt.Errorf("%s defines %d commands, at most %d are allowed", path, len(user), services.MaxUserCommands)
	}

	all := make([]nanotypes.Command, 0, len(entries)+len(user))
	for _, e := range entries {
		if e.BuiltIn {
			all = append(all, e.Command)
		}
	}
	all = append(all, user...)
	if err := services.ValidateCatalog(all); err != nil {
		return 0, err
	}
	return len(user), nil
}

func printCatalog(w io.Writer, entries []services.CatalogEntry) {
	for _, e := range entries {
		origin := "user"
		if e.BuiltIn {
			origin = "built-in"
		}
		fmt.Fprintf(w, "  %-20s %-16s %s\n", e.Command.Name, e.Command.Capability, origin)
	}
}
