package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tswnano/internal/invoker"
	"tswnano/internal/logger"
	"tswnano/internal/services"
	"tswnano/pkg/nanotypes"
)

// app holds the initialized services a subcommand works with.
type app struct {
	settings  services.Settings
	catalog   *services.CommandCatalogService
	providers *services.ProviderFactoryService
	markdown  *services.MarkdownService
	diff      *services.DiffService
	clipboard *services.ClipboardService
}

// InitializeServices registers every service with the global registry, binds
// the persistent flags to configuration and initializes them in order.
func InitializeServices(cmd *cobra.Command, testMode bool) (*app, error) {
	registry := services.NewRegistry()
	services.SetGlobalRegistry(registry)

	config := services.NewConfigurationService(services.ConfigurationOptions{SkipDotEnv: testMode})
	for flag, key := range flagBindings {
		if f := cmd.Root().PersistentFlags().Lookup(flag); f != nil {
			if err := config.Viper().BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}
	if err := registry.RegisterService(config); err != nil {
		return nil, err
	}

	// The command catalog needs the resolved commands file.
	if err := config.Initialize(); err != nil {
		return nil, err
	}
	settings, err := config.Settings()
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(settings.LogLevel, logFile, testMode); err != nil {
		return nil, err
	}

	for _, service := range []nanotypes.Service{
		services.NewCommandCatalogService(settings.CommandsFile),
		services.NewProviderFactoryService(nil),
		services.NewMarkdownService(),
		services.NewDiffService(),
		services.NewClipboardService(),
	} {
		if err := registry.RegisterService(service); err != nil {
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		return nil, err
	}
	logger.Debug("Services initialized", "services", registry.Names())

	a := &app{settings: settings}
	if a.catalog, err = services.GetService[*services.CommandCatalogService]("command_catalog"); err != nil {
		return nil, err
	}
	if a.providers, err = services.GetService[*services.ProviderFactoryService]("provider_factory"); err != nil {
		return nil, err
	}
	if a.markdown, err = services.GetService[*services.MarkdownService]("markdown"); err != nil {
		return nil, err
	}
	if a.diff, err = services.GetService[*services.DiffService]("diff"); err != nil {
		return nil, err
	}
	if a.clipboard, err = services.GetService[*services.ClipboardService]("clipboard"); err != nil {
		return nil, err
	}
	return a, nil
}

// newInvoker builds an invoker over the configured model runtime.
func (a *app) newInvoker() (*invoker.Invoker, error) {
	provider, id, err := a.providers.GetProvider(a.settings)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using provider", "providerID", id, "policy", a.settings.AvailabilityPolicy)
	return invoker.New(provider, invoker.Config{
		Policy:        a.settings.AvailabilityPolicy,
		MaxInputChars: a.settings.MaxInputChars,
	}), nil
}
