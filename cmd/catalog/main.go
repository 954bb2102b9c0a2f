package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/events"
	"github.com/ghuser/productcatalog/pkg/logger"
	"github.com/ghuser/productcatalog/services/catalog/application/console"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage a product catalog of items, bundles, and special offers.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive catalog session on stdin/stdout",
	Long: `shell opens an in-memory catalog and drives it from a numbered menu.

With --events-transport=postgres every change is also published to the
catalog.listings topic so a running worker can warm the listing cache.`,
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().StringP("loglevel", "l", "warn", "Set log level. Available: debug, info, warn, error")

	shellCmd.Flags().String("events-transport", "", "Publish catalog events: postgres, or empty to disable")
	shellCmd.Flags().String("events-database-url", os.Getenv("EVENTS_DATABASE_URL"), "PostgreSQL URL for --events-transport=postgres")
	shellCmd.Flags().String("workspace", "", "Workspace ID to publish under (default: a new one)")

	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("loglevel")
	transport, _ := cmd.Flags().GetString("events-transport")
	dbURL, _ := cmd.Flags().GetString("events-database-url")
	rawWorkspace, _ := cmd.Flags().GetString("workspace")

	cfg := &config.Config{
		LogLevel:          level,
		EventsTransport:   transport,
		EventsDatabaseURL: dbURL,
		ServiceName:       "catalog-shell",
	}
	// stdout belongs to the menu.
	log := logger.NewWithWriter(cfg, os.Stderr)

	workspaceID := uuid.New()
	if rawWorkspace != "" {
		id, err := uuid.Parse(rawWorkspace)
		if err != nil {
			return fmt.Errorf("invalid --workspace: %w", err)
		}
		workspaceID = id
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var publisher appsvcs.Publisher
	switch transport {
	case "":
	case config.TransportPostgres:
		bus, err := events.NewEventBus(cfg, log)
		if err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
		defer bus.Close() //nolint:errcheck
		publisher = bus
		log.Info("publishing catalog events", "transport", bus.Transport(), "workspace_id", workspaceID)
	default:
		return fmt.Errorf("unsupported --events-transport %q", transport)
	}

	facade := appsvcs.NewCatalogFacade(workspaceID, publisher, log)
	return console.NewShell(facade, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
