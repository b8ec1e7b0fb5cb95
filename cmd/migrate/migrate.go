package migrate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/dirmigrate/internal/conf"
	"github.com/tphakala/dirmigrate/internal/datastore"
	"github.com/tphakala/dirmigrate/internal/directory"
	"github.com/tphakala/dirmigrate/internal/hashconv"
	"github.com/tphakala/dirmigrate/internal/logging"
	"github.com/tphakala/dirmigrate/internal/migration"
)

// Command creates the migrate command which performs a full migration run.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy client groups and users from the directory into the store",
		Long:  "Enumerate all client groups in the directory, upsert them and their users into the relational store, and persist a run summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the migrate command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Migration.DryRun, "dry-run", viper.GetBool("migration.dryrun"), "Execute all reads and conversions but write nothing to the store")
	cmd.Flags().IntVar(&settings.Migration.BatchSize, "batch-size", viper.GetInt("migration.batchsize"), "Number of users processed per concurrent batch")
	cmd.Flags().IntVar(&settings.Migration.Concurrency, "concurrency", viper.GetInt("migration.concurrency"), "Maximum number of in-flight user upserts within a batch")

	// Bind each flag to its settings key, SyncViper reads the migration.*
	// keys so binding under the bare flag names would discard parsed values.
	bindings := map[string]string{
		"migration.dryrun":      "dry-run",
		"migration.batchsize":   "batch-size",
		"migration.concurrency": "concurrency",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %v", name, err)
		}
	}

	return nil
}

func runMigration(settings *conf.Settings) error {
	// Release directory and store connections on SIGINT/SIGTERM as well,
	// the orchestrator closes them via deferred calls when the context ends.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := directory.NewLDAPReader(&settings.Directory)
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no output database is enabled in the configuration")
	}
	defer func() {
		if err := datastore.CloseLogger(); err != nil {
			logging.HumanReadable().Warn("failed to close datastore log", "error", err)
		}
	}()
	converter := hashconv.New(logging.ForService("hashconv"))

	if settings.Migration.DryRun {
		logging.HumanReadable().Warn("dry run: no client or user rows will be written")
	}

	orch := migration.New(migration.Config{
		Directory:   reader,
		Store:       store,
		Converter:   converter,
		Reporter:    migration.NewSlogReporter(logging.ForService("migration")),
		BatchSize:   settings.Migration.BatchSize,
		Concurrency: settings.Migration.Concurrency,
		DryRun:      settings.Migration.DryRun,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration aborted: %w", err)
	}

	printResult(result)

	if !result.Success {
		return fmt.Errorf("migration finished with %d failed clients and %d failed users",
			result.Stats.FailedClients, result.Stats.FailedUsers)
	}
	return nil
}

func printResult(result *migration.Result) {
	mode := ""
	if result.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("Migration finished%s in %s\n", mode, result.Duration.Round(time.Millisecond))
	fmt.Printf("  clients: %d total, %d succeeded, %d failed\n",
		result.Stats.TotalClients, result.Stats.SucceededClients, result.Stats.FailedClients)
	fmt.Printf("  users:   %d total, %d succeeded, %d failed\n",
		result.Stats.TotalUsers, result.Stats.SucceededUsers, result.Stats.FailedUsers)
	for _, msg := range result.Stats.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
}
