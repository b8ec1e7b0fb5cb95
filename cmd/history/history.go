package history

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/dirmigrate/internal/conf"
	"github.com/tphakala/dirmigrate/internal/datastore"
)

// Command creates the history command which lists prior run summaries.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous migration runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHistory(settings, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func printHistory(settings *conf.Settings, limit int) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no output database is enabled in the configuration")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	runs, err := store.RunHistory(limit)
	if err != nil {
		return fmt.Errorf("failed to query run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No migration runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tCLIENTS (ok/fail)\tUSERS (ok/fail)\tERRORS\tDRY RUN")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d/%d\t%d\t%v\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Duration.Round(time.Millisecond),
			r.SucceededClients, r.FailedClients,
			r.SucceededUsers, r.FailedUsers,
			len(r.Errors),
			r.DryRun)
	}
	return w.Flush()
}
