package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/config"
	"github.com/matzehuels/wafermap/pkg/storage"
)

// storeOpts selects a run archive from flags or a job file.
type storeOpts struct {
	job      string
	driver   string
	dsn      string
	database string
}

func (o *storeOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.job, "job", "", "take the archive settings from a job file")
	cmd.Flags().StringVar(&o.driver, "store", storage.DriverSQLite, "archive driver: sqlite, mongo")
	cmd.Flags().StringVar(&o.dsn, "dsn", "wafermap.db", "archive location (SQLite file or MongoDB URI)")
	cmd.Flags().StringVar(&o.database, "database", "", "MongoDB database name")
}

func (o *storeOpts) config() (storage.Config, error) {
	if o.job == "" {
		return storage.Config{Driver: o.driver, DSN: o.dsn, Database: o.database}, nil
	}
	cfg, err := config.Load(o.job)
	if err != nil {
		return storage.Config{}, err
	}
	sc := cfg.StorageConfig()
	if !sc.Enabled() {
		return storage.Config{}, fmt.Errorf("%s has no [store] section", o.job)
	}
	return sc, nil
}

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		sopts   storeOpts
		waferID string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List archived runs or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := sopts.config()
			if err != nil {
				return err
			}
			store, err := storage.Open(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd.Context(), store, args[0])
			}
			return listRuns(cmd.Context(), store, storage.ListOptions{WaferID: waferID, Limit: limit})
		},
	}

	sopts.register(cmd)
	cmd.Flags().StringVarP(&waferID, "wafer", "w", "", "only runs of this wafer")
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "maximum number of runs")

	return cmd
}

func listRuns(ctx context.Context, store storage.Store, opts storage.ListOptions) error {
	runs, err := store.ListRuns(ctx, opts)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No archived runs")
		return nil
	}
	fmt.Println(runsTable(runs))
	return nil
}

func showRun(ctx context.Context, store storage.Store, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	printKeyValue("Run", run.ID)
	printKeyValue("Wafer", run.WaferID)
	printKeyValue("Name", run.Name)
	printKeyValue("Policy", run.Policy)
	printKeyValue("Created", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	for _, e := range run.Excluded {
		printWarning("%s excluded: %s", e.Station, e.Reason)
	}
	printNewline()
	printGrid(run.Grid())
	printNewline()
	fmt.Println(statsTable(run.Stats))
	if len(run.Changes) > 0 {
		printInfo("%d changes", len(run.Changes))
		for _, ch := range run.Changes {
			printDetail("%s %s", ch.Station, ch.String())
		}
	}
	return nil
}
