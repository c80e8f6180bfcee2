package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/topicworks/digest-cli/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Store.Path == "" {
			return eris.New("no store configured (set store.path)")
		}
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		for _, r := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  raw=%d deduped=%d new=%d\n",
				r.StartedAt.Format("2006-01-02 15:04"),
				r.RunID,
				r.Totals.RawCount,
				r.Totals.DedupedCount,
				r.Totals.NewCount,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(historyCmd)
}
