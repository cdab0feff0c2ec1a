package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-cli/internal/vertical"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog counts per vertical",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		verticals, err := vertical.NewServiceFromFile(cfg.Verticals.ConfigPath)
		if err != nil {
			return eris.Wrap(err, "load vertical definitions")
		}

		total, err := st.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "count products")
		}
		deadLetters, err := st.DeadLetterDepth(ctx)
		if err != nil {
			return eris.Wrap(err, "count dead letters")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERTICAL\tPRODUCTS")
		var classified int64
		for _, vc := range verticals.Configs() {
			n, err := st.CountVertical(ctx, vc.ID)
			if err != nil {
				return eris.Wrapf(err, "count vertical %s", vc.ID)
			}
			classified += n
			fmt.Fprintf(w, "%s\t%d\n", vc.ID, n)
		}
		fmt.Fprintf(w, "(unclassified)\t%d\n", total-classified)
		fmt.Fprintf(w, "TOTAL\t%d\n", total)
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nDead-lettered batches: %d\n", deadLetters)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
