package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessellate-ml/augment/internal/runlog"
)

func newRunsCmd() *cobra.Command {
	var dbPath, pipeline string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded augmentation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd.Context(), dbPath, pipeline, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "runlog database path")
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "only list runs for this pipeline")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(ctx context.Context, dbPath, pipeline string, out io.Writer) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("runlog database %s: %w", dbPath, err)
	}
	db, err := runlog.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := runlog.NewRunStore(db.DB).ListRuns(pipeline)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		loggerFromContext(ctx).Info("no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPIPELINE\tSEED\tSAMPLES\tDURATION\tCREATED")
	for _, r := range runs {
		name := r.Pipeline
		if name == "" {
			name = "-"
		}
		dur := "-"
		if r.DurationMs != nil {
			dur = time.Duration(*r.DurationMs * float64(time.Millisecond)).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID, name, r.Seed, r.Samples, dur,
			time.Unix(0, r.CreatedAtNs).Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
