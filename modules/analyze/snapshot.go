package analyze

import (
	"context"
	"time"

	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/snapshot"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/cobra"
)

var (
	snapshotCmd = &cobra.Command{
		Use:   "snapshot <input> <output>",
		Short: "Convert a batch to a compressed snapshot including its inverse graph",
		Args:  cobra.ExactArgs(2),
	}
	snapshotWorkers = snapshotCmd.Flags().Int("workers", DefaultSettings().Workers, "Number of goroutines used when transposing")
)

func init() {
	cli.Root.AddCommand(snapshotCmd)
	snapshotCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return Snapshot(cmd.Context(), args[0], args[1], *snapshotWorkers)
	}
}

// Snapshot loads a batch in any supported format, builds the inverse graph
// and writes everything to a snapshot. Results are kept if present.
func Snapshot(ctx context.Context, input, output string, workers int) error {
	start := time.Now()
	b, err := Load(input)
	if err != nil {
		return err
	}
	if !b.Transposed() {
		s := DefaultSettings()
		s.Workers = workers
		if err = b.Transpose(ctx, s.Backend()); err != nil {
			return err
		}
	}
	if err = snapshot.WriteFile(output, b); err != nil {
		return err
	}
	ui.Info().Msgf("Wrote snapshot of %v instances to %v in %v", b.GraphCount, output, time.Since(start))
	return nil
}
