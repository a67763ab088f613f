package analyze

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/export"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/relax"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/cobra"
)

var (
	computeCmd = &cobra.Command{
		Use:   "compute <file or folder>...",
		Short: "Compute costs for batches stored in files",
		Args:  cobra.MinimumNArgs(1),
	}
	computeSettings = AddFlags(computeCmd.Flags())
	match           = computeCmd.Flags().String("match", "*", "Glob selecting files when a folder is given")
	computeOutput   = computeCmd.Flags().String("output", "", "Output file, or folder when computing several batches")
	mathematica     = computeCmd.Flags().Bool("mathematica", false, "Print a Mathematica graph expression per instance")
	verbose         = computeCmd.Flags().Bool("verbose", false, "Dump the final engine state of the first instance")
	nohistory       = computeCmd.Flags().Bool("nohistory", false, "Do not record runs in the history")
)

func init() {
	cli.Root.AddCommand(computeCmd)
	computeCmd.RunE = executeCompute
}

// Inputs expands folders into the files in them matching pattern
func Inputs(paths []string, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %v: %w", pattern, err)
	}
	var result []string
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			result = append(result, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !g.Match(entry.Name()) {
				continue
			}
			found = append(found, filepath.Join(path, entry.Name()))
		}
		if len(found) == 0 {
			ui.Warn().Msgf("No files matching %v in %v", pattern, path)
		}
		sort.Strings(found)
		result = append(result, found...)
	}
	return result, nil
}

func executeCompute(cmd *cobra.Command, args []string) error {
	inputs, err := Inputs(args, *match)
	if err != nil {
		return err
	}
	TuneRuntime()

	outputs := make([]string, len(inputs))
	if *computeOutput != "" {
		if len(inputs) == 1 {
			outputs[0] = *computeOutput
		} else {
			if err = os.MkdirAll(*computeOutput, 0755); err != nil {
				return err
			}
			for i, input := range inputs {
				outputs[i] = filepath.Join(*computeOutput, filepath.Base(input))
			}
		}
	}

	for i, input := range inputs {
		opts := computeOptions{
			output:      outputs[i],
			mathematica: *mathematica,
			verbose:     *verbose,
			history:     !*nohistory,
		}
		if err = computeFile(cmd, input, *computeSettings, opts); err != nil {
			return fmt.Errorf("%v: %w", input, err)
		}
	}
	return nil
}

type computeOptions struct {
	output      string
	mathematica bool
	verbose     bool
	history     bool
}

func computeFile(cmd *cobra.Command, path string, s Settings, opts computeOptions) error {
	b, err := Load(path)
	if err != nil {
		return err
	}

	e := s.Engine()
	if opts.verbose {
		e.Inspect = func(state *relax.State) {
			dumpState(b, state, 0)
		}
	}

	result, err := Compute(cmd.Context(), e, b, s.CheckCycles)
	if opts.history {
		persistence.SaveRun(Record(filepath.Base(path), s, b, result, err))
	}
	if err != nil {
		return err
	}
	if disconnected, blocked := Blocked(b, result.Costs); disconnected+blocked > 0 {
		ui.Info().Msgf("%v vertices across all instances are unreachable, %v have no path from a source and %v are held back by AND vertices",
			disconnected+blocked, disconnected, blocked)
	}

	if opts.mathematica {
		for g := 0; g < b.GraphCount; g++ {
			fmt.Fprintln(cmd.OutOrStdout(), export.Mathematica(b, result.Costs, g))
		}
	}

	if opts.output != "" {
		if err = Save(opts.output, b, result); err != nil {
			return err
		}
		ui.Info().Msgf("Saved results to %v", opts.output)
	}
	return nil
}

func dumpState(b *graph.Batch, state *relax.State, g int) {
	for v := 0; v < b.VertexCount; v++ {
		vs := state.Vertex(g, v)
		kind := "OR"
		if b.IsAnd(g, v) {
			kind = "AND"
		}
		ui.Info().Msgf("Vertex %v (%v): cost %v, updating %v, pending parents %v, running max %v, masked %v",
			v, kind, vs.Cost, vs.UpdatingCost, vs.ParentCount, vs.MaxVertex, vs.Masked)
	}
}
