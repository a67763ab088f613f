package analyze

import (
	"errors"

	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/spf13/cobra"
)

// Shortcuts on the root command, so "pathcost -f batch.txt" and
// "pathcost -t 100 1 500 3 0.2" work without naming a subcommand
var (
	file            = cli.Root.Flags().StringP("file", "f", "", "Compute the batch stored in this file")
	rootMathematica = cli.Root.Flags().BoolP("mathematica", "m", false, "Print a Mathematica graph expression per instance")
	rootOutput      = cli.Root.Flags().StringP("output", "o", "", "Write the computed batch to this file")
	testMode        = cli.Root.Flags().BoolP("test", "t", false, "Run the benchmark, optionally followed by nSamples nAttackPoints nAttackSteps nChildrenPerStep probOfMaxNode")
	rootSettings    = AddFlags(cli.Root.Flags())

	ErrNothingToDo = errors.New("nothing to do")
)

func init() {
	cli.Root.Args = cobra.MaximumNArgs(5)
	cli.Root.RunE = Execute
}

func Execute(cmd *cobra.Command, args []string) error {
	switch {
	case *testMode:
		opts := DefaultBenchmarkOptions()
		if err := ParseBenchmarkArgs(args, &opts.Generate); err != nil {
			return err
		}
		return runBenchmark(cmd.Context(), opts, *rootSettings)
	case *file != "":
		if len(args) > 0 {
			return cobra.NoArgs(cmd, args)
		}
		TuneRuntime()
		return computeFile(cmd, *file, *rootSettings, computeOptions{
			output:      *rootOutput,
			mathematica: *rootMathematica,
			history:     true,
		})
	}
	cmd.Help()
	if len(args) > 0 {
		return ErrNothingToDo
	}
	return nil
}
