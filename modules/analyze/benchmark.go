package analyze

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/graph"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/reference"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

type BenchmarkOptions struct {
	Generate graph.GenerateOptions
	Rerolls  int // extra runs on the same topology with fresh weights
	Validate int // instances checked against the reference solver per run
}

func DefaultBenchmarkOptions() BenchmarkOptions {
	return BenchmarkOptions{
		Generate: graph.DefaultGenerateOptions(),
		Rerolls:  1,
		Validate: 10,
	}
}

var (
	benchmarkCmd = &cobra.Command{
		Use:   "benchmark [nSamples nAttackPoints nAttackSteps nChildrenPerStep probOfMaxNode]",
		Short: "Compute random batches and validate them against the reference solver",
		Args:  cobra.MaximumNArgs(5),
	}
	benchmarkSettings = AddFlags(benchmarkCmd.Flags())
	benchmarkOptions  = benchmarkFlags(benchmarkCmd)
)

func benchmarkFlags(cmd *cobra.Command) *BenchmarkOptions {
	opts := DefaultBenchmarkOptions()
	fs := cmd.Flags()
	fs.Int32Var(&opts.Generate.MaxWeight, "maxweight", opts.Generate.MaxWeight, "Edge weights are drawn below this value")
	fs.Int64Var(&opts.Generate.Seed, "seed", opts.Generate.Seed, "Random seed for topology and weights")
	fs.BoolVar(&opts.Generate.Acyclic, "acyclic", opts.Generate.Acyclic, "Only generate edges towards higher numbered vertices")
	fs.IntVar(&opts.Rerolls, "rerolls", opts.Rerolls, "Runs repeated with new weights on the same topology")
	fs.IntVar(&opts.Validate, "validate", opts.Validate, "Instances per run checked against the reference solver")
	return &opts
}

func init() {
	cli.Root.AddCommand(benchmarkCmd)
	benchmarkCmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := *benchmarkOptions
		if err := ParseBenchmarkArgs(args, &opts.Generate); err != nil {
			return err
		}
		return runBenchmark(cmd.Context(), opts, *benchmarkSettings)
	}
}

// ParseBenchmarkArgs reads the positional benchmark parameters in order,
// leaving the rest at their current values
func ParseBenchmarkArgs(args []string, opts *graph.GenerateOptions) error {
	ints := []*int{&opts.Graphs, &opts.Sources, &opts.Vertices, &opts.ChildrenPerVertex}
	names := []string{"nSamples", "nAttackPoints", "nAttackSteps", "nChildrenPerStep", "probOfMaxNode"}
	if len(args) > len(names) {
		return fmt.Errorf("expected at most %v benchmark parameters, got %v", len(names), len(args))
	}
	for i, arg := range args {
		if i < len(ints) {
			value, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("%v must be an integer: %w", names[i], err)
			}
			*ints[i] = value
			continue
		}
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil || value < 0 || value > 1 {
			return fmt.Errorf("%v must be a probability between 0 and 1, got %v", names[i], arg)
		}
		opts.ProbMax = value
	}
	return nil
}

func hostDescription() string {
	description := "unknown host"
	if h, err := host.Info(); err == nil {
		description = fmt.Sprintf("%v (%v %v %v)", h.Hostname, h.Platform, h.PlatformVersion, h.KernelArch)
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		description += ", " + cpus[0].ModelName
	}
	if cores, err := cpu.Counts(true); err == nil {
		description += fmt.Sprintf(", %v threads", cores)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		description += fmt.Sprintf(", %v MB RAM", vm.Total/1024/1024)
	}
	return description
}

func runBenchmark(ctx context.Context, opts BenchmarkOptions, s Settings) error {
	TuneRuntime()
	runs, err := Benchmark(ctx, opts, s)
	for _, r := range runs {
		persistence.SaveRun(r)
	}
	if err != nil {
		return err
	}
	for _, r := range runs {
		if r.Mismatches > 0 {
			return fmt.Errorf("run %v differs from the reference solver in %v vertices", r.RunID, r.Mismatches)
		}
	}
	return nil
}

// Benchmark generates a batch and computes it, then rerolls the weights and
// computes it again. Every run is checked against the reference solver. The
// returned runs are not saved.
func Benchmark(ctx context.Context, opts BenchmarkOptions, s Settings) ([]persistence.Run, error) {
	hostinfo := hostDescription()
	ui.Info().Msgf("Benchmarking on %v", hostinfo)

	start := time.Now()
	b, err := graph.Generate(opts.Generate)
	if err != nil {
		return nil, err
	}
	ui.Info().Msgf("Generated %v instances with %v attack points, %v attack steps and %v children per step in %v",
		opts.Generate.Graphs, opts.Generate.Sources, opts.Generate.Vertices, opts.Generate.ChildrenPerVertex, time.Since(start))

	rng := rand.New(rand.NewSource(opts.Generate.Seed + 1))
	e := s.Engine()

	var runs []persistence.Run
	for round := 0; round <= opts.Rerolls; round++ {
		origin := "benchmark"
		if round > 0 {
			b.RerollWeights(rng, opts.Generate.MaxWeight)
			origin = fmt.Sprintf("benchmark reroll %v", round)
		}

		result, err := Compute(ctx, e, b, s.CheckCycles)
		r := Record(origin, s, b, result, err)
		r.Host = hostinfo
		if err != nil {
			return append(runs, r), err
		}

		if opts.Validate > 0 {
			report := validate(b, result.Costs, opts.Validate)
			r.Validated = report.Instances
			r.Mismatches = report.Errors
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func validate(b *graph.Batch, costs []int32, instances int) reference.Report {
	instances = min(instances, b.GraphCount)
	pb := ui.ProgressBar("Validating against reference solver", int64(instances))
	var report reference.Report
	for g := 0; g < instances; g++ {
		report.Check(b, costs, g)
		pb.Add(1)
	}
	pb.Finish()

	ui.Info().Msgf("Validated %v instances: %v errors in %v vertices, %v infinite", report.Instances, report.Errors, report.Vertices, report.Infinite)
	for _, m := range report.Mismatches {
		ui.Warn().Msgf("Instance %v vertex %v: reference %v, computed %v", m.Instance, m.Vertex, m.Expected, m.Got)
	}
	return report
}
