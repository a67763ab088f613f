package frontend

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lkarlslund/pathcost/modules/analyze"
	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/cobra"
)

var (
	Command = &cobra.Command{
		Use:   "serve [-options]",
		Short: "Serves the cost computation over HTTP",
		Args:  cobra.NoArgs,
	}

	bind      = Command.Flags().String("bind", "127.0.0.1:8080", "Address and port of webservice to bind to")
	profiling = Command.Flags().Bool("profiling", false, "Expose pprof endpoints under /debug/pprof")
	nohistory = Command.Flags().Bool("nohistory", false, "Do not record computations in the run history")
	maxbody   = Command.Flags().Int64("maxbody", 256, "Largest accepted upload in MB (0 is unlimited)")
	settings  = analyze.AddFlags(Command.Flags())
)

func init() {
	cli.Root.AddCommand(Command)
	if Command.RunE == nil {
		Command.RunE = Execute
	}
}

func Execute(cmd *cobra.Command, args []string) error {
	analyze.TuneRuntime()

	if *profiling {
		AddOption(WithProfiling())
	}
	if *maxbody > 0 {
		AddOption(WithMaxBody(*maxbody * 1024 * 1024))
	}
	if !*nohistory {
		runs, err := persistence.Runs()
		if err != nil {
			return err
		}
		AddOption(WithHistory(runs))
	}

	ws := NewWebservice(*settings)
	if err := ws.Start(*bind); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		ui.Info().Msg("Shutting down web service")
		shutdownctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ws.Shutdown(shutdownctx)
	case <-ws.QuitChan():
	}
	return nil
}
