package persistence

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/spf13/cobra"
)

const RunBucket = "runs"

// Run is one engine execution as kept in the history
type Run struct {
	RunID   string    `json:"id"`
	Started time.Time `json:"started"`
	Origin  string    `json:"origin"` // file name, "benchmark" or "api"
	Backend string    `json:"backend"`
	Workers int       `json:"workers,omitempty"`
	Host    string    `json:"host,omitempty"`

	GraphCount  int `json:"graphs"`
	VertexCount int `json:"vertices"`
	EdgeCount   int `json:"edges"`
	AndVertices int `json:"andvertices"`

	PhasesPerPoll int           `json:"phasesperpoll"`
	Iterations    int           `json:"iterations"`
	Polls         int           `json:"polls"`
	Duration      time.Duration `json:"duration"`
	Unreachable   int           `json:"unreachable"`

	// filled when the run was checked against the reference solver
	Validated  int `json:"validated,omitempty"`
	Mismatches int `json:"mismatches,omitempty"`

	Error string `json:"error,omitempty"`
}

func (r Run) ID() string {
	return r.RunID
}

// NewRun returns a run with a fresh time ordered id
func NewRun(origin string) Run {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.Must(uuid.NewV4())
	}
	return Run{
		RunID:   id.String(),
		Started: time.Now(),
		Origin:  origin,
	}
}

func Runs() (Store[Run], error) {
	return GetStorage[Run](RunBucket, false)
}

// SaveRun stores r in the default database, logging instead of failing
// since history is not essential to any command
func SaveRun(r Run) {
	runs, err := Runs()
	if err == nil {
		err = runs.Put(r)
	}
	if err != nil {
		ui.Warn().Msgf("Could not save run %v to history: %v", r.RunID, err)
		return
	}
	ui.Debug().Msgf("Saved run %v to history", r.RunID)
}

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show previous runs",
		Args:  cobra.NoArgs,
	}
	historyShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of a single run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	historyDeleteCmd = &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove runs from the history",
		Args:  cobra.MinimumNArgs(1),
		RunE:  deleteRuns,
	}
	historyLimit = historyCmd.Flags().Int("limit", 25, "Show at most this many of the newest runs (0 for all)")
)

func init() {
	cli.Root.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
	historyCmd.RunE = listRuns
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := Runs()
	if err != nil {
		return err
	}
	list, err := runs.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ui.Info().Msg("No runs recorded yet")
		return nil
	}
	if *historyLimit > 0 && len(list) > *historyLimit {
		list = list[len(list)-*historyLimit:]
	}
	for _, r := range list {
		ui.Info().Msg(r.Summary())
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	runs, err := Runs()
	if err != nil {
		return err
	}
	r, found := runs.Get(args[0])
	if !found {
		return fmt.Errorf("run %v: %w", args[0], ErrNotFound)
	}
	ui.Info().Msg(r.Summary())
	ui.Info().Msgf("Graphs %v, vertices %v, edges %v, AND vertices %v", r.GraphCount, r.VertexCount, r.EdgeCount, r.AndVertices)
	ui.Info().Msgf("Backend %v with %v workers, %v phases per poll", r.Backend, r.Workers, r.PhasesPerPoll)
	if r.Host != "" {
		ui.Info().Msgf("Host: %v", r.Host)
	}
	if r.Validated > 0 {
		ui.Info().Msgf("Validated %v instances, %v mismatches", r.Validated, r.Mismatches)
	}
	if r.Error != "" {
		ui.Warn().Msgf("Failed: %v", r.Error)
	}
	return nil
}

func deleteRuns(cmd *cobra.Command, args []string) error {
	runs, err := Runs()
	if err != nil {
		return err
	}
	for _, id := range args {
		if err = runs.Delete(id); err != nil {
			return fmt.Errorf("run %v: %w", id, err)
		}
		ui.Info().Msgf("Deleted run %v", id)
	}
	return nil
}

func (r Run) Summary() string {
	status := "ok"
	if r.Error != "" {
		status = "failed"
	} else if r.Mismatches > 0 {
		status = fmt.Sprintf("%v mismatches", r.Mismatches)
	}
	return fmt.Sprintf("%v %v %v: %v graphs, %v iterations in %v, %v unreachable (%v)",
		r.RunID, r.Started.Format(time.DateTime), r.Origin, r.GraphCount, r.Iterations, r.Duration, r.Unreachable, status)
}
