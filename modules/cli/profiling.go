package cli

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/felixge/fgprof"
	"github.com/felixge/fgtrace"
	"github.com/lkarlslund/pathcost/modules/ui"
)

var (
	embeddedprofiler  = Root.Flags().Bool("embeddedprofiler", false, "Start embedded Go profiler on localhost:6060")
	cpuprofile        = Root.Flags().Bool("cpuprofile", false, "Save CPU profile from start to end of processing in datapath")
	cpuprofiletimeout = Root.Flags().Int32("cpuprofiletimeout", 0, "CPU profiling timeout in seconds (0 means no timeout)")
	memprofile        = Root.Flags().Bool("memprofile", false, "Save heap profile at the end of processing in datapath")
	memprofiletimeout = Root.Flags().Int32("memprofiletimeout", 0, "Heap profiling timeout in seconds (0 means no timeout)")
	dofgtrace         = Root.Flags().Bool("fgtrace", false, "Save fgtrace from start to end of processing in datapath")
	dofgprof          = Root.Flags().Bool("fgprof", false, "Save fgprof from start to end of processing in datapath")

	profilers      []chan struct{}
	profilewriters sync.WaitGroup
)

func profilePath(kind, extension string) string {
	return filepath.Join(*Datapath, "pathcost-"+kind+"-"+time.Now().Format("06010215040506")+extension)
}

// profile runs stop in the background once the profiler is told to end,
// either by stopProfilers or by the timeout
func profile(timeout int32, stop func() error) {
	done := make(chan struct{}, 1)
	profilers = append(profilers, done)
	profilewriters.Add(1)
	go func() {
		defer profilewriters.Done()
		<-done
		if err := stop(); err != nil {
			ui.Error().Msgf("Problem stopping profiler: %v", err)
		}
	}()
	if timeout > 0 {
		go func() {
			<-time.After(time.Second * time.Duration(timeout))
			select {
			case done <- struct{}{}:
			default:
			}
		}()
	}
}

func startProfilers() error {
	if *embeddedprofiler {
		go func() {
			port := 6060
			for {
				ui.Info().Msgf("Starting profiling listener on port %v", port)
				err := http.ListenAndServe(fmt.Sprintf("localhost:%v", port), nil)
				if err == nil {
					break
				}
				ui.Error().Msgf("Profiling listener failed: %v, trying with new port", err)
				port++
			}
		}()
	}

	if *dofgprof {
		filename := profilePath("fgprof", ".pprof")
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("creating fgprof file %v: %w", filename, err)
		}
		stopper := fgprof.Start(f, fgprof.FormatPprof)
		profile(*cpuprofiletimeout, func() error {
			defer f.Close()
			return stopper()
		})
	}

	if *dofgtrace {
		trace := fgtrace.Config{Dst: fgtrace.File(profilePath("fgtrace", ".json"))}.Trace()
		profile(*cpuprofiletimeout, trace.Stop)
	}

	if *cpuprofile {
		filename := profilePath("cpuprofile", ".pprof")
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("could not set up CPU profiling in file %v: %w", filename, err)
		}
		if err = pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
		profile(*cpuprofiletimeout, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if *memprofile {
		filename := profilePath("memprofile", ".pprof")
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("could not set up heap profiling in file %v: %w", filename, err)
		}
		profile(*memprofiletimeout, func() error {
			defer f.Close()
			return pprof.WriteHeapProfile(f)
		})
	}
	return nil
}

func stopProfilers() {
	for _, done := range profilers {
		select {
		case done <- struct{}{}:
		default:
		}
	}
	profilewriters.Wait()
}
