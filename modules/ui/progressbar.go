package ui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gookit/color"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal. Progress bars
// are only drawn when it is.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type Bar struct {
	ID             uuid.UUID
	Title          string
	current, total atomic.Int64
	started        time.Time

	mutex      sync.Mutex
	lastupdate time.Time
	done       atomic.Bool
}

// BarStatus is a snapshot of a running bar, served by the web frontend
type BarStatus struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Current int64         `json:"current"`
	Total   int64         `json:"total"`
	Percent float32       `json:"percent"`
	Elapsed time.Duration `json:"elapsed"`
}

var (
	barLock sync.Mutex
	bars    = map[*Bar]struct{}{}
)

func ProgressBar(title string, max int64) *Bar {
	if max <= 0 {
		max = 1
	}
	id, _ := uuid.NewV7()
	pb := &Bar{
		ID:      id,
		Title:   title,
		started: time.Now(),
	}
	pb.total.Store(max)

	barLock.Lock()
	bars[pb] = struct{}{}
	barLock.Unlock()
	return pb
}

// ProgressBars returns the bars that are still running
func ProgressBars() []BarStatus {
	barLock.Lock()
	defer barLock.Unlock()
	result := make([]BarStatus, 0, len(bars))
	for pb := range bars {
		result = append(result, pb.Status())
	}
	return result
}

func (pb *Bar) Status() BarStatus {
	current, total := pb.current.Load(), pb.total.Load()
	return BarStatus{
		ID:      pb.ID.String(),
		Title:   pb.Title,
		Current: current,
		Total:   total,
		Percent: percent(current, total),
		Elapsed: time.Since(pb.started),
	}
}

func percent(current, total int64) float32 {
	if total <= 0 {
		return 0
	}
	return min(float32(current)*100/float32(total), 100)
}

func (pb *Bar) Add(i int64) {
	pb.current.Add(i)
	pb.draw(false)
}

func (pb *Bar) Finish() {
	if pb.done.Swap(true) {
		return
	}
	barLock.Lock()
	delete(bars, pb)
	barLock.Unlock()
	pb.draw(true)
}

func (pb *Bar) draw(force bool) {
	if !IsTerminal() || logLevel > LevelInfo {
		return
	}
	pb.mutex.Lock()
	if !force && time.Since(pb.lastupdate) < time.Second {
		pb.mutex.Unlock()
		return
	}
	pb.lastupdate = time.Now()
	pb.mutex.Unlock()

	status := pb.Status()

	outputMutex.Lock()
	defer outputMutex.Unlock()
	clearneeded = true

	before := pterm.NewStyle().Sprint(status.Title) + " " +
		pterm.Gray("[") + pterm.LightWhite(status.Current) + pterm.Gray("/") + pterm.LightWhite(status.Total) + pterm.Gray("]") + " "
	after := " " + color.RGB(pterm.NewRGB(255, 0, 0).Fade(0, float32(status.Total), float32(status.Current), pterm.NewRGB(0, 255, 0)).GetValues()).
		Sprint(fmt.Sprintf("%.2f%%", status.Percent)) + " | " + status.Elapsed.Round(time.Second).String()

	width := pterm.GetTerminalWidth() - len(pterm.RemoveColorFromString(before)) - len(pterm.RemoveColorFromString(after)) - 1
	filled := max(0, min(width, int(math.Round(float64(status.Percent)*float64(width)/100))))
	bar := strings.Repeat("█", filled) + strings.Repeat(" ", max(0, width-filled))

	pterm.Fprinto(nil, before+bar+after)
}
