package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

//go:generate go tool github.com/dmarkham/enumer -trimprefix=Level -type=LogLevel -output loglevel_enums.go

func init() {
	pterm.SetDefaultOutput(colorable.NewColorableStdout())
	pterm.PrintDebugMessages = true
}

type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelPanic
)

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	}
	return zerolog.PanicLevel
}

var (
	outputMutex sync.Mutex

	logLevel    = LevelInfo
	clearneeded bool

	Zerotime  bool
	starttime = time.Now()
)

func SetLoglevel(i LogLevel) {
	logLevel = i
}

func GetLoglevel() LogLevel {
	return logLevel
}

const maxPending = 10000

type pendingLine struct {
	level   LogLevel
	when    time.Time
	message string
}

var (
	logfile      *os.File
	logfilelevel = LevelInfo
	logfileinit  bool // stops buffering once the log file has been decided on
	fileLogger   zerolog.Logger
	pending      []pendingLine
)

// SetLogFile sends log lines at or above level to path as JSON. Lines logged
// before this call are replayed into the file, an empty path drops them.
func SetLogFile(path string, level LogLevel) error {
	outputMutex.Lock()
	defer outputMutex.Unlock()

	logfileinit = true

	if logfile != nil {
		logfile.Close()
		logfile = nil
	}

	if path == "" {
		pending = nil
		return nil
	}

	os.MkdirAll(filepath.Dir(path), 0755)

	var err error
	logfile, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open logfile %s: %w", path, err)
	}

	logfilelevel = level
	fileLogger = zerolog.New(logfile)

	for _, line := range pending {
		if line.level >= logfilelevel {
			fileLogger.WithLevel(line.level.zerolog()).Time("time", line.when).Msg(line.message)
		}
	}
	pending = nil

	return nil
}

type Logger struct {
	ll    LogLevel
	pterm pterm.PrefixPrinter
}

func (t Logger) Msgf(format string, args ...any) {
	toConsole := logLevel <= t.ll
	toFile := logfile != nil && logfilelevel <= t.ll
	if !toConsole && !toFile && logfileinit && t.ll < LevelFatal {
		return
	}

	outputMutex.Lock()

	now := time.Now()
	message := fmt.Sprintf(format, args...)

	if logfileinit {
		if toFile {
			fileLogger.WithLevel(t.ll.zerolog()).Time("time", now).Msg(message)
		}
	} else if len(pending) < maxPending {
		pending = append(pending, pendingLine{level: t.ll, when: now, message: message})
	}

	if toConsole {
		var timetext string
		if Zerotime {
			elapsed := now.Sub(starttime)
			timetext = fmt.Sprintf("%02d:%02d:%02d.%03d", int(elapsed.Hours()), int(elapsed.Minutes())%60, int(elapsed.Seconds())%60, elapsed.Milliseconds()%1000)
		} else {
			timetext = now.Format("15:04:05.000")
		}

		if clearneeded {
			pterm.Fprinto(t.pterm.Writer, strings.Repeat(" ", pterm.GetTerminalWidth()))
			pterm.Fprinto(t.pterm.Writer)
			clearneeded = false
		}
		pterm.Fprint(t.pterm.Writer, pterm.DefaultBasicText.Sprint(timetext+" ")+t.pterm.Sprintln(message))
	}

	if t.ll == LevelFatal {
		if logfile != nil {
			logfile.Close()
		}
		os.Exit(1)
	}
	outputMutex.Unlock()

	if t.ll == LevelPanic {
		panic(message)
	}
}

func (t Logger) Msg(msg string) Logger {
	t.Msgf("%s", msg)
	return t
}

func (t Logger) Err(e error) Logger {
	t.Msgf("Error: %v", e)
	return t
}

func Trace() Logger {
	return Logger{
		LevelTrace,
		pterm.PrefixPrinter{
			MessageStyle: &pterm.ThemeDefault.InfoMessageStyle,
			Prefix: pterm.Prefix{
				Style: &pterm.Style{pterm.FgCyan},
				Text:  "TRACE",
			},
		},
	}
}

func Debug() Logger {
	return Logger{LevelDebug, pterm.Debug}
}

func Info() Logger {
	return Logger{
		LevelInfo,
		pterm.PrefixPrinter{
			MessageStyle: &pterm.ThemeDefault.InfoMessageStyle,
			Prefix: pterm.Prefix{
				Style: &pterm.ThemeDefault.InfoPrefixStyle,
				Text:  "INFORMA",
			},
		},
	}
}

func Warn() Logger {
	return Logger{
		LevelWarn,
		pterm.PrefixPrinter{
			MessageStyle: &pterm.ThemeDefault.WarningMessageStyle,
			Prefix: pterm.Prefix{
				Style: &pterm.ThemeDefault.WarningPrefixStyle,
				Text:  "WARNING",
			},
		},
	}
}

func Error() Logger {
	return Logger{LevelError, pterm.Error}
}

func Fatal() Logger {
	return Logger{LevelFatal, pterm.Fatal}
}
