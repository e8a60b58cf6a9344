// Package log provides named, leveled module loggers shared by every engine package.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is the verbosity threshold passed to SetLevel.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a level name (case-insensitive) to a Level.
//
// Parameters:
//   - name: one of debug, info, notice, warning, error
//
// Returns:
//   - Level: the parsed level
//   - error: non-nil for unknown names
func ParseLevel(name string) (Level, error) {
	for l := Debug; l <= Error; l++ {
		if strings.EqualFold(name, l.String()) {
			return l, nil
		}
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

// Logger is the subset of go-logging's logger used by the engine.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level:.4s}]%{color:reset} %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
	currentLevel   = Notice
)

// New returns the logger for a named module.
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects all loggers to sink, keeping the current level.
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	backend := logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format)
	leveledBackend = logging.AddModuleLevel(backend)
	leveledBackend.SetLevel(toLogging(currentLevel), "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity of every module.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	leveledBackend.SetLevel(toLogging(level), "")
}

func toLogging(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	default:
		return logging.NOTICE
	}
}

func init() {
	SetSink(os.Stderr)
}
