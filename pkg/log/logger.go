package log

import (
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Only the first stack line is parsed: "goroutine 123 [running]:".
	minStackBufSize = 32
	// Shortest stack header that can still carry an id.
	minStackTraceLen = 12
	// Length of "goroutine ".
	goroutinePrefixLen = 10

	timeFormat = "15:04:05"
)

var (
	Logger        zerolog.Logger
	goroutinePool sync.Pool
	mu            sync.Mutex
)

func init() {
	goroutinePool.New = func() interface{} {
		return make([]byte, minStackBufSize)
	}

	Logger = build(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}, zerolog.InfoLevel)
	log.Logger = Logger
}

// goroutineID extracts the id of the calling goroutine from the first stack line.
func goroutineID() string {
	bufInterface := goroutinePool.Get()
	buf, ok := bufInterface.([]byte)
	if !ok {
		return "unknown"
	}
	defer goroutinePool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	stackLen := runtime.Stack(buf, false)
	if stackLen < minStackTraceLen {
		return "unknown"
	}

	idx := goroutinePrefixLen
	start := idx
	for idx < stackLen && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}

	if idx > start {
		return string(buf[start:idx])
	}
	return "unknown"
}

func build(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetLevel switches the logger to the named level (debug, info, warn, error).
// Unknown names leave the current level untouched and return false.
func SetLevel(name string) bool {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return false
	}

	mu.Lock()
	defer mu.Unlock()

	Logger = Logger.Level(level)
	log.Logger = Logger
	return true
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	SetLevel("debug")
}

// SetOutput redirects log output, keeping the current level. Plain writers
// receive JSON lines; use zerolog.ConsoleWriter for human output.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	Logger = build(out, Logger.GetLevel())
	log.Logger = Logger
}
