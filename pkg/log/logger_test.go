package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite tests the log package
type LoggerTestSuite struct {
	suite.Suite
	originalLogger zerolog.Logger
	testOutput     *bytes.Buffer
}

// SetupTest runs before each test
func (s *LoggerTestSuite) SetupTest() {
	s.originalLogger = Logger
	s.testOutput = &bytes.Buffer{}
	Logger = build(s.testOutput, zerolog.DebugLevel)
}

// TearDownTest runs after each test
func (s *LoggerTestSuite) TearDownTest() {
	Logger = s.originalLogger
}

// TestGoroutineID tests the goroutine ID extraction
func (s *LoggerTestSuite) TestGoroutineID() {
	id := goroutineID()
	s.NotEmpty(id)
	s.LessOrEqual(len(id), 20)

	if id != "unknown" {
		for _, char := range id {
			s.True(char >= '0' && char <= '9', "goroutine id should be numeric or 'unknown'")
		}
	}

	s.Equal(id, goroutineID())
}

// TestLevels tests each level helper writes the message and the goid field
func (s *LoggerTestSuite) TestLevels() {
	Debug().Msg("debug test")
	Info().Msg("info test")
	Warn().Msg("warn test")
	Error().Msg("error test")

	output := s.testOutput.String()
	for _, msg := range []string{"debug test", "info test", "warn test", "error test"} {
		s.Contains(output, msg)
	}
	s.Contains(output, "goid")
}

// TestLogWithFields tests logging with additional fields
func (s *LoggerTestSuite) TestLogWithFields() {
	Info().Str("path", "/tmp/a").Str("protocol", "file").Msg("listing")

	output := s.testOutput.String()
	s.Contains(output, `"path":"/tmp/a"`)
	s.Contains(output, `"protocol":"file"`)
}

// TestSetLevel tests level switching by name
func (s *LoggerTestSuite) TestSetLevel() {
	s.True(SetLevel("WARN"))
	s.Equal(zerolog.WarnLevel, Logger.GetLevel())

	Info().Msg("hidden")
	Warn().Msg("shown")

	output := s.testOutput.String()
	s.NotContains(output, "hidden")
	s.Contains(output, "shown")

	s.False(SetLevel("loud"))
	s.Equal(zerolog.WarnLevel, Logger.GetLevel())
}

// TestSetOutput tests output redirection keeps the level
func (s *LoggerTestSuite) TestSetOutput() {
	SetLevel("error")
	other := &bytes.Buffer{}
	SetOutput(other)

	Warn().Msg("dropped")
	Error().Msg("kept")

	s.Equal(zerolog.ErrorLevel, Logger.GetLevel())
	s.NotContains(other.String(), "dropped")
	s.Contains(other.String(), "kept")
	s.Empty(s.testOutput.String())
}

// TestConcurrentLogging tests that logging is thread-safe
func (s *LoggerTestSuite) TestConcurrentLogging() {
	Logger = build(zerolog.SyncWriter(s.testOutput), zerolog.DebugLevel)

	numGoroutines := 10
	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer func() { done <- true }()
			Info().Int("worker", id).Msg("concurrent log message")
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimSpace(s.testOutput.String()), "\n")
	s.GreaterOrEqual(len(lines), 1)
	s.Contains(s.testOutput.String(), "concurrent log message")
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
