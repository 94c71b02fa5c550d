package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := NewLogger(level)
		suite.NoError(err, level)
		suite.NotNil(logger)
		suite.NotNil(logger.Logger)
	}
}

func (suite *LoggerTestSuite) TestNewLoggerBadLevel() {
	_, err := NewLogger("loud")
	suite.Error(err)
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestNop() {
	logger := NewNop()
	// Should not panic
	logger.Info("discarded", zap.String("k", "v"))
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestNamedAndWith() {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	child := logger.Named("series").With(zap.String("instrument", "NSE_FO|1"))
	child.Info("loaded", zap.Int("rows", 3))

	entries := logs.All()
	suite.Require().Len(entries, 1)
	suite.Equal("series", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	suite.Equal("NSE_FO|1", ctx["instrument"])
	suite.EqualValues(3, ctx["rows"])
}
