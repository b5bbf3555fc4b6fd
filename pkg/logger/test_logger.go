package logger

import "github.com/rs/zerolog"

// nopLogger is a Logger that discards everything. Used in tests.
type nopLogger struct {
	zl zerolog.Logger
}

// NewNop returns a logger that discards all output
func NewNop() Logger {
	return &nopLogger{zl: zerolog.Nop()}
}

func (n *nopLogger) Debug(msg string) {}
func (n *nopLogger) Info(msg string)  {}
func (n *nopLogger) Warn(msg string)  {}
func (n *nopLogger) Error(msg string) {}
func (n *nopLogger) Fatal(msg string) {}

func (n *nopLogger) WithField(key string, value interface{}) Logger        { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger       { return n }
func (n *nopLogger) WithError(err error) Logger                            { return n }
func (n *nopLogger) DebugWithFields(msg string, f map[string]interface{})  {}
func (n *nopLogger) InfoWithFields(msg string, f map[string]interface{})   {}
func (n *nopLogger) WarnWithFields(msg string, f map[string]interface{})   {}
func (n *nopLogger) ErrorWithFields(msg string, f map[string]interface{})  {}

func (n *nopLogger) GetZerolog() *zerolog.Logger { return &n.zl }
