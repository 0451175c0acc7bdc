package logging

import (
	"testing"

	"github.com/giygas/adherence-api/config"
)

// ResetForTest reinitializes the global logger into a temp directory and
// registers cleanup so tests never leak file handles.
func ResetForTest(t *testing.T, logDir string, env config.Environment, logLevelStr string, retentionWeeks int, maxFileSize int64) {
	t.Helper()

	previous := DefaultLoggingService
	InitLoggerWithRetentionAndSize(logDir, env, logLevelStr, testing.Verbose(), retentionWeeks, maxFileSize)

	t.Cleanup(func() {
		_ = DefaultLoggingService.Close()
		DefaultLoggingService = previous
	})
}
