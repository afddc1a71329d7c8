package cmdlog

import (
	"time"

	"openccp/internal/logging"
	"openccp/internal/metrics"
)

// Run executes a CLI command body, counting runs and errors and logging the outcome.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Debug(cmd+"_ok", map[string]any{"took": time.Since(start).String()})
	}
	return err
}
