// Package logutil holds small helpers around caarlos0/log.
package logutil

import (
	"time"

	"github.com/caarlos0/log"
)

// LogDuration logs the time elapsed since start, indented under the
// current log entry.
func LogDuration(logger *log.Logger, start time.Time) {
	logger.IncreasePadding()
	logger.Infof("took: %s", time.Since(start).Round(time.Millisecond))
	logger.ResetPadding()
}
