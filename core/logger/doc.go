// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance for development (console, colored levels,
// ISO8601 timestamps) and production (JSON) use.
//
// # Run Awareness
//
// Every reconciliation run carries a run ID. The WithRun helper attaches the run ID and
// the table family being reconciled ("vocabulary", "stcm") to the log entry, so all lines
// written by one run can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log.Info("Loader started")
//
//	l := logger.WithRun(log, uow.RunID, "vocabulary")
//	l.Warn("Prefix mismatch", zap.String("file", path))
package logger
