// Package logging provides structured logging for the bridge and the session
// runner.
//
// It wraps log/slog with a JSON handler and carries persistent attributes
// (component, agent, prompt ordinal) on child loggers so that a single log
// file can be filtered per watchdog cycle or per prompt after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logDir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	wd := logger.WithComponent("watchdog").WithAgent("codex")
//	wd.Info("command detected", "bytes", len(cmd))
//
// When logDir is empty, logs go to stderr. Files are rotated by size through
// [RotatingWriter].
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
