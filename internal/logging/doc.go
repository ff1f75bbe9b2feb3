// Package logging provides a simple leveled logging interface for the
// photo browser.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Long-running components obtain a tagged
// Logger with For so their lines can be told apart:
//
//	log := logging.For("pipeline")
//	log.Warn("decode of %s failed: %v", path, err)
package logging
