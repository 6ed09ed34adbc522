// Package logger provides structured logging for flowkit tooling
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("compiler")
//	log.Info("stage compiled", logger.StageFields(runID, 2))
package logger
