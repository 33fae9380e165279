// Package logger provides structured logging for taskflow using zerolog.
//
// It supports JSON and console output, log level configuration, and
// structured fields. Task lines carry a
// "task" and a "status" field; the console writer renders them as
// "[<task>] <message>" colored by status.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.New(&cfg.Logging, "taskflow")
//	log.Info("spawning", logger.TaskFields("build", logger.StatusSpawn))
package logger
