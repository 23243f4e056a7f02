// Package logger provides structured logging for declhttp using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("search-client").WithComponent("dispatch")
//	log.Debug("request built", logger.Fields("url", u))
package logger
