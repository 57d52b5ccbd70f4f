// Package log provides the structured logging facade used across vitals.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Output goes through a pluggable
// Formatter (text or JSON) and one or more Outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"))
//	l.Info("server started", log.Str("addr", ":8080"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// format strings, typically sourced from VITALS_LOG_LEVEL/VITALS_LOG_FORMAT).
//
// # Interop
//
// RedirectStdLog routes standard library log output (used by Pebble) through
// this facade.
package log
