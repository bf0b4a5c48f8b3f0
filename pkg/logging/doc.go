// Package logging provides structured logging configuration for mockroute.
//
// This package wraps log/slog so every component logs the same way. It
// supports configurable log levels, text or JSON output, and an optional
// size-rotated log file.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("proxy listening", "addr", ":8000")
//
// # Log Files
//
// Setting Config.File writes logs to a file that is rotated by size. Records
// still go to Config.Output as well unless Config.FileOnly is set:
//
//	logger := logging.New(logging.Config{
//	    Level: logging.LevelDebug,
//	    File:  &logging.FileConfig{Path: "/var/log/mockroute.log", MaxSizeMB: 50},
//	})
//
// # Integration
//
// Components accept a *slog.Logger in their options. If none is provided,
// use logging.Nop().
package logging
