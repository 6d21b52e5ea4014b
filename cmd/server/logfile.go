package main

import (
	"github.com/rcos/rcos-io/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogWriter returns a file writer that rotates at cfg.MaxSizeMB and keeps
// cfg.MaxBackups compressed old files next to cfg.Path.
func newLogWriter(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}
