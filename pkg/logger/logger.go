package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const minPrefixLen = 10

var (
	prefixLen = minPrefixLen
	prefixMu  sync.Mutex
)

type Config struct {
	// Verbosity is the -v count: 0 info, 1 debug, 2+ trace.
	Verbosity int
	// File is the rotated log file path, empty disables file output.
	File string
	// MaxSizeMB and MaxBackups control rotation of File.
	MaxSizeMB  int
	MaxBackups int
	// Console receives every entry besides File, defaults to stdout.
	Console io.Writer
}

func Init(cfg Config) error {
	logrus.SetLevel(LevelFromVerbosity(cfg.Verbosity))
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ForceFormatting:  true,
		QuoteEmptyFields: true,
	})

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	if cfg.File == "" {
		logrus.SetOutput(console)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		logrus.SetOutput(console)
		return fmt.Errorf("create log directory: %w", err)
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 5
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 10
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     14,
		Compress:   true,
	}

	logrus.SetOutput(io.MultiWriter(console, rotating))
	return nil
}

func LevelFromVerbosity(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.InfoLevel
	case verbosity == 1:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// GetLogger returns an entry tagged with a padded component prefix.
func GetLogger(prefix string) *logrus.Entry {
	prefixMu.Lock()
	if len(prefix) > prefixLen {
		prefixLen = len(prefix)
	}
	width := prefixLen
	prefixMu.Unlock()

	return logrus.WithField("prefix", prefix+strings.Repeat(" ", width-len(prefix)))
}
