// Package log provides logrus-backed diagnostics persisted to a daily file under where.Logs().
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fields is an alias so callers do not import logrus directly.
type Fields = logrus.Fields

var (
	enabled bool
	logger  = logrus.New()
)

func init() {
	logger.SetOutput(io.Discard)
}

// Setup opens the log file and applies format and level from configuration.
// When logs.write is false every emission below is discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	configure(f, viper.GetBool(key.LogsJson), viper.GetString(key.LogsLevel))
	return nil
}

// SetOutput enables logging to w. Used by tests and the --verbose flag.
func SetOutput(w io.Writer, level string) {
	enabled = true
	configure(w, false, level)
}

func configure(w io.Writer, asJson bool, level string) {
	logger.SetOutput(w)

	if asJson {
		logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: true})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// WithFields returns an entry carrying structured context. It is a no-op
// sink when logging is disabled.
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func Error(args ...interface{}) {
	if enabled {
		logger.Error(args...)
	}
}
func Errorf(format string, args ...interface{}) {
	if enabled {
		logger.Errorf(format, args...)
	}
}
func Warn(args ...interface{}) {
	if enabled {
		logger.Warn(args...)
	}
}
func Warnf(format string, args ...interface{}) {
	if enabled {
		logger.Warnf(format, args...)
	}
}
func Info(args ...interface{}) {
	if enabled {
		logger.Info(args...)
	}
}
func Infof(format string, args ...interface{}) {
	if enabled {
		logger.Infof(format, args...)
	}
}
func Debug(args ...interface{}) {
	if enabled {
		logger.Debug(args...)
	}
}
func Debugf(format string, args ...interface{}) {
	if enabled {
		logger.Debugf(format, args...)
	}
}
