package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type Entry = logrus.Entry

type Fields = logrus.Fields

// Options - настройки глобального логгера. Пустые значения означают
// уровень info, формат JSON и вывод в stdout.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

func Init() {
	if err := Configure(Options{}); err != nil {
		Log.Warnf("logger setup: %v", err)
	}
}

// Configure применяет opts к Log. DEBUG=true принудительно включает debug.
func Configure(opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "", "json":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.Output != nil {
		Log.SetOutput(opts.Output)
	} else {
		Log.SetOutput(os.Stdout)
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	if os.Getenv("DEBUG") == "true" {
		level = logrus.DebugLevel
	}
	Log.SetLevel(level)
	return nil
}

// Discard отключает вывод логов (используется в тестах).
func Discard() {
	Log.SetOutput(io.Discard)
}
