// Package logging sets up the process-wide structured logger shared by the
// frontend and agent binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
)

var Log *slog.Logger

// Init configures the global logger. level is one of debug/info/warn/error.
// If logFile is non-empty, log lines are written to stdout and the file.
func Init(level string, logFile string) error {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writers := []io.Writer{os.Stdout}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05.000"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

func init() {
	// Safe default so packages can log before Init runs (e.g. in tests).
	Log = slog.Default()
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
