package logging

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

var (
	logger *slog.Logger

	programLevel = new(slog.LevelVar) // Info by default

	loggingDebug = flag.Bool("logging.debug", false, "Enable debug logging")
)

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}))
}

// Init applies the logging flags. Call it after flag.Parse, the flag
// values are zero before that.
func Init() {
	if *loggingDebug {
		programLevel.Set(slog.LevelDebug)
	}
}

func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// Logger is the handle passed into components so they can log with
// their own attributes attached.
type Logger interface {
	With(args ...any) Logger

	Info(a ...any)
	Infof(format string, v ...interface{})
	Warn(a ...any)
	Warnf(format string, v ...interface{})
	Error(a ...any)
	Errorf(format string, v ...interface{})
	Debug(a ...any)
	Debugf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

type slogLogger struct {
	l *slog.Logger
}

// NewDefaultLogger returns a Logger backed by the package-level slog handler.
func NewDefaultLogger() Logger {
	return &slogLogger{l: logger}
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) Info(a ...any) {
	s.l.Info(fmt.Sprint(a...))
}

func (s *slogLogger) Infof(format string, v ...interface{}) {
	s.l.Info(fmt.Sprintf(format, v...))
}

func (s *slogLogger) Warn(a ...any) {
	s.l.Warn(fmt.Sprint(a...))
}

func (s *slogLogger) Warnf(format string, v ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, v...))
}

func (s *slogLogger) Error(a ...any) {
	s.l.Error(fmt.Sprint(a...))
}

func (s *slogLogger) Errorf(format string, v ...interface{}) {
	s.l.Error(fmt.Sprintf(format, v...))
}

func (s *slogLogger) Debug(a ...any) {
	s.l.Debug(fmt.Sprint(a...))
}

func (s *slogLogger) Debugf(format string, v ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, v...))
}

func (s *slogLogger) Fatalf(format string, v ...interface{}) {
	s.l.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Info(a ...any) {
	logger.Info(fmt.Sprint(a...))
}

func Infof(format string, v ...interface{}) {
	logger.Info(fmt.Sprintf(format, v...))
}

func Error(a ...any) {
	logger.Error(fmt.Sprint(a...))
}

func Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf(format, v...))
}

func Debug(a ...any) {
	logger.Debug(fmt.Sprint(a...))
}

func Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(format, v...))
}
