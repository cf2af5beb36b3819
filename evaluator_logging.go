package sheet

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes one criteria evaluation for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Source   string
	Duration time.Duration
	Result   bool
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// CompileLogEvent summarises one Recompile call.
type CompileLogEvent struct {
	CharacterID       string
	State             CompileState
	Duration          time.Duration
	Mutators          int
	Diagnostics       int
	MissingSelections int
	Err               error
}

// CompileLogger records compile events.
type CompileLogger interface {
	LogCompile(CompileLogEvent)
}

// CompileLoggerFunc adapts a function to CompileLogger.
type CompileLoggerFunc func(CompileLogEvent)

// LogCompile implements CompileLogger.
func (f CompileLoggerFunc) LogCompile(event CompileLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopCompileLogger struct{}

func (noopCompileLogger) LogCompile(CompileLogEvent) {}

// CompileLoggers fans a compile event out to several loggers.
type CompileLoggers []CompileLogger

// LogCompile implements CompileLogger.
func (l CompileLoggers) LogCompile(event CompileLogEvent) {
	for _, logger := range l {
		if logger != nil {
			logger.LogCompile(event)
		}
	}
}

// SlogLogger writes compile and evaluation events to a slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger.With(slog.String("component", "sheet"))}
}

// LogCompile implements CompileLogger.
func (l *SlogLogger) LogCompile(event CompileLogEvent) {
	level := slog.LevelInfo
	if event.Err != nil {
		level = slog.LevelError
	} else if event.Diagnostics > 0 {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("character_id", event.CharacterID),
		slog.String("state", event.State.String()),
		slog.Duration("duration", event.Duration),
		slog.Int("mutators", event.Mutators),
		slog.Int("diagnostics", event.Diagnostics),
		slog.Int("missing_selections", event.MissingSelections),
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "character compiled", attrs...)
}

// LogEvaluation implements EvaluatorLogger.
func (l *SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("expr", event.Expr),
		slog.String("source", event.Source),
		slog.Duration("duration", event.Duration),
		slog.Bool("result", event.Result),
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "criteria evaluated", attrs...)
}
