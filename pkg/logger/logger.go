// Package logger provides structured logging for the playground hub.
// It keeps a small field-based API on top of zap so call sites do not
// depend on zap types directly.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a string into a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// Common field constructors.
func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Format selects the encoder used for output.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Options configures the logger.
type Options struct {
	Output    io.Writer
	Level     Level
	Format    Format
	AddCaller bool
}

// DefaultOptions returns the production defaults: JSON on stdout at info level.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		Format:    FormatJSON,
		AddCaller: true,
	}
}

// Logger is a thin wrapper around *zap.Logger.
type Logger struct {
	z *zap.Logger
}

// New creates a new Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if opts.Format == FormatConsole {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(opts.Output), opts.Level.zapLevel())

	zopts := []zap.Option{}
	if opts.AddCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{z: zap.New(core, zopts...)}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// With returns a new Logger with the given fields added.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZap(fields)...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZap(fields)...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZap(fields)...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, toZap(fields)...) }

// Fatal logs a fatal message and exits the program.
func (l *Logger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, toZap(fields)...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns a default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// RequestIDKey is the field key for request tracing.
const RequestIDKey = "request_id"

// WithRequestID returns a logger with request ID field added.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Domain helpers.
func UserID(id string) Field      { return String("user_id", id) }
func ScenarioID(id string) Field  { return String("scenario_id", id) }
func Tier(tier string) Field      { return String("tier", tier) }
func XPAmount(xp int) Field       { return Int("xp_amount", xp) }
func TotalXP(xp int) Field        { return Int("total_xp", xp) }
func Component(name string) Field { return String("component", name) }
