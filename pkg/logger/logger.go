package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger: тонкая обертка над zap с key/value API.
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New создает JSON logger, пишущий в stdout.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter создает logger с произвольным writer (используется в тестах).
func NewWithWriter(level string, w io.Writer) *Logger {
	atom := zap.NewAtomicLevelAt(parseLevel(level))

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339TimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), atom)

	return &Logger{
		sugar: zap.New(core).Sugar(),
		level: atom,
	}
}

// NewNop возвращает logger, который ничего не пишет.
func NewNop() *Logger {
	return &Logger{
		sugar: zap.NewNop().Sugar(),
		level: zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.sugar.Errorw(msg, args...)
}

// With возвращает дочерний logger с постоянными полями.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(args...),
		level: l.level,
	}
}

// Enabled сообщает, будет ли записано сообщение данного уровня.
func (l *Logger) Enabled(level string) bool {
	return l.level.Enabled(parseLevel(level))
}

// Sync сбрасывает буферы zap.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
