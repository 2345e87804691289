// Package logger настраивает zap с ротацией файлов через lumberjack
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config настройки логирования
type Config struct {
	Level      string
	OutputPath string // пусто: логи отключены
	MaxSize    int    // мегабайты
	MaxBackups int
	MaxAge     int // дни
	Compress   bool
}

// ParseLevel переводит имя уровня в zapcore.Level; неизвестное имя дает info
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New создает логгер, пишущий JSON в файл с ротацией. Вывод в терминал
// не используется, чтобы не портить экран TUI.
func New(config Config) (*zap.Logger, error) {
	if config.OutputPath == "" {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога логов: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   config.OutputPath,
		MaxSize:    orDefault(config.MaxSize, 10),
		MaxBackups: orDefault(config.MaxBackups, 3),
		MaxAge:     orDefault(config.MaxAge, 28),
		Compress:   config.Compress,
	}

	return NewWithWriter(writer, ParseLevel(config.Level)), nil
}

// NewWithWriter создает JSON логгер поверх произвольного writer
func NewWithWriter(w io.Writer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
