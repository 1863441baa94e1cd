package utils

import (
	"strings"

	"go.uber.org/zap"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Режим: dev (консольный вывод) или prod (json)
	Mode string
}

// Logger is a thin wrapper over zap's sugared logger with key/value methods.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// InitLogger инициализирует и возвращает логгер
func InitLogger(config ...LoggerConfig) (*Logger, error) {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	var zcfg zap.Config
	switch strings.ToLower(cfg.Mode) {
	case "prod", "production":
		zcfg = zap.NewProductionConfig()
	default:
		zcfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar().Named("coursehub")}, nil
}

// NopLogger discards everything; used by tests and optional collaborators.
func NopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
