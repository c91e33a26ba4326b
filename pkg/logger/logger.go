// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	runIDKey     ctxKey = "run_id"
)

// ContextWithRequestID 在上下文中附加请求ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithRunID 在上下文中附加求解运行ID
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RequestIDFromContext 读取请求ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithComponent 创建带组件名的日志器
func WithComponent(name string) *zerolog.Logger {
	l := Get().With().Str("component", name).Logger()
	return &l
}

// SolverLogger 排课求解专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建求解日志器
func NewSolverLogger(runID string) *SolverLogger {
	l := Get().With().Str("component", "solver").Str("run_id", runID).Logger()
	return &SolverLogger{base: &l}
}

// StartBuild 记录建模开始
func (l *SolverLogger) StartBuild(teachers, classes, rooms, lessons, occurrences int) {
	l.base.Info().
		Int("teachers", teachers).
		Int("classes", classes).
		Int("rooms", rooms).
		Int("lessons", lessons).
		Int("occurrences", occurrences).
		Msg("开始构建排课模型")
}

// ModelBuilt 记录模型规模
func (l *SolverLogger) ModelBuilt(variables, constraints, penalties int, elapsed time.Duration) {
	l.base.Info().
		Int("variables", variables).
		Int("constraints", constraints).
		Int("penalty_terms", penalties).
		Dur("elapsed", elapsed).
		Msg("排课模型构建完成")
}

// PreSolveInfeasible 记录求解前发现的不可行原因
func (l *SolverLogger) PreSolveInfeasible(kind, entityType, entityID, message string) {
	l.base.Warn().
		Str("kind", kind).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("details", message).
		Msg("求解前检测到不可行")
}

// Improved 记录更优解
func (l *SolverLogger) Improved(worker int, objective int64, elapsed time.Duration) {
	l.base.Debug().
		Int("worker", worker).
		Int64("objective", objective).
		Dur("elapsed", elapsed).
		Msg("找到更优解")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(status string, duration time.Duration, penalty int64) {
	l.base.Info().
		Str("status", status).
		Dur("duration", duration).
		Int64("total_penalty", penalty).
		Msg("排课求解完成")
}

// ConstraintViolation 记录硬约束违反
func (l *SolverLogger) ConstraintViolation(module, key, message string) {
	l.base.Warn().
		Str("module", module).
		Str("key", key).
		Str("message", message).
		Msg("硬约束违反")
}
