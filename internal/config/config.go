// Package config 提供配置管理
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/scheduler/builder"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

// EnvPrefix 环境变量前缀，例如 KEBIAO_SOLVER_TIME_LIMIT=60s
const EnvPrefix = "KEBIAO"

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name         string        `mapstructure:"name"`
	Env          string        `mapstructure:"env"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 数据库配置；未启用时求解记录不落库
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// Logger 转换为日志器配置
func (c LogConfig) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Output = c.Output
	cfg.FilePath = c.FilePath
	return cfg
}

// SolverConfig 求解配置；软约束权重为 0 时关闭对应模块
type SolverConfig struct {
	TimeLimit time.Duration   `mapstructure:"time_limit"`
	Workers   int             `mapstructure:"workers"`
	Weights   builtin.Weights `mapstructure:"weights"`
}

// Builder 转换为建模配置
func (c SolverConfig) Builder() builder.Config {
	cfg := builder.DefaultConfig()
	cfg.TimeLimit = c.TimeLimit
	cfg.Workers = c.Workers
	cfg.Weights = c.Weights
	return cfg
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig API认证配置；RateLimit 限制每个密钥在窗口内的求解次数，0 表示不限
type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKeys    []string      `mapstructure:"api_keys"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// Load 加载配置，优先级：环境变量 > 配置文件 > 默认值
// path 为空时只读取环境变量；当前目录的 .env 文件会先载入环境
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kebiao")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 7012)
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 5*time.Minute)
	v.SetDefault("app.max_body_bytes", int64(10<<20))

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "kebiao")
	v.SetDefault("database.user", "kebiao")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")

	w := builtin.DefaultWeights()
	v.SetDefault("solver.time_limit", 30*time.Second)
	v.SetDefault("solver.workers", 4)
	v.SetDefault("solver.weights.teacher_gap", w.TeacherGap)
	v.SetDefault("solver.weights.class_gap", w.ClassGap)
	v.SetDefault("solver.weights.daily_balance", w.DailyBalance)
	v.SetDefault("solver.weights.teacher_overload", w.TeacherOverload)
	v.SetDefault("solver.weights.lesson_spread", w.LessonSpread)
	v.SetDefault("solver.weights.max_consecutive", w.MaxConsecutive)
	v.SetDefault("solver.weights.preferred_room", w.PreferredRoom)
	v.SetDefault("solver.weights.avoided_period", w.AvoidedPeriod)
	v.SetDefault("solver.weights.fragmentation", w.Fragmentation)
	v.SetDefault("solver.weights.late_finish", w.LateFinish)
	v.SetDefault("solver.weights.room_consistency", w.RoomConsistency)
	v.SetDefault("solver.weights.even_distribution", w.EvenDistribution)
	v.SetDefault("solver.weights.class_overload", w.ClassOverload)
	v.SetDefault("solver.weights.class_daily_max", w.ClassDailyMax)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.rate_limit", 10)
	v.SetDefault("auth.rate_window", time.Minute)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.App.Port < 1 || c.App.Port > 65535 {
		return fmt.Errorf("端口无效: %d", c.App.Port)
	}
	if c.Solver.TimeLimit <= 0 {
		return fmt.Errorf("求解时限必须大于 0，实际 %v", c.Solver.TimeLimit)
	}
	if c.Solver.Workers < 1 {
		return fmt.Errorf("求解工作协程数必须至少为 1，实际 %d", c.Solver.Workers)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("日志格式无效: %s，必须为 console 或 json", c.Log.Format)
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("启用认证时至少需要配置一个API密钥")
	}
	if c.Auth.RateLimit > 0 && c.Auth.RateWindow <= 0 {
		return fmt.Errorf("频率限制窗口必须大于 0，实际 %v", c.Auth.RateWindow)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
