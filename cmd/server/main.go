// Kebiao 排课求解服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/kebiao/internal/config"
	"github.com/paiban/kebiao/internal/database"
	"github.com/paiban/kebiao/internal/handler"
	"github.com/paiban/kebiao/internal/metrics"
	"github.com/paiban/kebiao/internal/middleware"
	"github.com/paiban/kebiao/internal/repository"
	"github.com/paiban/kebiao/internal/security"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const solvePath = "/api/v1/timetable/solve"

func main() {
	configPath := flag.String("config", os.Getenv("KEBIAO_CONFIG"), "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	pipeline := solver.New(cfg.Solver.Builder())
	checks := map[string]handler.HealthCheck{}

	opts := handler.Options{Metrics: m, MaxBodyBytes: cfg.App.MaxBodyBytes}
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		opts.Store = repository.NewTimetableRunRepository(db)
		checks["database"] = db.Health
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health(cfg.App.Name, Version, checks))
	mux.HandleFunc("GET /version", handler.Version(handler.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}))
	mux.HandleFunc("GET /api/v1/constraints/library", handler.ConstraintLibrary(cfg.Solver.Weights))
	handler.NewTimetableHandler(pipeline, opts).Register(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	// 执行顺序：recovery -> requestID -> logging -> 安全头 -> cors -> auth -> handler
	mws := []middleware.Middleware{
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging(m),
		middleware.SecurityHeaders,
		middleware.CORS,
	}
	if cfg.Auth.Enabled {
		auth := middleware.AuthConfig{
			Keys:      security.NewKeySet(cfg.Auth.APIKeys),
			SkipPaths: []string{"/health", "/version", cfg.Metrics.Path},
		}
		if cfg.Auth.RateLimit > 0 {
			auth.Limiter = security.NewRateLimiter(ctx, cfg.Auth.RateLimit, cfg.Auth.RateWindow)
			auth.LimitedPaths = []string{solvePath}
		}
		mws = append(mws, middleware.Auth(auth))
	}

	// 求解可能持续到时间上限，写超时需要覆盖它
	writeTimeout := cfg.App.WriteTimeout
	if floor := cfg.Solver.TimeLimit + 10*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Bool("auth", cfg.Auth.Enabled).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("服务器启动失败: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	logger.Info().Msg("服务器已关闭")
	return nil
}
