package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"quiz-api/internal/auth"
	"quiz-api/internal/config"
	"quiz-api/internal/server"
	"quiz-api/pkg/cache"
	"quiz-api/pkg/websocket"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate, bootstrap users and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func newAuthService(db *gorm.DB, cfg config.Config) *auth.Service {
	expiry := config.TTLDuration(cfg.Auth.TokenExpiry, auth.DefaultTokenExpiry)
	return auth.NewService(auth.NewRepository(db), cfg.Auth.Secret, expiry)
}

// setupLogging copies the standard logger to path as well as stderr.
func setupLogging(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// bootstrapUsers makes sure the configured admin and test accounts exist with their configured passwords.
func bootstrapUsers(ctx context.Context, service *auth.Service, cfg config.Config) error {
	accounts := []struct {
		user  config.User
		admin bool
	}{
		{cfg.Auth.Admin, true},
		{cfg.Auth.TestUser, false},
	}
	for _, a := range accounts {
		if a.user.Username == "" {
			continue
		}
		if _, err := service.EnsureUser(ctx, a.user.Username, a.user.Password, a.admin); err != nil {
			return err
		}
	}
	return nil
}

// connectRedis returns nil when Redis is not configured or does not answer.
func connectRedis(ctx context.Context, cfg config.Config) *cache.RedisCache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rc := cache.NewRedisCache(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Printf("redis %s unavailable, running without cache: %v", cfg.Redis.Addr, err)
		client.Close()
		return nil
	}
	return rc
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer closeLog()
	for _, warning := range cfg.InsecureDefaults() {
		log.Printf("WARNING: %s", warning)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	authService := newAuthService(db, cfg)
	if err := bootstrapUsers(ctx, authService, cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(authService.Authorizer())
	go hub.Run(ctx)

	deps := server.Deps{
		DB:             db,
		Auth:           authService,
		Hub:            hub,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if rc := connectRedis(ctx, cfg); rc != nil {
		deps.Cache = rc
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting quiz api on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	timeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 15*time.Second)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("server shutdown gracefully")
	return nil
}
