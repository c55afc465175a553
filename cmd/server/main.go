package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schedulix/backend/config"
	"schedulix/backend/internal/api/handler"
	"schedulix/backend/internal/api/router"
	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/database"
	"schedulix/backend/pkg/jwt"
	applogger "schedulix/backend/pkg/logger"
	"schedulix/backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "schedulix",
		Short:        "Multi-tenant appointment scheduling API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) migrate() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return database.RunMigrations(sqlDB, a.logger)
}

// ────────────────────── serve ──────────────────────

func serveCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if !skipMigrations {
				if err := a.migrate(); err != nil {
					a.logger.Error("database migration failed", zap.Error(err))
					return err
				}
			}
			return runServer(a)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func runServer(a *app) error {
	cfg, logger := a.cfg, a.logger
	logger.Info("starting schedulix",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("log_level", cfg.Log.Level),
	)

	// Redis is optional: revocation, the tenant status cache, rate limiting
	// and events degrade to no-ops without it.
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running degraded", zap.Error(err))
		rdb = nil
	}

	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(a.db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)
	h := handler.NewHandler(svc, cfg.Server.IsDevelopment())

	deps := router.Deps{
		JWT:     jwtMgr,
		Tenants: svc.Tenant,
		Checks: map[string]handler.Pinger{
			"database": func(ctx context.Context) error { return database.Ping(ctx, a.db) },
		},
	}
	if rdb != nil {
		deps.Tokens, deps.Limiter = rdb, rdb
		deps.Checks["redis"] = rdb.Ping
		defer rdb.Close()
	}

	engine := router.Setup(cfg, h, deps, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// ────────────────────── migrate ──────────────────────

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

// ────────────────────── tenant ──────────────────────

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage organizations",
	}

	var req dto.RegisterCompanyRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an organization and its first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if req.AdminName == "" {
				req.AdminName = req.CompanyName + " Admin"
			}

			repo := repository.NewRepository(a.db)
			jwtMgr := jwt.NewManager(&a.cfg.Auth)
			svc := service.NewTenantService(a.cfg, repo, jwtMgr, nil, a.logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			resp, err := svc.Register(ctx, &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created tenant %s (%s), admin %s\n",
				resp.Tenant.ID, resp.Tenant.Slug, resp.Token.User.Email)
			return nil
		},
	}
	create.Flags().StringVar(&req.CompanyName, "name", "", "organization name")
	create.Flags().StringVar(&req.Slug, "slug", "", "unique organization slug")
	create.Flags().StringVar(&req.AdminName, "admin-name", "", "admin display name")
	create.Flags().StringVar(&req.AdminEmail, "admin-email", "", "admin email")
	create.Flags().StringVar(&req.AdminPassword, "admin-password", "", "admin password")
	create.Flags().StringVar(&req.Timezone, "timezone", "UTC", "IANA timezone of the organization")
	for _, f := range []string{"name", "slug", "admin-email", "admin-password"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}
