package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Avii12105/medlab/internal/config"
	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/domain/patient"
	"github.com/Avii12105/medlab/internal/domain/report"
	"github.com/Avii12105/medlab/internal/platform/auth"
	"github.com/Avii12105/medlab/internal/platform/db"
	"github.com/Avii12105/medlab/internal/platform/middleware"
)

// devSigningKey signs tokens in development when JWT_SECRET is unset.
const devSigningKey = "medlab-development-only-signing-key"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "medlab-server",
		Short:        "Laboratory report service",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), userCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	m, err := db.NewMigrator(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(ctx, m)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				if err := m.Up(ctx); err != nil {
					return err
				}
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d.\n", v)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Down(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Status(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	})

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with the given role",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key, err := signingKey(cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.StoreTimeout)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := auth.NewService(auth.NewUserRepoPG(pool), auth.NewTokenIssuer(key, cfg.JWTIssuer, cfg.JWTTTL))
			u, err := svc.CreateUser(ctx, username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s).\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name (at least 3 characters)")
	createCmd.Flags().String("password", "", "Password (at least 6 characters)")
	createCmd.Flags().String("role", auth.RoleStaff, "Role: admin or staff")

	cmd.AddCommand(createCmd)
	return cmd
}

// signingKey returns the HS256 key for session tokens. Development falls
// back to a fixed key; every other environment must configure one.
func signingKey(cfg *config.Config) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	if cfg.IsDev() {
		return []byte(devSigningKey), nil
	}
	return nil, fmt.Errorf("JWT_SECRET is required when ENV=%q", cfg.Env)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newEcho builds the server with the global middleware chain and the
// unauthenticated health check.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	return e
}

// apiGroup mounts /api behind authentication and per-caller rate limiting.
func apiGroup(e *echo.Echo, cfg *config.Config, jwtCfg auth.JWTConfig) *echo.Group {
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}

	return e.Group("/api", authMW, middleware.RateLimit(rl))
}

func registerDomains(api *echo.Group, pool *pgxpool.Pool, tokens *auth.TokenIssuer, logger zerolog.Logger) {
	reportRepo := report.NewRepoPG(pool)

	patientSvc := patient.NewService(patient.NewRepoPG(pool), reportRepo)
	catalogSvc := catalog.NewService(catalog.NewCategoryRepoPG(pool), catalog.NewTestRepoPG(pool))

	assembler := report.NewAssembler(reportRepo, patientSvc, catalogSvc, db.NewTxRunner(pool), report.NewClock())
	lifecycle := report.NewLifecycle(assembler, logger.With().Str("component", "report").Logger())

	auth.NewHandler(auth.NewService(auth.NewUserRepoPG(pool), tokens)).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	report.NewHandler(lifecycle).RegisterRoutes(api)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	key, err := signingKey(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.StoreTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	tokens := auth.NewTokenIssuer(key, cfg.JWTIssuer, cfg.JWTTTL)

	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))
	registerDomains(apiGroup(e, cfg, tokens.Config()), pool, tokens, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
