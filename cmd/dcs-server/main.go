package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dcs/dcs/internal/config"
	"github.com/dcs/dcs/internal/domain/identity"
	"github.com/dcs/dcs/internal/domain/labassignment"
	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/internal/domain/sample"
	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/internal/domain/testresult"
	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/internal/platform/db"
	"github.com/dcs/dcs/internal/platform/middleware"
	"github.com/dcs/dcs/internal/platform/reporting"
	"github.com/dcs/dcs/internal/platform/sandbox"
	"github.com/dcs/dcs/internal/platform/webhook"
	"github.com/dcs/dcs/pkg/apperror"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dcs-server",
		Short: "Doping Control System API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				applied := "-"
				if s.AppliedAt != nil {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, applied)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the deterministic demo dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
			identitySvc := identity.NewService(identity.NewPgRepository(pool), issuer, logger)

			seeder := sandbox.NewSeeder(
				registry.NewFederationRepo(pool),
				registry.NewClubRepo(pool),
				registry.NewAthleteRepo(pool),
				registry.NewLabRepo(pool),
				identitySvc,
				testorder.NewPgRepository(pool),
				sample.NewPgRepository(pool),
				labassignment.NewPgRepository(pool),
				testresult.NewPgRepository(pool),
				logger,
			)
			return seeder.Run(ctx)
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN_CBF account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
			svc := identity.NewService(identity.NewPgRepository(pool), issuer, logger)

			u, err := svc.CreateUser(ctx, identity.CreateUserInput{
				Email:    email,
				FullName: name,
				Role:     auth.RoleAdmin,
				Password: password,
			})
			if err != nil {
				if apperror.IsConflict(err) {
					return fmt.Errorf("a user with email %s already exists", email)
				}
				return err
			}
			fmt.Printf("Created admin %s (%s).\n", u.Email, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Admin email")
	createCmd.Flags().String("password", "", "Admin password")
	createCmd.Flags().String("name", "Administrador", "Admin full name")
	cmd.AddCommand(createCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.ErrorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware(cfg.JWTSecret, "/health", "/api/v1/auth/login"))
	}

	// Repositories
	federationRepo := registry.NewFederationRepo(pool)
	clubRepo := registry.NewClubRepo(pool)
	athleteRepo := registry.NewAthleteRepo(pool)
	labRepo := registry.NewLabRepo(pool)
	userRepo := identity.NewPgRepository(pool)
	orderRepo := testorder.NewPgRepository(pool)
	sampleRepo := sample.NewPgRepository(pool)
	assignmentRepo := labassignment.NewPgRepository(pool)
	resultRepo := testresult.NewPgRepository(pool)

	// Webhook dispatch doubles as the result event sink.
	webhookMgr := webhook.NewManager(webhook.NewPgStore(pool), logger,
		webhook.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.WebhookTimeoutSecs) * time.Second}))

	// Services
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	identitySvc := identity.NewService(userRepo, issuer, logger)
	registrySvc := registry.NewService(federationRepo, clubRepo, athleteRepo, labRepo)
	orderSvc := testorder.NewService(orderRepo, federationRepo, cfg.StrictTransitions)
	sampleSvc := sample.NewService(sampleRepo, orderRepo, cfg.StrictTransitions)
	assignmentSvc := labassignment.NewService(assignmentRepo, orderRepo, labRepo, cfg.StrictTransitions)
	resultSvc := testresult.NewService(resultRepo, sampleRepo, labRepo, orderRepo, registrySvc, webhookMgr)

	if err := identitySvc.EnsureInitialAdmin(ctx, cfg.BootstrapAdminMail, cfg.BootstrapAdminPass); err != nil {
		logger.Fatal().Err(err).Msg("bootstrap admin failed")
	}

	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterPublicRoutes(apiV1)
	identityHandler.RegisterRoutes(apiV1)
	registry.NewHandler(registrySvc).RegisterRoutes(apiV1)
	testorder.NewHandler(orderSvc).RegisterRoutes(apiV1)
	sample.NewHandler(sampleSvc).RegisterRoutes(apiV1)
	labassignment.NewHandler(assignmentSvc).RegisterRoutes(apiV1)
	testresult.NewHandler(resultSvc, reporting.NewRenderer()).RegisterRoutes(apiV1)
	webhook.NewHandler(webhookMgr).RegisterRoutes(apiV1)
	reporting.NewHandler(pool).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	webhookMgr.Wait()
	logger.Info().Msg("server stopped")
	return nil
}
