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
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/clinic"
	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/referral"
	"github.com/clinicore/clinicore/internal/domain/session"
	"github.com/clinicore/clinicore/internal/domain/staff"
	"github.com/clinicore/clinicore/internal/domain/user"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/middleware"
	"github.com/clinicore/clinicore/internal/platform/notification"
	"github.com/clinicore/clinicore/internal/platform/otp"
	"github.com/clinicore/clinicore/internal/platform/token"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Multi-tenant clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
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
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedCmd bootstraps the platform owner account. Every other account is
// created through the API; this one has to exist first.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed bootstrap data",
	}

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create the platform owner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if name == "" {
				name = "Platform Owner"
			}

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

			users := user.NewRepo(pool)
			normalized := user.NormalizeEmail(email)
			if _, err := users.GetByEmail(ctx, normalized); err == nil {
				return fmt.Errorf("account %s already exists", normalized)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
			if err != nil {
				return err
			}
			owner := &user.User{
				Name:         name,
				Email:        normalized,
				PasswordHash: string(hash),
				Role:         auth.RoleSuperMasterAdmin,
				IsActive:     true,
				IsVerified:   true,
			}
			if err := users.Create(ctx, owner); err != nil {
				return err
			}
			fmt.Printf("Created platform owner %s (%s)\n", owner.Name, owner.Email)
			return nil
		},
	}
	adminCmd.Flags().String("name", "", "Display name")
	adminCmd.Flags().String("email", "", "Login email")
	adminCmd.Flags().String("password", "", "Initial password")
	cmd.AddCommand(adminCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Outbound mail. Without SMTP settings codes land in the log, which is
	// what local development wants anyway.
	var sender notification.EmailSender
	if cfg.SMTPHost != "" {
		smtp := notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, logger)
		sender = notification.NewQueue(smtp, logger)
		logger.Info().Str("host", cfg.SMTPHost).Msg("smtp sender configured")
	} else {
		sender = &notification.LogSender{Logger: logger}
		logger.Warn().Msg("SMTP not configured, codes will be logged instead of mailed")
	}
	defer sender.Close()
	mailer := notification.NewMailer(sender, logger)

	// Repositories
	userRepo := user.NewRepo(pool)
	clinicRepo := clinic.NewRepo(pool)
	sessionRepo := session.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	appointmentRepo := appointment.NewRepo(pool)
	billingRepo := billing.NewRepo(pool)
	referralRepo := referral.NewRepo(pool)

	// Services
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL())
	codes := otp.NewEngine(cfg.OTPRegisterTTL(), cfg.OTPLoginTTL(), cfg.OTPResetTTL())
	tracker := session.NewTracker(sessionRepo, logger)
	clinicSvc := clinic.NewService(clinicRepo, cfg.BcryptCost).WithTxRunner(
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		})
	identitySvc := identity.NewService(userRepo, clinicSvc, codes, issuer, mailer, tracker,
		identity.Options{BcryptCost: cfg.BcryptCost, DevEcho: cfg.IsDev()}, logger)
	staffSvc := staff.NewService(userRepo, cfg.BcryptCost)
	patientSvc := patient.NewService(patientRepo)
	appointmentSvc := appointment.NewService(appointmentRepo)
	billingSvc := billing.NewService(billingRepo)
	referralSvc := referral.NewService(referralRepo)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	e.GET("/health", db.HealthHandler(pool))

	// The public group carries registration, login and password reset. The
	// api group requires a bearer token resolved against current records, so
	// deactivation and clinic expiry take effect on the next request.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(rateLimitCfg))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(auth.Middleware(issuer, identitySvc))
	api.Use(middleware.Audit(logger))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	clinic.NewHandler(clinicSvc).RegisterRoutes(api)
	staff.NewHandler(staffSvc).RegisterRoutes(api)
	session.NewHandler(tracker).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	referral.NewHandler(referralSvc).RegisterRoutes(api)

	// Background renewal reminders
	reminderCtx, stopReminder := context.WithCancel(ctx)
	defer stopReminder()
	go clinic.NewReminder(clinicSvc, mailer, logger).Run(reminderCtx)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
