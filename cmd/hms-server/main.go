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

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/chat"
	"github.com/hms/hms/internal/domain/encounter"
	"github.com/hms/hms/internal/domain/lab"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/domain/vitals"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/validate"
	"github.com/hms/hms/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management System API Server",
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
		Short: "Start the HMS API server",
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

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load seed data (lab test catalog, chat FAQs)",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			chatSvc := chat.NewService(chat.NewPgRepository(pool))
			if err := chatSvc.Seed(ctx); err != nil {
				return fmt.Errorf("seed chat faqs: %w", err)
			}
			fmt.Println("Chat FAQs seeded.")

			labSvc := lab.NewService(
				lab.NewPgTestRepository(pool),
				lab.NewPgOrderRepository(pool),
				lab.NewPgResultRepository(pool),
				lab.NewPgReportRepository(pool),
				db.PoolRunner(pool),
			)
			n, err := seedLabCatalog(ctx, labSvc)
			if err != nil {
				return fmt.Errorf("seed lab catalog: %w", err)
			}
			fmt.Printf("Lab catalog seeded (%d tests added).\n", n)
			return nil
		},
	}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

// seedLabCatalog adds a starter test catalog. Tests whose codes already
// exist are skipped.
func seedLabCatalog(ctx context.Context, svc *lab.Service) (int, error) {
	existing, _, err := svc.SearchTests(ctx, nil, 1000, 0)
	if err != nil {
		return 0, err
	}
	byCode := make(map[string]bool, len(existing))
	for _, t := range existing {
		byCode[t.Code] = true
	}

	catalog := []*lab.LabTest{
		{Code: "CBC", Name: "Complete Blood Count", Category: "Hematology", Price: 350, Unit: strPtr("x10^9/L"), NormalRange: strPtr("4.5-11.0"), SpecimenType: strPtr("Whole Blood"), TurnaroundHours: intPtr(4)},
		{Code: "GLU-F", Name: "Glucose Fasting", Category: "Biochemistry", Price: 150, Unit: strPtr("mg/dL"), NormalRange: strPtr("70-110"), SpecimenType: strPtr("Serum"), TurnaroundHours: intPtr(4)},
		{Code: "HBA1C", Name: "Glycated Hemoglobin", Category: "Biochemistry", Price: 550, Unit: strPtr("%"), NormalRange: strPtr("4.0-5.6"), SpecimenType: strPtr("Whole Blood"), TurnaroundHours: intPtr(24)},
		{Code: "LIPID", Name: "Lipid Profile", Category: "Biochemistry", Price: 700, Unit: strPtr("mg/dL"), NormalRange: strPtr("125-200"), SpecimenType: strPtr("Serum"), TurnaroundHours: intPtr(24)},
		{Code: "TSH", Name: "Thyroid Stimulating Hormone", Category: "Endocrinology", Price: 450, Unit: strPtr("mIU/L"), NormalRange: strPtr("0.4-4.0"), SpecimenType: strPtr("Serum"), TurnaroundHours: intPtr(24)},
		{Code: "CREAT", Name: "Serum Creatinine", Category: "Biochemistry", Price: 200, Unit: strPtr("mg/dL"), NormalRange: strPtr("0.6-1.3"), SpecimenType: strPtr("Serum"), TurnaroundHours: intPtr(6)},
		{Code: "UA", Name: "Urinalysis", Category: "Microbiology", Price: 180, SpecimenType: strPtr("Urine"), TurnaroundHours: intPtr(6)},
	}

	added := 0
	for _, t := range catalog {
		if byCode[t.Code] {
			continue
		}
		if err := svc.CreateTest(ctx, t); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

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

	catalogCache := cache.NewNoop()
	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
		} else {
			catalogCache = c
			logger.Info().Msg("connected to redis")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}
	e.Use(middleware.Audit(logger))

	api := e.Group("/api")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Realtime hub
	hub := ws.NewHub()
	ws.NewHandler(hub).RegisterRoutes(api)

	// Shared request validator
	v := validate.New()

	// Repositories
	patientRepo := patient.NewPgPatientRepository(pool)
	doctorRepo := patient.NewPgDoctorRepository(pool)
	encounterRepo := encounter.NewPgRepository(pool)
	apptRepo := scheduling.NewPgRepository(pool)
	billingRepo := billing.NewPgRepository(pool)
	vitalsRepo := vitals.NewPgRepository(pool)
	chatRepo := chat.NewPgRepository(pool)

	txRunner := db.PoolRunner(pool)

	// Services
	patientSvc := patient.NewService(patientRepo, doctorRepo)
	encounterSvc := encounter.NewService(encounterRepo)

	labSvc := lab.NewService(
		lab.NewPgTestRepository(pool),
		lab.NewPgOrderRepository(pool),
		lab.NewPgResultRepository(pool),
		lab.NewPgReportRepository(pool),
		txRunner,
	)
	labSvc.SetEventPublisher(hub)
	labSvc.SetCache(catalogCache)

	billingSvc := billing.NewService(billingRepo, txRunner)
	labSvc.SetInvoiceCreator(billingSvc)
	labSvc.SetDirectory(patientSvc)

	apptSvc := scheduling.NewService(apptRepo, txRunner)
	apptSvc.SetEventPublisher(hub)

	vitalsSvc := vitals.NewService(vitalsRepo)
	chatSvc := chat.NewService(chatRepo)

	// Routes
	patient.NewHandler(patientSvc, v).RegisterRoutes(api)
	encounter.NewHandler(encounterSvc, v).RegisterRoutes(api)
	lab.NewHandler(labSvc, v).RegisterRoutes(api)
	billing.NewHandler(billingSvc, v).RegisterRoutes(api)
	scheduling.NewHandler(apptSvc, v).RegisterRoutes(api)
	vitals.NewHandler(vitalsSvc, v).RegisterRoutes(api)
	chat.NewHandler(chatSvc, v).RegisterRoutes(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}
