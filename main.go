package main

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/auth"
	"github.com/mealvita-inc/mealvita-engine/pkg/config"
	"github.com/mealvita-inc/mealvita-engine/pkg/database"
	"github.com/mealvita-inc/mealvita-engine/pkg/handlers"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
	"github.com/mealvita-inc/mealvita-engine/pkg/middleware"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
	"github.com/mealvita-inc/mealvita-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Database))

	if cfg.SessionKey == "" {
		logger.Fatal("SESSION_KEY must be set")
	}
	auth.InitSessionStore(cfg.SessionKey)

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.ConnectionString(),
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("dsn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	logger.Info("Connected to PostgreSQL",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Int32("max_connections", cfg.Database.MaxConnections))

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	exclusions, err := services.LoadExclusionMap(cfg.Planner.ExclusionMapPath)
	if err != nil {
		logger.Fatal("Failed to load exclusion map", zap.Error(err))
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Repositories
	patientRepo := repositories.NewPatientRepository()
	catalogRepo := repositories.NewCatalogRepository()
	recipeRepo := repositories.NewRecipeRepository()
	planRepo := repositories.NewMealPlanRepository()
	invitationRepo := repositories.NewInvitationRepository()

	// Services
	resolver := services.NewRestrictionResolver(catalogRepo, exclusions, logger)
	allocator := services.NewWeekAllocator(rand.New(rand.NewSource(time.Now().UnixNano())))
	planService := services.NewMealPlanService(planRepo, patientRepo, recipeRepo, resolver, allocator, logger)
	versioningService := services.NewVersioningService(planRepo, logger)
	invitationService := services.NewInvitationService(invitationRepo, logger)
	patientService := services.NewPatientService(patientRepo, invitationService, planService, logger)

	sweeper := services.NewInvitationSweeper(db, invitationService, logger)
	sweeper.Start()
	defer sweeper.Stop()

	mux := http.NewServeMux()
	scope := handlers.ScopeMiddleware(database.WithRequestScope(db, logger))

	handlers.NewHealthHandler(cfg, db, exclusions, logger).RegisterRoutes(mux)
	handlers.NewInvitationsHandler(invitationService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewPatientsHandler(patientService, invitationService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewMealPlansHandler(planService, versioningService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewPublicPlansHandler(planService, logger).RegisterRoutes(mux, scope)
	handlers.NewCatalogHandler(catalogRepo, recipeRepo, logger).RegisterRoutes(mux, authMiddleware, scope)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting mealvita-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	if cfg.TLSCertPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, handler)
	} else {
		err = http.ListenAndServe(addr, handler)
	}
	if err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}
