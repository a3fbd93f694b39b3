// File: app/app.go
package app

import (
	"context"
	"go-school-api/config"
	"go-school-api/db"
	"go-school-api/handler"
	"go-school-api/logger"
	"go-school-api/repository"
	"go-school-api/router"
	"go-school-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(); err != nil {
		logger.Log.Fatalf("Error running database migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	// Repositories, services and handlers are constructed here and passed
	// down explicitly; no package-level store handles.
	schoolRepo := repository.NewSchoolRepository(database)
	studentRepo := repository.NewStudentRepository(database)
	tokenRepo := repository.NewTokenRepository(database)

	tokenService := service.NewTokenService()
	principalCache := service.NewPrincipalCache(redisClient)
	authService := service.NewAuthService(database, schoolRepo, studentRepo, tokenRepo, tokenService, principalCache)

	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := handler.NewAuthMiddleware(tokenService, schoolRepo, studentRepo, principalCache)

	r := router.NewRouter(authHandler, authMiddleware)

	// --- Background Housekeeping ---
	// Refresh records are never deleted on use; aged-out rows are purged here.
	stopPurge := make(chan struct{})
	go runTokenPurge(tokenRepo, stopPurge)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
	close(stopPurge)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// runTokenPurge deletes refresh records that expired longer than the
// configured retention ago. Correctness never depends on it; replay
// detection only needs records for as long as they are retained.
func runTokenPurge(tokenRepo repository.ITokenRepository, stop <-chan struct{}) {
	retention := time.Duration(config.AppConfig.Session.PurgeAfterDays) * 24 * time.Hour

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := tokenRepo.PurgeStaleBefore(time.Now().Add(-retention))
			if err != nil {
				logger.Log.WithError(err).Error("Refresh token purge failed")
				continue
			}
			if purged > 0 {
				logger.Log.WithField("purged", purged).Info("Purged stale refresh tokens")
			}
		case <-stop:
			return
		}
	}
}
