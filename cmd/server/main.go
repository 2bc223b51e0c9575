package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/devfolio/internal/handlers"
	"github.com/alimgiray/devfolio/internal/repositories"
	"github.com/alimgiray/devfolio/internal/services"
	"github.com/alimgiray/devfolio/internal/storage"
	"github.com/alimgiray/devfolio/pkg/config"
	"github.com/alimgiray/devfolio/pkg/database"
	"github.com/alimgiray/devfolio/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize avatar storage
	avatarStorage, err := storage.New(context.Background(), storage.Config{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UsePathStyle:    cfg.Storage.UsePathStyle,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize GitHub client
	githubService, err := services.NewGitHubService(services.GitHubConfig{
		APIURL:          cfg.GitHub.APIURL,
		Token:           cfg.GitHub.Token,
		BreakerFailures: cfg.GitHub.BreakerFailures,
	}, &http.Client{Timeout: cfg.GitHub.Timeout})
	if err != nil {
		logger.Fatalf("Failed to initialize GitHub client: %v", err)
	}

	// Initialize dependencies
	profileRepo := repositories.NewProfileRepository(database.DB)
	profileService := services.NewProfileService(githubService, avatarStorage, profileRepo, services.ProfileServiceConfig{
		UpstreamTimeout: cfg.GitHub.Timeout,
		StorageTimeout:  cfg.Storage.Timeout,
		AvatarURLExpiry: cfg.Storage.AvatarURLExpiry,
	})
	exportService := services.NewExportService(profileService)

	// Initialize router
	router := gin.New()
	handlers.SetupRoutes(router, profileService, exportService, database.DB)

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
	logger.Infof("Server stopped")
}
