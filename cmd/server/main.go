package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/talentcrm/internal/config"
	"github.com/rpattn/talentcrm/internal/db"
	"github.com/rpattn/talentcrm/internal/export"
	"github.com/rpattn/talentcrm/internal/history"
	"github.com/rpattn/talentcrm/internal/ingestion"
	"github.com/rpattn/talentcrm/internal/middleware"
	"github.com/rpattn/talentcrm/internal/repository"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env before viper reads the environment
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	dbConfig, err := config.LoadDBConfig(".")
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	serverConfig, err := config.LoadServerConfig(".")
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn.Pool, serverConfig.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	eventRepo := repository.NewChangeEventRepository(conn.Pool)
	profileRepo := repository.NewUserProfileRepository(conn.Pool)
	importJobRepo := repository.NewImportJobRepository(conn.Pool)
	importLogRepo := repository.NewImportLogRepository(conn.Pool)
	exportJobRepo := repository.NewExportJobRepository(conn.Pool)
	entityRowRepo := repository.NewEntityRowRepository(conn.Pool)

	// Create services
	historyService := history.NewService(eventRepo, profileRepo)
	importService := ingestion.NewService(importJobRepo, importLogRepo, entityRowRepo, historyService)
	exportService := export.NewService(
		exportJobRepo,
		entityRowRepo,
		export.WithExportDirectory(serverConfig.ExportDirectory),
		export.WithPageSize(serverConfig.ExportPageSize),
	)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.LoggingMiddleware(middleware.AuthContextMiddleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/imports", wrap(ingestion.NewHTTPHandler(importService)))
	mux.Handle("/imports/", wrap(ingestion.NewHTTPHandler(importService)))
	mux.Handle("/exports", wrap(export.NewHTTPHandler(exportService)))
	mux.Handle("/exports/", wrap(export.NewHTTPHandler(exportService)))
	mux.Handle("/history", wrap(history.NewHTTPHandler(historyService)))

	// Create HTTP server
	server := &http.Server{
		Addr:         serverConfig.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", serverConfig.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let in-flight import and export workers finish before closing the pool
	importService.Wait()
	exportService.Wait()

	log.Println("Server exited")
}
