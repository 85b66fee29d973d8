package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codequest/internal/api"
	"codequest/internal/app/service"
	"codequest/internal/common/security"
	"codequest/internal/domain/repository"
	"codequest/internal/platform/cache"
	"codequest/internal/platform/config"
	"codequest/internal/platform/database"
	"codequest/internal/platform/runner"
)

func main() {
	config.Load()
	security.InitJWT()

	database.Connect()
	defer database.Close()

	cache.ConnectRedis()
	defer cache.CloseRedis()

	// Repositories
	exerciseRepo := repository.NewPgExerciseRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	userRepo := repository.NewPgUserRepository(database.DB)
	progressionRepo := repository.NewPgProgressionRepository(database.DB)
	badgeRepo := repository.NewPgBadgeRepository(database.DB)

	// Services
	runnerClient := runner.NewClient(
		config.AppConfig.RunnerURL,
		config.AppConfig.RunnerAPIKey,
		config.AppConfig.RunnerTimeout,
	)
	validationService := service.NewValidationService(exerciseRepo, runnerClient)
	rankingService := service.NewRankingService(submissionRepo, exerciseRepo, badgeRepo, cache.RDB)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		exerciseRepo,
		userRepo,
		progressionRepo,
		badgeRepo,
		validationService,
		rankingService,
	)

	router := api.NewRouter(submissionService, rankingService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", config.AppConfig.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully.")
}
