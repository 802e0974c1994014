package main

import (
	"os"

	"github.com/yigit/courseenroll/internal/pkg/logger" // Still needed for initial error logging
	"github.com/yigit/courseenroll/internal/server"
)

// @title Course Enrollment API
// @version 1.0
// @description Enroll, drop and schedule views for course offerings

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// NewServer orchestrates config, storage, dependencies and the router
	srv, err := server.NewServer()
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
	os.Exit(0)
}
