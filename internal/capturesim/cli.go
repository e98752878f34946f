package capturesim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/facet/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "capture_sim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the capture simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Facet Capture Simulator
=======================

A concurrent tool for exercising the facet capture and aggregation
endpoints with realistic session traffic.

Usage:
  go run cmd/capture-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -subjects int
        Number of subjects to simulate (default 100)
  -captures int
        Captures submitted per subject session (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated captures (default: generated_captures_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: capture_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/capture-sim/main.go

  # Simulate with custom parameters
  go run cmd/capture-sim/main.go -subjects 500 -captures 50 -workers 16

  # Simulate with verbose output
  go run cmd/capture-sim/main.go -verbose -subjects 50

  # Simulate with custom log file
  go run cmd/capture-sim/main.go -subjects 200 -log my_run.log
`)
}
