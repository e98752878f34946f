// Command capture-sim floods a running facet service with simulated
// capture sessions and verifies the aggregates it reports.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/facet/internal/capturesim"
)

// Default configuration constants.
const (
	defaultNumSubjects        = 100
	defaultCapturesPerSubject = 20
	defaultWorkers            = 2 // multiplier for runtime.NumCPU()
	defaultTimeout            = 30 * time.Second
	defaultRunTimeout         = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numSubjects = flag.Int("subjects", defaultNumSubjects, "Number of subjects to simulate")
		captures    = flag.Int("captures", defaultCapturesPerSubject, "Captures submitted per subject session")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated captures (default: generated_captures_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for simulation output (default: capture_sim_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		capturesim.ShowHelp()
		return
	}

	// Setup logging
	if err := capturesim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &capturesim.Config{
		BaseURL:            *baseURL,
		NumSubjects:        *numSubjects,
		CapturesPerSubject: *captures,
		Workers:            *workers,
		Timeout:            *timeout,
		OutputFile:         *outputFile,
		LogFile:            *logFile,
		Verbose:            *verbose,
	}

	// Run the simulation
	if err := capturesim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
