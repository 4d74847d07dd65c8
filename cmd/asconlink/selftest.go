package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lightpq/asconlink/pkg/bench"
	"github.com/lightpq/asconlink/pkg/protocol"
	"github.com/lightpq/asconlink/pkg/selftest"
)

func runSelftest(logLevel, logFormat string) {
	_, logger, err := setupObservability(logLevel, logFormat, "none")
	if err != nil {
		fatal(err)
	}

	if err := selftest.All(protocol.SupportedKEMProfiles(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "\nSELFTEST FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nAll self-tests passed.")
}

func runCompat(profileName string) {
	prof, err := selectProfile(profileName)
	if err != nil {
		fatal(err)
	}
	if err := prof.Report(os.Stdout); err != nil {
		os.Exit(1)
	}
}

func runBench(profileName string, iterations int, echoDuration time.Duration, chunkSize int) {
	prof, err := selectProfile(profileName)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Running benchmarks (%s, %d iterations)...\n\n", prof.KEMProfile, iterations)

	report, err := bench.Run(bench.Options{
		Profile:      prof.KEMProfile,
		Iterations:   iterations,
		EchoDuration: echoDuration,
		ChunkSize:    chunkSize,
	})
	if err != nil {
		fatal(err)
	}
	report.Write(os.Stdout)
}
