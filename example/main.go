package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WarrickSmith/raceday"
	"github.com/WarrickSmith/raceday/example/mockapi"
)

func main() {
	// start mock racing API (see mockapi)
	go mockapi.Start(":9999")
	time.Sleep(100 * time.Millisecond)

	// one feed per meeting from a single template declaration
	feeds, err := raceday.NewFeedSet("TAB",
		"http://localhost:9999/meetings/{{.meeting}}/card",
		[]string{"NZ-AUK", "NZ-CHC"},
		raceday.WithProbe(raceday.FreshnessProbe("generated_at", 90*time.Second)),
	)
	if err != nil {
		slog.Error("failed to create feed set", "error", err)
		os.Exit(1)
	}

	dataDir, err := os.MkdirTemp("", "raceday-example")
	if err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dataDir)

	// start the dashboard
	board, err := raceday.New(
		raceday.WithFeeds(feeds...),
		raceday.WithPollingInterval(5*time.Second),
		raceday.WithPort(8080),
		raceday.WithDataDir(dataDir),
		raceday.WithUpstream("http://localhost:9999"),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   raceday Demo                                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Feeds:                                              ║")
	fmt.Println("  ║   • 2 mock meetings (7 races, 2-minute cycle)         ║")
	fmt.Println("  ║   • race contexts load from the mock upstream         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("raceday error", "error", err)
		os.Exit(1)
	}
}
