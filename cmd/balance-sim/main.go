// Package main runs the offline balance simulation, or wipes a save slot with --reset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	_ "github.com/MRamiBalles/BeerClicker/server/internal/infra/cache"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/sim"
)

func main() {
	def := sim.DefaultConfig()
	duration := flag.Duration("duration", def.Duration, "Simulated play time")
	cps := flag.Int("cps", def.ClicksPerSecond, "Clicks per simulated second")
	bonus := flag.Bool("bonus", def.ClaimBonus, "Claim the bonus whenever it is ready")
	buy := flag.Bool("buy", def.Buy, "Buy the cheapest affordable upgrade every second")
	output := flag.String("output", "", "Write the report as JSON to this file")
	verbose := flag.Bool("v", false, "Log engine activity")
	reset := flag.Bool("reset", false, "Reset the configured save slot instead of simulating")
	configPath := flag.String("config", "", "YAML config used by --reset")
	flag.Parse()

	ctx := context.Background()

	if *reset {
		os.Exit(resetSlot(ctx, *configPath))
	}

	fmt.Println("BEER CLICKER - BALANCE SIMULATION")
	fmt.Println("=================================")

	log := logger.Discard()
	if *verbose {
		log = logger.NewLogger()
	}

	started := time.Now()
	report, err := sim.Run(ctx, sim.Config{
		Duration:        *duration,
		ClicksPerSecond: *cps,
		ClaimBonus:      *bonus,
		Buy:             *buy,
		Start:           def.Start,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(2)
	}

	report.Print(os.Stdout)
	fmt.Printf("Simulated %s in %s\n", report.Duration, time.Since(started).Round(time.Millisecond))

	if *output != "" {
		data, _ := json.MarshalIndent(report, "", "  ")
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *output, err)
		} else {
			fmt.Printf("Results saved to: %s\n", *output)
		}
	}

	if !report.Passed() {
		os.Exit(1)
	}
}

// resetSlot asks for confirmation on the terminal and clears the configured slot.
func resetSlot(ctx context.Context, configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	log := logger.NewLogger()

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		return 2
	}
	defer backend.Close()

	eng := engine.New(engine.Deps{
		Config:   cfg.Engine,
		SlotKey:  cfg.Storage.SlotKey,
		Store:    backend.Slots,
		Notifier: notify.LogNotifier{Logger: log},
		Logger:   log,
	})
	eng.Load(ctx)

	done, err := eng.Reset(ctx, notify.PromptConfirmer{In: os.Stdin, Out: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "reset: %v\n", err)
		return 1
	}
	if !done {
		fmt.Println("Nothing changed.")
		return 0
	}
	fmt.Printf("Slot %q on %s reset.\n", cfg.Storage.SlotKey, backend.Driver)
	return 0
}
