package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"lp-hedge-bot/internal/app"
	"lp-hedge-bot/internal/config"
	"lp-hedge-bot/internal/logging"
	"lp-hedge-bot/internal/state"
	"lp-hedge-bot/internal/state/sqlite"
	"lp-hedge-bot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	live := flag.Bool("live", false, "read both venues instead of the last persisted cycle")
	asJSON := flag.Bool("json", false, "print the snapshot as JSON")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if *live {
		printLive(cfg, *asJSON)
		return
	}
	printStored(cfg, *asJSON)
}

func printStored(cfg *config.Config, asJSON bool) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record, ok, err := state.LoadLastCycle(ctx, store)
	if err != nil {
		fatal(err)
	}
	if !ok {
		fatal(fmt.Errorf("no cycle recorded yet in %s", cfg.State.SQLitePath))
	}
	if asJSON {
		printJSON(record)
		return
	}
	at := time.UnixMilli(record.CompletedAtMS).UTC().Format(time.RFC3339)
	fmt.Printf("last cycle: %s (action: %s)\n", at, record.Action)
	fmt.Println(strategy.Report(record.Snapshot, cfg.Strategy.BaseLabel))
}

func printLive(cfg *config.Config, asJSON bool) {
	log := logging.New(cfg.Log)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		fatal(err)
	}
	snap, err := application.Status(ctx)
	if err != nil {
		fatal(err)
	}
	if asJSON {
		printJSON(snap)
		return
	}
	fmt.Println(strategy.Report(snap, cfg.Strategy.BaseLabel))
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
