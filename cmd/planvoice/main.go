package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"planvoice/internal/clock"
	"planvoice/internal/conflict"
	"planvoice/internal/dialog"
	"planvoice/internal/parse"
	"planvoice/internal/scheduler"
	"planvoice/internal/storage"
	"planvoice/internal/update"
	"planvoice/internal/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "planvoice failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := update.RuntimeConfigFromEnv(update.DefaultRuntimeConfig())
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	clk := clock.System()
	if err := store.DeleteRecordsOlderThan(context.Background(), clk.Now(), 7); err != nil {
		return fmt.Errorf("startup retention sweep: %w", err)
	}

	speech := voice.NewQueue(clk)
	parser := parse.NewParser(clk)
	checker := conflict.NewChecker(store, clk)
	machine := dialog.NewMachine(store, checker, parser, speech, clk, cfg.AnnounceDelay())

	engine := scheduler.NewEngine(cfg.SchedulerConfig(), store, speech, clk, logger)
	engine.Start()
	defer engine.Stop()

	program := tea.NewProgram(update.NewModel(store, clk, machine, engine, speech))
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}
