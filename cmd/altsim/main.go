// Command altsim runs the alternate-history nation simulation with an
// HTTP control plane.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/alt-history/internal/ai"
	"github.com/talgya/alt-history/internal/api"
	"github.com/talgya/alt-history/internal/config"
	"github.com/talgya/alt-history/internal/data"
	"github.com/talgya/alt-history/internal/engine"
	"github.com/talgya/alt-history/internal/entropy"
	"github.com/talgya/alt-history/internal/format"
	"github.com/talgya/alt-history/internal/game"
	"github.com/talgya/alt-history/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Alternate History: nation simulation",
		"db", cfg.DBPath, "port", cfg.APIPort, "seed", cfg.Seed, "autosave_days", cfg.AutosaveDay)

	tables, err := data.Default()
	if err != nil {
		slog.Error("failed to load data tables", "error", err)
		os.Exit(1)
	}
	slog.Info("data tables loaded", "eras", len(tables.Eras()))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Game State ────────────────────────────────────────────────────
	store := engine.NewStore(game.NewReducer(tables), game.New())

	switch {
	case db.Has(persistence.SlotAutosave):
		snap, res, err := db.Load(persistence.SlotAutosave)
		if err != nil || !res.Success {
			slog.Warn("autosave unusable, starting fresh", "error", err, "message", res.Message)
			break
		}
		// Resume paused so the player picks the moment to continue.
		store.DispatchAll(game.LoadGame{State: snap.State}, game.PauseGame{})
		slog.Info("autosave restored",
			"country", snap.Identity.PlayerCountry,
			"era", snap.Identity.Era,
			"date", format.Date(snap.Time.CurrentDate),
			"saved", snap.SaveDate,
		)
	case cfg.AutoStart():
		st := store.Dispatch(game.InitializeGame{Era: cfg.Era, Country: cfg.Country, Difficulty: cfg.Difficulty})
		if !st.Meta.GameStarted {
			slog.Error("unknown era or country", "era", cfg.Era, "country", cfg.Country)
			os.Exit(1)
		}
		slog.Info("new game", "era", cfg.Era, "country", cfg.Country, "difficulty", st.Meta.Difficulty)
	default:
		slog.Info("no game in progress; start one with POST /api/v1/new")
	}

	// ── Scheduler ─────────────────────────────────────────────────────
	sched := engine.NewScheduler(store, tables, ai.New(entropy.New(cfg.Seed)))

	// Wire day callbacks: notification log every day, autosave on cadence.
	sched.OnDay = func(st game.State) {
		if err := db.SaveNotifications(st.Notifications); err != nil {
			slog.Error("notification log failed", "error", err)
		}
		if cfg.Autosave(st.Time.DaysPassed) {
			if _, err := db.Save(persistence.SlotAutosave, st, ""); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		}
	}
	sched.OnEvents = func(evs []game.Event) {
		for _, ev := range evs {
			slog.Info("decision required", "event", ev.Title, "choices", len(ev.Choices))
		}
	}
	sched.OnAIPass = func(ds []ai.Decision) {
		acted := 0
		for _, d := range ds {
			if d.Action != ai.Wait {
				acted++
			}
		}
		slog.Info("ai pass", "nations", len(ds), "acted", acted)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("ALTSIM_ADMIN_KEY not set, POST endpoints are open to anyone who can reach the port")
	}
	apiServer := &api.Server{
		Store:     store,
		Scheduler: sched,
		Directory: tables,
		DB:        db,
		Port:      cfg.APIPort,
		AdminKey:  cfg.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sched.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Simulation running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	sched.Stop()

	// Final save on shutdown.
	st := store.State()
	if st.Meta.GameStarted {
		slog.Info("final save...")
		if _, err := db.Save(persistence.SlotAutosave, st, ""); err != nil {
			slog.Error("final save failed", "error", err)
		}
		if err := db.SaveNotifications(st.Notifications); err != nil {
			slog.Error("notification log failed", "error", err)
		}
	}

	fmt.Println("Simulation stopped. Game saved.")
}
