// Package main runs complete sessions from the command line, either
// against an LLM endpoint or with the scripted decider for dry runs.
// It only handles flag parsing and dependency injection.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/engine"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/infra/ai"
	"github.com/lunarfang/werewolf-arena/internal/infra/experience"
	"github.com/lunarfang/werewolf-arena/internal/infra/storage"
	"github.com/lunarfang/werewolf-arena/internal/platform/config"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
	"github.com/lunarfang/werewolf-arena/internal/platform/metrics"
)

func main() {
	players := flag.String("players", "", "Comma-separated player names (default roster when empty)")
	wolves := flag.Int("wolves", 2, "Number of werewolves")
	seer := flag.Bool("seer", true, "Seat a seer")
	guard := flag.Bool("guard", true, "Seat a guard")
	witch := flag.Bool("witch", true, "Seat a witch")
	hunter := flag.Bool("hunter", true, "Seat a hunter")
	turns := flag.Int("turns", 8, "Maximum debate turns per day")
	sheriff := flag.Bool("sheriff", true, "Enable the sheriff sub-game")
	workers := flag.Int("workers", 4, "Concurrent decision workers")
	seed := flag.Int64("seed", 1, "Deterministic session seed")
	resume := flag.String("resume", "", "Resume the session with this id")
	scripted := flag.Bool("scripted", false, "Use the scripted decider instead of the LLM")
	flag.Parse()

	appLogger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}

	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("failed to initialize sqlite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()

	repo := storage.NewSessionRepository(db)
	expStore, err := experience.NewStore(db, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize experience store: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *game.State
	if *resume != "" {
		st, err = repo.Resume(ctx, *resume)
		if err != nil {
			appLogger.Error("failed to resume session: " + err.Error())
			os.Exit(1)
		}
		appLogger.Infof("Resuming session %s at round %d", st.ID, len(st.Rounds))
	} else {
		gameCfg := game.Config{
			Names:          game.DefaultConfig().Names,
			NumWerewolves:  *wolves,
			HasSeer:        *seer,
			HasGuard:       *guard,
			HasWitch:       *witch,
			HasHunter:      *hunter,
			MaxDebateTurns: *turns,
			SheriffEnabled: *sheriff,
			Workers:        *workers,
			Seed:           *seed,
		}
		if *players != "" {
			gameCfg.Names = splitNames(*players)
		}
		st, err = game.NewState(gameCfg)
		if err != nil {
			appLogger.Error("invalid session config: " + err.Error())
			os.Exit(1)
		}
		appLogger.Infof("Starting session %s with %d players", st.ID, len(st.Roster))
	}

	var d decider.Decider
	if *scripted {
		d = decider.NewScripted(rand.New(rand.NewSource(st.Config.Seed)))
	} else {
		if cfg.LLMAPIKey == "" {
			appLogger.Error("ARENA_LLM_API_KEY is required without -scripted")
			os.Exit(1)
		}
		provider := ai.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
		d = ai.NewDecider(provider, appLogger)
	}
	d = metrics.Instrument(d)

	res := engine.NewResolver(st, appLogger, expStore)
	orch := engine.NewOrchestrator(res, d, appLogger)

	for st.Winner == game.WinnerNone {
		runErr := orch.RunRound(ctx)
		if err := repo.SaveState(ctx, st); err != nil {
			appLogger.Error("failed to persist session: " + err.Error())
		}
		if runErr != nil {
			st.Fail(runErr)
			if err := repo.SaveState(ctx, st); err != nil {
				appLogger.Error("failed to persist failed session: " + err.Error())
			}
			appLogger.Error("session aborted: " + runErr.Error())
			os.Exit(1)
		}
		metrics.RecordRound()
	}

	metrics.RecordGame(string(st.Winner))
	appLogger.Infof("Session %s finished after %d rounds: %s win", st.ID, len(st.Rounds), st.Winner)
	fmt.Println(st.Winner)
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}
