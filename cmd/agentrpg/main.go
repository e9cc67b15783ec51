// Package main runs one agent-driven game: it builds the world from a
// blueprint, ticks it until it ends or is interrupted, and optionally lets a
// human play one of the player actors from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/chaos"
	"github.com/cory-johannsen/agentrpg/internal/game/engine"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
	"github.com/cory-johannsen/agentrpg/internal/game/save"
	"github.com/cory-johannsen/agentrpg/internal/observability"
	"github.com/cory-johannsen/agentrpg/internal/server"
	"github.com/cory-johannsen/agentrpg/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	resume := flag.String("resume", "", "zip archive of a runtime directory to resume from")
	resumeLatest := flag.Bool("resume-latest", false, "resume from the newest save in the database (postgres storage only)")
	playerName := flag.String("player", "", "join as this player; empty runs agents only")
	playerActor := flag.String("actor", "", "player actor to control; defaults to the first one the blueprint declares")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	base, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = base.Sync() }()
	logger := observability.GameLogger(base, cfg.Game.Name, cfg.Game.Version)

	bp, err := blueprint.Load(cfg.Game.BlueprintPath, cfg.Game.Version)
	if err != nil {
		logger.Error("loading blueprint", zap.String("path", cfg.Game.BlueprintPath), zap.Error(err))
		os.Exit(server.ExitLoadError)
	}

	chaosSys, err := chaos.New(cfg.Chaos, logger)
	if err != nil {
		logger.Error("loading chaos system", zap.String("mode", cfg.Chaos.Mode), zap.Error(err))
		os.Exit(server.ExitLoadError)
	}
	if lua, ok := chaosSys.(*chaos.LuaSystem); ok {
		defer lua.Close()
	}

	runtimeDir := filepath.Join(cfg.Game.RuntimeDir, cfg.Game.Name)
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		logger.Error("creating runtime directory", zap.String("dir", runtimeDir), zap.Error(err))
		os.Exit(server.ExitLoadError)
	}

	lifecycle := server.NewLifecycle(base)

	var (
		saver engine.Saver = save.DirSaver{Dir: runtimeDir, Logger: logger.Named("save")}
		repo  *postgres.SaveRepository
	)
	if cfg.Storage.Backend == config.StoragePostgres {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			logger.Error("connecting to database", zap.Error(err))
			os.Exit(server.ExitLoadError)
		}
		repo = postgres.NewSaveRepository(pool.DB())
		saver = save.RepositorySaver{Dir: runtimeDir, Repo: repo, Logger: logger.Named("save")}
		lifecycle.Add("postgres", healthService(ctx, pool, logger))
	}

	deps := engine.Deps{
		Config: cfg.Game,
		Agents: agent.Options{
			RequestTimeout: cfg.Agent.RequestTimeout,
			ProbeTimeout:   cfg.Agent.ProbeTimeout,
		},
		Transports: func(_, url string) (agent.Transport, error) {
			return agent.NewTransport(url, agent.TransportOptions{
				AnthropicAPIKey: cfg.Agent.AnthropicAPIKey,
				MaxTokens:       cfg.Agent.MaxTokens,
			})
		},
		Chaos:  chaosSys,
		Files:  files.DirWriter{Root: runtimeDir},
		Saver:  saver,
		Logger: logger,
	}

	g, err := buildGame(ctx, bp, deps, runtimeDir, *resume, *resumeLatest, repo)
	if err != nil {
		logger.Error("building game", zap.Error(err))
		os.Exit(server.ExitLoadError)
	}

	lifecycle.Add("game", gameService(ctx, g))

	if *playerName != "" {
		actor := *playerActor
		if actor == "" && len(bp.Players) > 0 {
			actor = bp.Players[0].Name
		}
		proxy, err := g.Join(*playerName, actor)
		if err != nil {
			logger.Error("joining game", zap.String("player", *playerName), zap.String("actor", actor), zap.Error(err))
			os.Exit(server.ExitLoadError)
		}
		lifecycle.Add("terminal", terminalService(proxy))
	}

	logger.Info("game initialized",
		zap.Int("round", g.Round()),
		zap.Int("entities", len(g.Entities().Entities())),
		zap.Duration("startup", time.Since(start)),
	)

	runErr := lifecycle.Run(ctx)

	if err := g.Shutdown(context.Background()); err != nil {
		logger.Error("shutting down game", zap.Error(err))
	}
	if cfg.Game.ArchiveOnExit {
		path := runtimeDir + ".zip"
		if err := save.ArchiveFile(runtimeDir, path); err != nil {
			logger.Error("archiving runtime", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("runtime archived", zap.String("path", path))
		}
	}
	if runErr != nil {
		logger.Error("game stopped with error", zap.Error(runErr))
	}
	_ = base.Sync()
	os.Exit(server.ExitCode(runErr))
}

// buildGame creates a fresh world or restores one from an archive.
func buildGame(ctx context.Context, bp *blueprint.Blueprint, deps engine.Deps, runtimeDir, resume string, resumeLatest bool, repo *postgres.SaveRepository) (*engine.Game, error) {
	switch {
	case resume != "":
		if err := save.ExtractFile(resume, runtimeDir); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", resume, err)
		}
	case resumeLatest:
		if repo == nil {
			return nil, errors.New("-resume-latest needs storage.backend=postgres")
		}
		latest, err := repo.Latest(ctx, deps.Config.Name)
		if err != nil {
			return nil, err
		}
		if err := save.ExtractBytes(latest.Archive, runtimeDir); err != nil {
			return nil, fmt.Errorf("extracting save %s: %w", latest.ID, err)
		}
		deps.Logger.Info("resuming save", zap.String("id", latest.ID.String()), zap.Int("round", latest.Round))
	default:
		return engine.New(bp, deps)
	}
	snap, err := save.Read(runtimeDir)
	if err != nil {
		return nil, err
	}
	if snap.Runtime.Version != bp.Version {
		return nil, fmt.Errorf("%w: save has %q, blueprint has %q", blueprint.ErrVersionMismatch, snap.Runtime.Version, bp.Version)
	}
	return engine.Restore(snap, deps)
}

// gameService runs the tick loop. Stop requests exit and waits for the
// current tick to finish.
func gameService(ctx context.Context, g *engine.Game) server.Service {
	done := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			defer close(done)
			return g.Run(ctx)
		},
		StopFn: func() {
			g.RequestExit()
			<-done
		},
	}
}

// terminalService feeds stdin lines to the player and prints its inbox.
func terminalService(proxy *player.Proxy) server.Service {
	sub := proxy.Subscribe(256)
	go func() {
		for msg := range sub.Events() {
			if msg.Sender != "" {
				fmt.Printf("[%s] %s: %s\n", msg.Tag, msg.Sender, msg.Content)
			} else {
				fmt.Printf("[%s] %s\n", msg.Tag, msg.Content)
			}
		}
	}()
	return &server.FuncService{
		StartFn: func() error {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if proxy.Over() {
					return nil
				}
				proxy.Enqueue(scanner.Text())
			}
			return scanner.Err()
		},
		StopFn: proxy.End,
	}
}

func healthService(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) server.Service {
	stop := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() {
			close(stop)
			pool.Close()
		},
	}
}
