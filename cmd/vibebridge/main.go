package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"vibebridge/bot/internal/agent"
	"vibebridge/bot/internal/approval"
	"vibebridge/bot/internal/chat"
	"vibebridge/bot/internal/claude"
	"vibebridge/bot/internal/command"
	"vibebridge/bot/internal/config"
	"vibebridge/bot/internal/lifecycle"
	"vibebridge/bot/internal/locale"
	"vibebridge/bot/internal/logging"
	"vibebridge/bot/internal/relay"
	"vibebridge/bot/internal/relayserver"
	"vibebridge/bot/internal/store"
	"vibebridge/bot/internal/trust"
)

func main() {
	app := command.BuildApp(command.Deps{
		LoadConfig:   config.LoadConfig,
		RunBot:       runBot,
		RunRelay:     runRelay,
		RunAgent:     runAgent,
		RunMigrateUp: runMigrateUp,
	})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runBot starts the self-hosted single-process variant: console transport,
// local CLI execution, approval gate in between.
func runBot(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Component: "bot",
		FilePath:  cfg.LogFile,
	})

	overrides, err := config.LoadOverrides(cfg.ConfigDir)
	if err != nil {
		logger.Warn("config overrides ignored", "error", err)
	}

	trustStore := trust.NewStore(cfg.WorkDir)
	for _, p := range overrides.Security.TrustedPaths {
		trustStore.Add(p)
	}
	var safeList []string
	if len(overrides.Security.SafeCommands) > 0 {
		safeList = overrides.Security.SafeCommands
	}

	gate := approval.NewGate(trustStore, trust.NewSafeCommandClassifier(safeList), logger)
	runner := claude.NewRunner(cfg.ClaudeBin, cfg.WorkDir, cfg.ClaudeTimeout, logger)
	console := chat.NewConsole(os.Stdout, platformLocale(cfg.Lang))

	r := relay.New(relay.Options{
		Logger:         logger,
		Transport:      console,
		Gate:           gate,
		Trust:          trustStore,
		Executor:       runner,
		Commands:       locale.NewCommandSet(overrides.Commands.Aliases),
		Prefs:          locale.NewPrefs(cfg.Lang),
		WorkDir:        cfg.WorkDir,
		MaxLen:         cfg.MaxMessageLen,
		PostsPerSecond: 1,
	})

	logger.Info("bot starting", "work_dir", cfg.WorkDir)

	mgr := lifecycle.NewManager(logger)
	mgr.AddRun("console-events", func(runCtx context.Context) error {
		r.StartSweeper(runCtx, cfg.PendingTaskTTL, time.Minute)
		dest := chat.Destination{Channel: "console"}
		for ev := range console.ReadEvents(runCtx, os.Stdin, dest, "local") {
			if act, ok := parseConsoleAction(ev); ok {
				r.HandleAction(runCtx, act)
				continue
			}
			r.HandleEvent(runCtx, ev)
		}
		return nil
	})
	return mgr.StartAndWait(ctx, os.Interrupt, syscall.SIGTERM)
}

// parseConsoleAction maps "approve_access <task-id>" style lines to button
// actions, mirroring what a chat platform would deliver as a click.
func parseConsoleAction(ev chat.Event) (chat.Action, bool) {
	fields := strings.Fields(ev.Text)
	if len(fields) != 2 {
		return chat.Action{}, false
	}
	switch fields[0] {
	case relay.ActionApprove, relay.ActionApprovePermanent, relay.ActionDeny, relay.ActionRemovePath:
		return chat.Action{
			ActionID: fields[0],
			Value:    fields[1],
			UserID:   ev.UserID,
			Message:  chat.MessageRef{Dest: ev.Dest},
		}, true
	}
	return chat.Action{}, false
}

// runRelay starts the cloud hub: websocket listener for agents, the chat
// event intake, and the orphaned-response sweeper.
func runRelay(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Component: "relay",
		FilePath:  cfg.LogFile,
	})

	overrides, err := config.LoadOverrides(cfg.ConfigDir)
	if err != nil {
		logger.Warn("config overrides ignored", "error", err)
	}
	usageLimit := cfg.DefaultUsageLimit
	if overrides.Limits.UsageLimit > 0 {
		usageLimit = overrides.Limits.UsageLimit
	}

	db, err := store.Open(cfg.RelayDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	console := chat.NewConsole(os.Stdout, platformLocale(cfg.Lang))
	srv := relayserver.NewServer(logger, db, console, usageLimit)

	httpServer := &http.Server{
		Addr:    cfg.RelayListenAddr,
		Handler: srv,
	}

	logger.Info("relay starting", "addr", cfg.RelayListenAddr, "db", cfg.RelayDBPath)

	mgr := lifecycle.NewManager(logger)
	mgr.AddRun("ws-listener", func(runCtx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()
		select {
		case <-runCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})
	mgr.AddRun("chat-events", func(runCtx context.Context) error {
		dest := chat.Destination{Channel: "console"}
		for ev := range console.ReadEvents(runCtx, os.Stdin, dest, "local") {
			srv.HandleChatEvent(runCtx, ev)
		}
		return nil
	})
	mgr.AddRun("response-sweeper", func(runCtx context.Context) error {
		srv.StartSweeper(runCtx, cfg.PendingResponseTTL, 30*time.Second)
		<-runCtx.Done()
		return nil
	})
	mgr.AddShutdown("close-store", func(context.Context) error {
		return db.Close()
	})
	return mgr.StartAndWait(ctx, os.Interrupt, syscall.SIGTERM)
}

// runAgent connects this machine to the cloud relay and serves queries with
// the local CLI.
func runAgent(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Component: "agent",
		FilePath:  cfg.LogFile,
	})

	if cfg.AgentKey == "" {
		return fmt.Errorf("agent credential is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("work directory does not exist: %s", cfg.WorkDir)
	}

	runner := claude.NewRunner(cfg.ClaudeBin, cfg.WorkDir, cfg.ClaudeTimeout, logger)
	a := agent.New(agent.Options{
		Logger:    logger,
		Executor:  runner,
		ServerURL: cfg.AgentServerURL,
		APIKey:    cfg.AgentKey,
	})

	logger.Info("agent starting", "server", cfg.AgentServerURL, "work_dir", cfg.WorkDir)

	mgr := lifecycle.NewManager(logger)
	mgr.AddRun("relay-connection", a.Run)
	return mgr.StartAndWait(ctx, os.Interrupt, syscall.SIGTERM)
}

// runMigrateUp opens the relay database and syncs its schema.
func runMigrateUp(_ context.Context, cfg config.Config) error {
	db, err := store.Open(cfg.RelayDBPath)
	if err != nil {
		return err
	}
	return db.Close()
}

// platformLocale maps the configured language to the locale tag the console
// transport reports for its user.
func platformLocale(lang string) string {
	switch lang {
	case "ko":
		return "ko-KR"
	default:
		return "en-US"
	}
}
