// Package command builds the vibebridge CLI surface.
package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"vibebridge/bot/internal/config"
)

// Deps injects the runnable modes so tests can exercise the CLI wiring
// without starting anything real.
type Deps struct {
	LoadConfig   func() config.Config
	RunBot       func(context.Context, config.Config) error
	RunRelay     func(context.Context, config.Config) error
	RunAgent     func(context.Context, config.Config) error
	RunMigrateUp func(context.Context, config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "vibebridge",
		Usage: "chat bridge for the Claude Code CLI",
		Action: func(ctx *cli.Context) error {
			return runBot(ctx.Context, deps, loadConfig(deps))
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the self-hosted bot",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "work directory"},
				},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					if dir := ctx.String("dir"); dir != "" {
						cfg.WorkDir = dir
					}
					return runBot(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "relay",
				Usage: "start the cloud relay server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen address"},
					&cli.StringFlag{Name: "db", Usage: "sqlite database path"},
				},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					if addr := ctx.String("listen"); addr != "" {
						cfg.RelayListenAddr = addr
					}
					if db := ctx.String("db"); db != "" {
						cfg.RelayDBPath = db
					}
					return runRelay(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "agent",
				Usage: "connect this machine to the cloud relay",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "agent credential", Required: true},
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "work directory"},
					&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "relay server url"},
				},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					cfg.AgentKey = ctx.String("key")
					if dir := ctx.String("dir"); dir != "" {
						cfg.WorkDir = dir
					}
					if server := ctx.String("server"); server != "" {
						cfg.AgentServerURL = server
					}
					return runAgent(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "database maintenance",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "sync the relay database schema",
						Action: func(ctx *cli.Context) error {
							return runMigrateUp(ctx.Context, deps, loadConfig(deps))
						},
					},
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func runBot(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunBot == nil {
		return errors.New("bot runner is not configured")
	}
	return deps.RunBot(ctx, cfg)
}

func runRelay(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunRelay == nil {
		return errors.New("relay runner is not configured")
	}
	return deps.RunRelay(ctx, cfg)
}

func runAgent(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunAgent == nil {
		return errors.New("agent runner is not configured")
	}
	return deps.RunAgent(ctx, cfg)
}

func runMigrateUp(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunMigrateUp == nil {
		return errors.New("migrate up runner is not configured")
	}
	return deps.RunMigrateUp(ctx, cfg)
}
