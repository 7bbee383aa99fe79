package command

import (
	"context"
	"testing"

	"vibebridge/bot/internal/config"
)

func testDeps(counts map[string]int, captured *config.Config) Deps {
	record := func(name string) func(context.Context, config.Config) error {
		return func(_ context.Context, cfg config.Config) error {
			counts[name]++
			if captured != nil {
				*captured = cfg
			}
			return nil
		}
	}
	return Deps{
		LoadConfig:   func() config.Config { return config.Config{WorkDir: "/work"} },
		RunBot:       record("bot"),
		RunRelay:     record("relay"),
		RunAgent:     record("agent"),
		RunMigrateUp: record("migrate"),
	}
}

func TestBuildApp_DefaultCommandIsBot(t *testing.T) {
	counts := map[string]int{}
	app := BuildApp(testDeps(counts, nil))
	if err := app.RunContext(context.Background(), []string{"vibebridge"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counts["bot"] != 1 || counts["relay"] != 0 || counts["agent"] != 0 {
		t.Fatalf("unexpected calls: %v", counts)
	}
}

func TestBuildApp_ServeDirFlagOverridesConfig(t *testing.T) {
	counts := map[string]int{}
	var captured config.Config
	app := BuildApp(testDeps(counts, &captured))
	if err := app.RunContext(context.Background(), []string{"vibebridge", "serve", "--dir", "/srv/project"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counts["bot"] != 1 {
		t.Fatalf("unexpected calls: %v", counts)
	}
	if captured.WorkDir != "/srv/project" {
		t.Fatalf("work dir = %q", captured.WorkDir)
	}
}

func TestBuildApp_RelayCommand(t *testing.T) {
	counts := map[string]int{}
	var captured config.Config
	app := BuildApp(testDeps(counts, &captured))
	if err := app.RunContext(context.Background(), []string{"vibebridge", "relay", "--listen", ":9000"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counts["relay"] != 1 || captured.RelayListenAddr != ":9000" {
		t.Fatalf("calls=%v addr=%q", counts, captured.RelayListenAddr)
	}
}

func TestBuildApp_AgentRequiresKey(t *testing.T) {
	counts := map[string]int{}
	app := BuildApp(testDeps(counts, nil))
	if err := app.RunContext(context.Background(), []string{"vibebridge", "agent"}); err == nil {
		t.Fatal("agent without --key must fail")
	}
	if counts["agent"] != 0 {
		t.Fatalf("unexpected calls: %v", counts)
	}
}

func TestBuildApp_AgentFlags(t *testing.T) {
	counts := map[string]int{}
	var captured config.Config
	app := BuildApp(testDeps(counts, &captured))
	args := []string{"vibebridge", "agent", "--key", "vibe_sk_abc", "--server", "wss://relay.example.com"}
	if err := app.RunContext(context.Background(), args); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counts["agent"] != 1 {
		t.Fatalf("unexpected calls: %v", counts)
	}
	if captured.AgentKey != "vibe_sk_abc" || captured.AgentServerURL != "wss://relay.example.com" {
		t.Fatalf("captured = %+v", captured)
	}
}

func TestBuildApp_MigrateUpCommand(t *testing.T) {
	counts := map[string]int{}
	app := BuildApp(testDeps(counts, nil))
	if err := app.RunContext(context.Background(), []string{"vibebridge", "migrate", "up"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counts["migrate"] != 1 {
		t.Fatalf("unexpected calls: %v", counts)
	}
}
