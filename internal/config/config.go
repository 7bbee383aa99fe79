package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	WorkDir       string
	LogLevel      string
	LogFile       string
	Lang          string
	ClaudeBin     string
	ClaudeTimeout time.Duration
	MaxMessageLen int

	// Relay server (cloud variant).
	RelayListenAddr   string
	RelayDBPath       string
	DefaultUsageLimit int

	// Remote agent (cloud variant).
	AgentServerURL string
	AgentKey       string

	// Pending-state expiry. Zero disables the sweepers.
	PendingTaskTTL     time.Duration
	PendingResponseTTL time.Duration

	ConfigDir string
}

func LoadConfig() Config {
	_ = godotenv.Load()

	workDir := os.Getenv("VIBEBRIDGE_WORK_DIR")
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	level := os.Getenv("VIBEBRIDGE_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	lang := os.Getenv("VIBEBRIDGE_LANG")
	if lang == "" {
		lang = "auto"
	}

	claudeBin := os.Getenv("VIBEBRIDGE_CLAUDE_BIN")
	if claudeBin == "" {
		claudeBin = "claude"
	}

	listen := os.Getenv("VIBEBRIDGE_RELAY_ADDR")
	if listen == "" {
		listen = "127.0.0.1:8080"
	}

	dbPath := os.Getenv("VIBEBRIDGE_RELAY_DB")
	if dbPath == "" {
		dbPath = "vibebridge.db"
	}

	serverURL := os.Getenv("VIBEBRIDGE_SERVER_URL")
	if serverURL == "" {
		serverURL = "wss://cloud.vibebridge.dev"
	}

	return Config{
		WorkDir:       workDir,
		LogLevel:      level,
		LogFile:       os.Getenv("VIBEBRIDGE_LOG_FILE"),
		Lang:          lang,
		ClaudeBin:     claudeBin,
		ClaudeTimeout: durationOrDefault(os.Getenv("VIBEBRIDGE_CLAUDE_TIMEOUT"), 5*time.Minute),
		MaxMessageLen: atoiOrDefault(os.Getenv("VIBEBRIDGE_MAX_MESSAGE_LEN"), 3900),

		RelayListenAddr:   listen,
		RelayDBPath:       dbPath,
		DefaultUsageLimit: atoiOrDefault(os.Getenv("VIBEBRIDGE_USAGE_LIMIT"), 100),

		AgentServerURL: serverURL,
		AgentKey:       os.Getenv("VIBEBRIDGE_AGENT_KEY"),

		PendingTaskTTL:     durationOrDefault(os.Getenv("VIBEBRIDGE_PENDING_TASK_TTL"), 30*time.Minute),
		PendingResponseTTL: durationOrDefault(os.Getenv("VIBEBRIDGE_PENDING_RESPONSE_TTL"), 2*time.Minute),

		ConfigDir: os.Getenv("VIBEBRIDGE_CONFIG_DIR"),
	}
}

func durationOrDefault(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func atoiOrDefault(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
