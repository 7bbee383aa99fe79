package trust

import "strings"

// Read-only diagnostic commands that bypass the approval gate. These often
// mention path-like tokens (cat /proc/cpuinfo) that would otherwise trigger
// spurious prompts.
var defaultSafeCommands = []string{
	"nvidia-smi", "df", "free", "uptime", "whoami", "hostname",
	"cat /proc/cpuinfo", "cat /proc/meminfo", "ps", "top -bn1",
	"ls", "pwd", "date", "which", "echo",
}

type SafeCommandClassifier struct {
	commands []string
}

// NewSafeCommandClassifier builds a classifier over the given command
// substrings. An empty list selects the built-in allowlist.
func NewSafeCommandClassifier(commands []string) *SafeCommandClassifier {
	if len(commands) == 0 {
		commands = defaultSafeCommands
	}
	lowered := make([]string, 0, len(commands))
	for _, c := range commands {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			lowered = append(lowered, c)
		}
	}
	return &SafeCommandClassifier{commands: lowered}
}

// IsSafe reports whether the message contains any allowlisted command
// substring, case-insensitive.
func (c *SafeCommandClassifier) IsSafe(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, cmd := range c.commands {
		if strings.Contains(msg, cmd) {
			return true
		}
	}
	return false
}
