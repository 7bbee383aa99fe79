package cleaner

import (
	"regexp"
	"strings"
)

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(loading|processing|thinking|waiting|connecting|initializing)\.{0,3}\s*$`),
	regexp.MustCompile(`^\s*\d+;\d+[HR]`),
	regexp.MustCompile(`^\s*[\[█▓▒░\]]{3,}`),
	regexp.MustCompile(`^\s*\d+%\s*[\[█▓▒░\]]*`),
	regexp.MustCompile(`^\s*›\s*$`),
	regexp.MustCompile(`^\s*\.\.\.$`),
	regexp.MustCompile(`^\.+$`),
}

const spinnerChars = `/\|─━-⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏●○◐◑◒◓`

func isNoiseLine(line string) bool {
	cleaned := strings.TrimSpace(line)
	if cleaned == "" {
		return true
	}

	spinnerOnly := true
	for _, r := range cleaned {
		if !strings.ContainsRune(spinnerChars, r) {
			spinnerOnly = false
			break
		}
	}
	if spinnerOnly {
		return true
	}

	for _, p := range noisePatterns {
		if p.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// FilterNoise drops spinner frames, progress bars and loading chatter, then
// collapses runs of blank lines to a single one.
func FilterNoise(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !isNoiseLine(line) {
			kept = append(kept, line)
		}
	}

	var out []string
	prevEmpty := false
	for _, line := range kept {
		empty := strings.TrimSpace(line) == ""
		if empty && prevEmpty {
			continue
		}
		out = append(out, line)
		prevEmpty = empty
	}
	return strings.Join(out, "\n")
}
