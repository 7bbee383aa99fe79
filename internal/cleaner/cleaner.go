package cleaner

import (
	"regexp"
	"strings"
)

var codeBlockRegex = regexp.MustCompile("(?s)```(\\w*)\n?(.*?)```")

// fixCodeBlocks normalizes fenced blocks so the language tag sits on the
// opener line and the body is trimmed.
func fixCodeBlocks(text string) string {
	return codeBlockRegex.ReplaceAllStringFunc(text, func(m string) string {
		sub := codeBlockRegex.FindStringSubmatch(m)
		return "```" + sub[1] + "\n" + strings.TrimSpace(sub[2]) + "\n```"
	})
}

// Clean turns raw terminal output into chat-ready text: ANSI codes removed,
// noise lines dropped, code fences normalized. Returns "" when nothing
// useful remains.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	text := RemoveANSI(raw)
	text = FilterNoise(text)
	text = fixCodeBlocks(text)
	return strings.TrimSpace(text)
}

// CleanAndSplit cleans raw output and chunks it to the transport limit.
// Returns nil when the cleaned output is empty.
func CleanAndSplit(raw string, maxLength int) []string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return nil
	}
	return Split(cleaned, maxLength)
}
