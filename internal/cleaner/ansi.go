package cleaner

import "regexp"

// Terminal control sequences the CLI leaks into captured output: CSI, OSC,
// DCS-family, charset selection, keypad modes, cursor save/restore, single
// character escapes, carriage returns and bells.
var ansiRegex = regexp.MustCompile(
	`\x1b\[\?[0-9;]*[a-zA-Z]` +
		`|\x1b\[[0-9;]*[a-zA-Z]` +
		`|\x1b\][^\x07]*\x07` +
		`|\x1b[PX^_][^\x1b]*\x1b\\` +
		`|\x1b\([A-Z0-9]` +
		`|\x1b[=>]` +
		`|\x1b[78]` +
		`|\x1b[DEFGHJKLMOPQRSTUVWXYZ]` +
		`|\r` +
		`|\x07`,
)

// RemoveANSI strips every terminal escape sequence from text.
func RemoveANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}
