// Package images discovers image files the coding CLI produced or referenced
// during a turn, so the relay can attach them to the reply.
package images

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

// IsImagePath reports whether path carries a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Snapshot records the modification time of every image under workDir,
// recursively. Unreadable entries are skipped.
func Snapshot(workDir string) map[string]time.Time {
	images := map[string]time.Time{}
	filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsImagePath(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		images[path] = info.ModTime()
		return nil
	})
	return images
}

// FindNewOrModified compares the current tree against an earlier Snapshot
// and returns images that appeared or changed since it was taken.
func FindNewOrModified(workDir string, before map[string]time.Time) []string {
	var result []string
	for path, mtime := range Snapshot(workDir) {
		prev, seen := before[path]
		if !seen || mtime.After(prev) {
			result = append(result, path)
		}
	}
	return result
}

var (
	extAlternation = `\.(?i:png|jpe?g|gif|webp|svg|bmp)`

	absImagePattern = regexp.MustCompile(`/[a-zA-Z0-9_\-./]+` + extAlternation)
	relImagePattern = regexp.MustCompile("(?:^|[\\s`'\"(])([a-zA-Z0-9_\\-./]+" + extAlternation + ")")
)

// ExtractReferenced pulls image paths mentioned in the CLI's response text.
// Relative paths resolve against workDir; only paths that exist on disk are
// returned, deduplicated in mention order.
func ExtractReferenced(response, workDir string) []string {
	var candidates []string
	candidates = append(candidates, absImagePattern.FindAllString(response, -1)...)
	for _, m := range relImagePattern.FindAllStringSubmatch(response, -1) {
		candidates = append(candidates, m[1])
	}

	var paths []string
	seen := map[string]bool{}
	for _, c := range candidates {
		full := c
		if !strings.HasPrefix(c, "/") {
			full = filepath.Join(workDir, c)
		}
		full = filepath.Clean(full)
		if seen[full] {
			continue
		}
		if info, err := os.Stat(full); err != nil || info.IsDir() {
			continue
		}
		seen[full] = true
		paths = append(paths, full)
	}
	return paths
}

// requestKeywords signal that the user or the CLI talked about a picture at
// all. Without one of these the contextual pass stays silent.
var requestKeywords = []string{
	"그래프", "graph", "이미지", "image", "보여", "show",
	"차트", "chart", "plot", "시각화",
}

// hintPatterns map conversation phrases to filename fragments, most specific
// first.
var hintPatterns = []struct {
	pattern *regexp.Regexp
	hint    string
}{
	{regexp.MustCompile(`(?i)loss[_\s]?curve`), "loss_curve"},
	{regexp.MustCompile(`(?i)loss`), "loss"},
	{regexp.MustCompile(`(?i)training`), "training"},
	{regexp.MustCompile(`학습`), "loss"},
	{regexp.MustCompile(`그래프`), "graph"},
	{regexp.MustCompile(`(?i)chart`), "chart"},
	{regexp.MustCompile(`(?i)result`), "result"},
}

// FindContextual matches images in workDir against conversation hints.
// It only fires when the combined user/CLI text asks about an image, then
// picks files whose names echo a hint phrase from the conversation.
func FindContextual(userMessage, response, workDir string) []string {
	combined := strings.ToLower(userMessage + " " + response)

	asked := false
	for _, kw := range requestKeywords {
		if strings.Contains(combined, kw) {
			asked = true
			break
		}
	}
	if !asked {
		return nil
	}

	var paths []string
	seen := map[string]bool{}
	for path := range Snapshot(workDir) {
		name := strings.ToLower(filepath.Base(path))
		for _, h := range hintPatterns {
			if !h.pattern.MatchString(combined) {
				continue
			}
			if strings.Contains(name, h.hint) && !seen[path] {
				seen[path] = true
				paths = append(paths, path)
				break
			}
		}
	}
	return paths
}
