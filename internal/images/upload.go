package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vibebridge/bot/internal/chat"
)

// Uploader posts discovered images back to the conversation.
type Uploader struct {
	logger    *slog.Logger
	transport chat.Transport
}

func NewUploader(logger *slog.Logger, transport chat.Transport) *Uploader {
	return &Uploader{logger: logger, transport: transport}
}

// Upload sends each image to dest with a comment built from prefix and the
// file name. Failures are logged and skipped so one bad file does not block
// the rest. Screenshot captures are throwaway and get deleted once sent;
// deleteAfter forces that for every file.
func (u *Uploader) Upload(ctx context.Context, dest chat.Destination, paths []string, prefix string, deleteAfter bool) {
	for _, path := range paths {
		filename := filepath.Base(path)
		comment := fmt.Sprintf("%s: `%s`", prefix, filename)
		if err := u.transport.UploadFile(ctx, dest, path, comment); err != nil {
			u.logger.Error("image upload failed", "path", path, "error", err)
			continue
		}
		u.logger.Info("image uploaded", "file", filename)

		if deleteAfter || strings.EqualFold(filename, "screenshot.png") {
			if err := os.Remove(path); err != nil {
				u.logger.Warn("temp image delete failed", "path", path, "error", err)
			}
		}
	}
}
