// Package journal maintains the append-only per-site/per-day message log
// and the media files it references.
//
// Layout: <root>/<siteCode>/<YYYY-MM-DD>/log.jsonl plus media files in the
// same day directory. Appends are the only mutation; existing lines are
// never rewritten, which keeps the journal replay-safe for report builds.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

const (
	logFileName = "log.jsonl"
	dayFormat   = "2006-01-02"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Writer appends processed-message records and media bytes under the
// storage root, creating the (site, day) directory hierarchy on demand.
type Writer struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewWriter(root string, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &Writer{root: root, logger: logger}, nil
}

// Append writes one record as a newline-delimited JSON line to the journal
// for (record.SiteCode, record.ReceivedAt's day).
func (w *Writer) Append(record domain.ProcessedMessageRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}

	dir, err := w.ensureDayDir(record.SiteCode, record.ReceivedAt)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// WriteMedia stores media bytes next to the journal and returns the filename
// relative to the day directory. The name is derived deterministically from
// (timestamp, mediaID) so re-delivered media lands on the same file instead
// of colliding with a different one.
func (w *Writer) WriteMedia(siteCode string, ts time.Time, mediaID, mimeType string, data []byte) (string, error) {
	if strings.TrimSpace(siteCode) == "" {
		return "", fmt.Errorf("%w: site code is required", domain.ErrValidation)
	}
	if strings.TrimSpace(mediaID) == "" {
		return "", fmt.Errorf("%w: media id is required", domain.ErrValidation)
	}

	dir, err := w.ensureDayDir(siteCode, ts)
	if err != nil {
		return "", err
	}

	name := MediaFileName(ts, mediaID, mimeType)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return name, nil
}

func (w *Writer) ensureDayDir(siteCode string, ts time.Time) (string, error) {
	dir := filepath.Join(w.root, sanitizePathComponent(siteCode), ts.UTC().Format(dayFormat))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %w", err)
	}
	return dir, nil
}

// MediaFileName derives the stored filename for a media payload.
func MediaFileName(ts time.Time, mediaID, mimeType string) string {
	return fmt.Sprintf("%s_%s%s",
		ts.UTC().Format("20060102T150405"),
		sanitizePathComponent(mediaID),
		extensionForMime(mimeType),
	)
}

func sanitizePathComponent(s string) string {
	return unsafePathChars.ReplaceAllString(s, "_")
}

func extensionForMime(mimeType string) string {
	// The provider appends codec parameters, e.g. "audio/ogg; codecs=opus".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/aac", "audio/mp4":
		return ".m4a"
	case "video/mp4":
		return ".mp4"
	case "video/3gpp":
		return ".3gp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
