package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// Reader provides wholesale, read-only access to journals for report builds.
type Reader struct {
	root   string
	logger *zap.Logger
}

func NewReader(root string, logger *zap.Logger) (*Reader, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{root: root, logger: logger}, nil
}

// ReadDay returns the ordered records of one (site, day) journal. A missing
// journal yields domain.ErrNotFound; malformed lines are skipped with a
// warning so one bad record cannot block a whole report.
func (r *Reader) ReadDay(siteCode string, day time.Time) ([]domain.ProcessedMessageRecord, error) {
	path := filepath.Join(r.root, sanitizePathComponent(siteCode), day.UTC().Format(dayFormat), logFileName)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no journal for site %s on %s", domain.ErrNotFound, siteCode, day.UTC().Format(dayFormat))
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var records []domain.ProcessedMessageRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record domain.ProcessedMessageRecord
		if err := json.Unmarshal(line, &record); err != nil {
			r.logger.Warn("skipping malformed journal line",
				zap.String("path", path),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read journal: %w", err)
	}

	return records, nil
}

// SitesForDay lists the site codes that have a journal for the given day.
func (r *Reader) SitesForDay(day time.Time) ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list storage root: %w", err)
	}

	dayName := day.UTC().Format(dayFormat)
	var sites []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		journalPath := filepath.Join(r.root, entry.Name(), dayName, logFileName)
		if _, err := os.Stat(journalPath); err == nil {
			sites = append(sites, entry.Name())
		}
	}
	return sites, nil
}

// MediaPath resolves a record's relative media file to an absolute path.
func (r *Reader) MediaPath(siteCode string, day time.Time, mediaFile string) string {
	return filepath.Join(r.root, sanitizePathComponent(siteCode), day.UTC().Format(dayFormat), filepath.Base(mediaFile))
}
