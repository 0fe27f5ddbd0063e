package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/journal"
)

func TestBuilderRendersJournalDay(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writer, err := journal.NewWriter(root, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	records := []domain.ProcessedMessageRecord{
		{
			ReceivedAt:  day.Add(9 * time.Hour),
			SenderID:    "4915112345678",
			MessageID:   "wamid.1",
			MessageType: domain.MessageText,
			SiteCode:    "260016",
			Text:        "Beton geliefert #260016",
		},
		{
			ReceivedAt:  day.Add(11 * time.Hour),
			SenderID:    "4915112345678",
			MessageID:   "wamid.2",
			MessageType: domain.MessageDocument,
			SiteCode:    "260016",
			MediaFile:   "20260830T110000_media-9.pdf",
			MediaMime:   "application/pdf",
		},
	}
	for _, record := range records {
		if err := writer.Append(record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	reader, err := journal.NewReader(root, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	builder, err := NewBuilder(reader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	pdf, err := builder.Build("260016", day)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected PDF output, got prefix %q", pdf[:min(8, len(pdf))])
	}
	if len(pdf) < 500 {
		t.Fatalf("suspiciously small pdf: %d bytes", len(pdf))
	}
}

func TestBuilderSkipsMissingMediaFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writer, err := journal.NewWriter(root, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	record := domain.ProcessedMessageRecord{
		ReceivedAt:  day.Add(10 * time.Hour),
		SenderID:    "4915112345678",
		MessageID:   "wamid.3",
		MessageType: domain.MessageImage,
		SiteCode:    "260016",
		MediaFile:   "20260830T100000_gone.jpg",
		MediaMime:   "image/jpeg",
	}
	if err := writer.Append(record); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reader, err := journal.NewReader(root, zap.NewNop())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	builder, err := NewBuilder(reader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	pdf, err := builder.Build("260016", day)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected PDF output despite missing media file")
	}
}

func TestBuilderMissingDay(t *testing.T) {
	t.Parallel()

	reader, err := journal.NewReader(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	builder, err := NewBuilder(reader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	_, err = builder.Build("260016", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImageTypeForMime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "JPG"},
		{"image/jpg", "JPG"},
		{"IMAGE/PNG", "PNG"},
		{"image/webp", ""},
		{"application/pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := imageTypeForMime(tt.mime); got != tt.want {
			t.Errorf("imageTypeForMime(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}
