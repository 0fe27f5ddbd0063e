package report

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/journal"
)

const (
	pageMargin   = 15.0
	imageWidth   = 80.0
	imageHeight  = 60.0
	imagesPerRow = 2
	rowsPerPage  = 3
)

// Builder renders one (site, day) journal into a paginated PDF. It holds no
// state of its own; everything comes from the journal reader.
type Builder struct {
	reader *journal.Reader
	logger *zap.Logger
}

func NewBuilder(reader *journal.Reader, logger *zap.Logger) (*Builder, error) {
	if reader == nil {
		return nil, fmt.Errorf("journal reader is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{reader: reader, logger: logger}, nil
}

// Build reads the journal for the given site and day and returns the rendered
// PDF bytes. Text records are laid out chronologically; embeddable images
// follow on fixed-size grid pages. Media that cannot be embedded is listed by
// filename instead of failing the report.
func (b *Builder) Build(siteCode string, day time.Time) ([]byte, error) {
	records, err := b.reader.ReadDay(siteCode, day)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReceivedAt.Before(records[j].ReceivedAt)
	})

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Site %s - %s", siteCode, day.UTC().Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d messages", len(records)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	b.renderText(pdf, records)
	b.renderMedia(pdf, siteCode, day, records)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) renderText(pdf *fpdf.Fpdf, records []domain.ProcessedMessageRecord) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Messages", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, record := range records {
		pdf.SetFont("Helvetica", "B", 9)
		header := fmt.Sprintf("%s  %s  [%s]", record.ReceivedAt.UTC().Format("15:04:05"), record.SenderID, record.MessageType)
		pdf.CellFormat(0, 5, header, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		switch {
		case strings.TrimSpace(record.Text) != "":
			pdf.MultiCell(0, 5, record.Text, "", "L", false)
		case record.MediaFile != "":
			pdf.MultiCell(0, 5, fmt.Sprintf("Media: %s", record.MediaFile), "", "L", false)
		default:
			pdf.MultiCell(0, 5, "(no content)", "", "L", false)
		}
		if record.Error != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(0, 4, fmt.Sprintf("Processing error: %s", record.Error), "", "L", false)
		}
		pdf.Ln(2)
	}
}

func (b *Builder) renderMedia(pdf *fpdf.Fpdf, siteCode string, day time.Time, records []domain.ProcessedMessageRecord) {
	var images []domain.ProcessedMessageRecord
	for _, record := range records {
		if record.MediaFile != "" && imageTypeForMime(record.MediaMime) != "" {
			images = append(images, record)
		}
	}
	if len(images) == 0 {
		return
	}

	perPage := imagesPerRow * rowsPerPage
	for i, record := range images {
		slot := i % perPage
		if slot == 0 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 8, "Media", "B", 1, "L", false, 0, "")
		}

		path := b.reader.MediaPath(siteCode, day, record.MediaFile)
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable media file",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		x := pageMargin + float64(slot%imagesPerRow)*(imageWidth+10)
		y := pageMargin + 12 + float64(slot/imagesPerRow)*(imageHeight+15)

		opts := fpdf.ImageOptions{ImageType: imageTypeForMime(record.MediaMime), ReadDpi: true}
		pdf.RegisterImageOptionsReader(record.MediaFile, opts, bytes.NewReader(data))
		pdf.ImageOptions(record.MediaFile, x, y, imageWidth, imageHeight, false, opts, 0, "")

		pdf.SetFont("Helvetica", "", 7)
		pdf.SetXY(x, y+imageHeight+1)
		pdf.CellFormat(imageWidth, 4, fmt.Sprintf("%s  %s", record.ReceivedAt.UTC().Format("15:04:05"), record.SenderID), "", 0, "L", false, 0, "")
	}
}

// imageTypeForMime maps a MIME type to an fpdf image type. An empty result
// means the media cannot be embedded and is listed by filename only.
func imageTypeForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/png":
		return "PNG"
	default:
		return ""
	}
}
