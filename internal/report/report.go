package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
)

// Summary describes one finished scan.
type Summary struct {
	Port       string
	UID        string
	State      string
	Key        string // found key, empty when the scan did not succeed
	StartKey   string
	EndKey     string
	Attempts   uint64
	Duration   time.Duration
	Rate       float64
	FinishedAt time.Time
}

// Generate renders a one-page PDF summary in memory.
func Generate(s Summary) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Ultralight C key scan", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Ultralight C key scan", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, s.FinishedAt.Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	key := s.Key
	if key == "" {
		key = "not found"
	}
	rows := []struct {
		label, value string
	}{
		{"Result", s.State},
		{"Key", key},
		{"Reader port", s.Port},
		{"Card UID", s.UID},
		{"Range start", s.StartKey},
		{"Range end", s.EndKey},
		{"Attempts", fmt.Sprintf("%d", s.Attempts)},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Rate", fmt.Sprintf("%.1f keys/s", s.Rate)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 8, row.label, "", 0, "L", false, 0, "")
		pdf.SetFont("Courier", "", 11)
		pdf.CellFormat(0, 8, row.value, "", 1, "L", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return out.Bytes(), nil
}

// Write renders the report into dir under a timestamped name and returns
// the path.
func Write(s Summary, dir string) (string, error) {
	data, err := Generate(s)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("ulcscan-%s.pdf", s.FinishedAt.Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
