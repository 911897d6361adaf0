package fred

import (
	"strings"
	"testing"
	"time"
)

func TestParseCSV(t *testing.T) {
	body := []byte("DATE,DGS10\n2024-05-01,4.1\n2024-05-02,.\n2024-05-03,4.3\n")
	s, err := parseCSV("DGS10", body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 observations (missing '.' skipped), got %d", s.Len())
	}
	if !s.Dates[0].Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first date %v", s.Dates[0])
	}
	if s.Values[1] != 4.3 {
		t.Fatalf("unexpected value %v", s.Values[1])
	}
}

func TestParseCSVWrongSeries(t *testing.T) {
	body := []byte("DATE,DGS2\n2024-05-01,4.1\n")
	if _, err := parseCSV("DGS10", body); err == nil {
		t.Fatalf("expected error for mismatched series column")
	}
}

func TestParseCSVExtraColumns(t *testing.T) {
	body := []byte("DATE,DGS10,DGS2\n2024-05-01,4.1,4.5\n")
	_, err := parseCSV("DGS10", body)
	if err == nil || !strings.Contains(err.Error(), "unexpected columns") {
		t.Fatalf("expected unexpected-columns error, got %v", err)
	}
}

func TestParseCSVBadValue(t *testing.T) {
	body := []byte("DATE,DGS10\n2024-05-01,abc\n")
	if _, err := parseCSV("DGS10", body); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestParseCSVEmptyBody(t *testing.T) {
	if _, err := parseCSV("DGS10", nil); err == nil {
		t.Fatalf("expected error for empty body")
	}
}
