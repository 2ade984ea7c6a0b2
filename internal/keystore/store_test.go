package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	rec := Record{
		Port:     "/dev/ttyUSB0",
		UID:      "04 A1 B2 C3 D4 E5 F6",
		Key:      "49454D4B41455242214E4143554F5946",
		Attempts: 12345,
		Duration: "2h3m4s",
		FoundAt:  time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC),
	}
	if err := s.Append(rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reloaded, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore reload failed: %v", err)
	}
	if diff := cmp.Diff([]Record{rec}, reloaded.Records()); diff != "" {
		t.Errorf("records mismatch after reload (-want +got):\n%s", diff)
	}
}

func TestStoreAppendKeepsOrder(t *testing.T) {
	s := NewMemoryStore()
	for _, key := range []string{"00", "01", "02"} {
		if err := s.Append(Record{Key: key}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	recs := s.Records()
	if len(recs) != 3 || recs[0].Key != "00" || recs[2].Key != "02" {
		t.Errorf("records = %+v, want insertion order kept", recs)
	}
}

func TestStoreInvalidFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keys.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("records = %+v, want empty store", got)
	}
}

func TestStoreRecordsReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Append(Record{Key: "AA"}); err != nil {
		t.Fatal(err)
	}
	recs := s.Records()
	recs[0].Key = "clobbered"
	if s.Records()[0].Key != "AA" {
		t.Error("Records exposed internal state")
	}
}
