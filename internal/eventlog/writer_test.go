package eventlog

import (
	"path/filepath"
	"testing"

	"github.com/aehmttw/marketsim/internal/domain"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	events := []*domain.Event{
		{Time: 0, Type: domain.EventSimStart},
		{Time: 5, Type: domain.EventAgentWakeup, Target: 2},
		{Time: 10, Type: domain.EventSimEnd},
	}
	for _, e := range events {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if w.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", w.Count())
	}
	digest := w.Digest()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	for i, e := range got {
		if e.Time != events[i].Time || e.Type != events[i].Type {
			t.Fatalf("event %d = %+v, want %+v", i, e, events[i])
		}
	}

	fileDigest, err := DigestFile(path)
	if err != nil {
		t.Fatalf("DigestFile: %v", err)
	}
	if fileDigest != digest {
		t.Fatalf("DigestFile() = %s, want %s", fileDigest, digest)
	}
}

func TestDigestDeterministic(t *testing.T) {
	dir := t.TempDir()

	write := func(name string) string {
		w, _ := NewWriter(filepath.Join(dir, name))
		w.Write(&domain.Event{Time: 1, Type: domain.EventOrderSubmission})
		w.Write(&domain.Event{Time: 2, Type: domain.EventMarketData})
		d := w.Digest()
		w.Close()
		return d
	}

	if write("a.jsonl") != write("b.jsonl") {
		t.Fatal("identical event sequences produced different digests")
	}
}
