package rfcount

import (
	"os"
	"path"
	"testing"
)

func writeTestStore(t *testing.T, entries []*Entry) string {
	t.Helper()

	rcPath := path.Join(t.TempDir(), "test.rc")

	writer, err := Create(rcPath)

	if err != nil {
		t.Fatalf("create: %s", err)
	}

	for _, entry := range entries {
		if err = writer.Write(entry); err != nil {
			t.Fatalf("write %s: %s", entry.ID, err)
		}
	}

	if err = writer.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	return rcPath
}

func testEntries() []*Entry {
	return []*Entry{
		{
			ID:       "tx1",
			Sequence: "ACGTACGTAC",
			Counts:   []uint32{0, 0, 5, 0, 0, 10, 0, 0, 5, 0},
			Coverage: []uint32{20, 20, 20, 20, 20, 20, 20, 20, 20, 20},
		},
		{
			ID:       "tx2",
			Sequence: "GGGCCCA",
			Counts:   []uint32{1, 2, 3, 4, 5, 6, 7},
			Coverage: []uint32{10, 10, 10, 10, 10, 10, 10},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	rcPath := writeTestStore(t, testEntries())

	reader, err := Open(rcPath)

	if err != nil {
		t.Fatalf("open: %s", err)
	}

	defer reader.Close()

	if len(reader.IDs()) != 2 || reader.IDs()[0] != "tx1" || reader.IDs()[1] != "tx2" {
		t.Fatalf("unexpected IDs: %v", reader.IDs())
	}

	// random access in reverse store order
	entry, err := reader.Read("tx2")

	if err != nil {
		t.Fatalf("read tx2: %s", err)
	}

	if entry.Sequence != "GGGCCCA" || entry.Counts[6] != 7 || entry.Coverage[0] != 10 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	entry, err = reader.Read("tx1")

	if err != nil {
		t.Fatalf("read tx1: %s", err)
	}

	if entry.Sequence != "ACGTACGTAC" || entry.Counts[5] != 10 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	if entry.Length() != 10 {
		t.Fatalf("expected length 10, got %d", entry.Length())
	}

	if _, err = reader.Read("absent"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIndexBuiltWhenAbsent(t *testing.T) {
	rcPath := writeTestStore(t, testEntries())

	// drop the index written by the writer; Open must rebuild it
	indexPath := IndexPath(rcPath)

	if err := os.Remove(indexPath); err != nil {
		t.Fatalf("remove index: %s", err)
	}

	reader, err := Open(rcPath)

	if err != nil {
		t.Fatalf("open without index: %s", err)
	}

	reader.Close()

	if _, err = os.Stat(indexPath); err != nil {
		t.Fatal("index file was not rebuilt alongside the store")
	}

	// second open loads the rebuilt index
	reader, err = Open(rcPath)

	if err != nil {
		t.Fatalf("open with rebuilt index: %s", err)
	}

	defer reader.Close()

	entry, err := reader.Read("tx2")

	if err != nil || entry.ID != "tx2" {
		t.Fatalf("read through rebuilt index failed: %v %s", entry, err)
	}
}

func TestNewHandle(t *testing.T) {
	rcPath := writeTestStore(t, testEntries())

	reader, err := Open(rcPath)

	if err != nil {
		t.Fatalf("open: %s", err)
	}

	defer reader.Close()

	handle, err := reader.NewHandle()

	if err != nil {
		t.Fatalf("new handle: %s", err)
	}

	defer handle.Close()

	entry, err := handle.Read("tx1")

	if err != nil || entry.ID != "tx1" {
		t.Fatalf("read through handle failed: %v %s", entry, err)
	}
}

func TestSequencePacking(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ACGT", "ACGT"},
		{"ACGTA", "ACGTA"},
		{"UUU", "TTT"},
		{"ACGN", "ACGA"}, // N is stored as A
	}

	for _, tt := range tests {
		packed := PackSequence(tt.in)

		if len(packed) != (len(tt.in)+3)/4 {
			t.Fatalf("pack(%s): unexpected packed length %d", tt.in, len(packed))
		}

		if got := UnpackSequence(packed, len(tt.in)); got != tt.out {
			t.Errorf("pack/unpack(%s): expected %s, got %s", tt.in, tt.out, got)
		}
	}
}

func TestCorruptStore(t *testing.T) {
	rcPath := path.Join(t.TempDir(), "corrupt.rc")

	if err := os.WriteFile(rcPath, []byte{0xFF, 0xFF, 0xFF, 0xFF, 1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(rcPath); err == nil {
		t.Fatal("expected an error opening a corrupt store")
	}
}

func TestCoverageSummaries(t *testing.T) {
	entry := &Entry{
		ID:       "tx",
		Sequence: "ACGT",
		Counts:   []uint32{0, 0, 0, 0},
		Coverage: []uint32{10, 20, 30, 100},
	}

	if mean := entry.MeanCoverage(); mean != 40 {
		t.Fatalf("mean coverage: expected 40, got %f", mean)
	}

	if median := entry.MedianCoverage(); median != 25 {
		t.Fatalf("median coverage: expected 25, got %f", median)
	}
}
