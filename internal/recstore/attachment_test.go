package recstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExportAttachment_WritesExactBytes(t *testing.T) {
	s := createTestStore(t)

	data := []byte("%PDF-1.4\nbinary\x00payload")
	rec := mustAdd(t, s, map[string]string{"label": "x"},
		&Attachment{Filename: "paper.pdf", Data: data})

	dest := filepath.Join(t.TempDir(), "out.pdf")
	path, err := s.ExportAttachment(context.Background(), rec.ID, dest)
	if err != nil {
		t.Fatalf("ExportAttachment() failed: %v", err)
	}
	if path != dest {
		t.Errorf("path = %q, want %q", path, dest)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading export failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("exported bytes differ from stored bytes")
	}
}

func TestExportAttachment_DefaultsToDownloadsDir(t *testing.T) {
	downloads := filepath.Join(t.TempDir(), "dl")
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, testSchema, WithDownloadsDir(downloads))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	rec := mustAdd(t, s, map[string]string{"label": "x"},
		&Attachment{Filename: "notes.pdf", Data: []byte("pdf")})

	path, err := s.ExportAttachment(context.Background(), rec.ID, "")
	if err != nil {
		t.Fatalf("ExportAttachment() failed: %v", err)
	}
	want := filepath.Join(downloads, "notes.pdf")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestExportAttachment_MissingRecord(t *testing.T) {
	s := createTestStore(t)

	path, err := s.ExportAttachment(context.Background(), 404, "")
	if err != nil {
		t.Fatalf("ExportAttachment() errored: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for missing record", path)
	}
}

func TestExportAttachment_RecordWithoutAttachment(t *testing.T) {
	s := createTestStore(t)
	rec := mustAdd(t, s, map[string]string{"label": "bare"}, nil)

	path, err := s.ExportAttachment(context.Background(), rec.ID, "")
	if err != nil {
		t.Fatalf("ExportAttachment() errored: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for record without attachment", path)
	}
}

func TestWriteFileAtomic_CreatesDirectories(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "c.txt")

	if err := WriteFileAtomic(dest, []byte("content")); err != nil {
		t.Fatalf("WriteFileAtomic() failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading file failed: %v", err)
	}
	if string(got) != "content" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	if err := WriteFileAtomic(dest, []byte("x")); err != nil {
		t.Fatalf("WriteFileAtomic() failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		t.Errorf("directory should hold only the final file, got %v", entries)
	}
}
