package recstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// testSchema is a small record kind used across the package tests.
var testSchema = Schema{
	Kind:         "specimen",
	Table:        "specimens",
	Fields:       []string{"label", "origin", "notes"},
	SearchFields: []string{"label", "origin", "notes", "pdf_filename"},
	IndexFields:  []string{"label", "origin"},
}

// createTestStore opens a fresh store in a temp directory with a fixed
// clock so timestamps are deterministic.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testSchema,
		WithClock(fixedClock(t)),
		WithDownloadsDir(filepath.Join(t.TempDir(), "downloads")),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	base := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return base }
}

// mustAdd inserts a record and fails the test on error.
func mustAdd(t *testing.T, s *Store, values map[string]string, att *Attachment) *Record {
	t.Helper()
	rec, err := s.Add(context.Background(), values, att)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	return rec
}
