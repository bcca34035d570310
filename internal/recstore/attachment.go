package recstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ExportAttachment writes the record's stored attachment bytes,
// unchanged, to dest. When dest is empty the file lands in the store's
// downloads directory under the stored filename. Missing directories
// are created.
//
// Returns the written path, or "" (with no error) when the record does
// not exist or carries no attachment - not-found is a normal result.
//
// The bytes are written to a temp file and renamed into place, so a
// failed export never leaves a partial file behind. Export is
// read-only with respect to the store and safe to run concurrently
// with other reads, since attachments are immutable once attached.
func (s *Store) ExportAttachment(ctx context.Context, id int64, dest string) (string, error) {
	var (
		data []byte
		name sql.NullString
	)
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s = ?",
		colPDFData, colPDFFilename, s.schema.Table, colID,
	), id).Scan(&data, &name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		s.opLog("export_attachment").WithField("id", id).WithError(err).Error("attachment lookup failed")
		return "", fmt.Errorf("export attachment %s %d: %w", s.schema.Kind, id, err)
	}
	if data == nil || !name.Valid {
		return "", nil
	}

	if dest == "" {
		dest = filepath.Join(s.downloads, name.String)
	}
	if err := WriteFileAtomic(dest, data); err != nil {
		s.opLog("export_attachment").WithField("id", id).WithError(err).Error("attachment write failed")
		return "", fmt.Errorf("export attachment %s %d: %w", s.schema.Kind, id, err)
	}
	return dest, nil
}

// WriteFileAtomic writes data to path via a uuid-suffixed temp file in
// the same directory followed by a rename, creating missing
// directories first. The rename is atomic on the same filesystem, so
// readers never observe a half-written file. Shared by both backing
// stores for attachment export.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
