package recstore

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one persisted entity: a store-assigned integer id, a set of
// nullable text fields, an optional binary attachment, and the
// store-assigned timestamps.
//
// A field absent from Values was NULL in the row. Attachment is nil
// when the record carries none; when present, Filename and Data are
// always both populated (the store enforces the coupling on Add).
type Record struct {
	ID         int64
	Values     map[string]string
	Attachment *Attachment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attachment is an opaque binary document plus its original filename,
// bound to a record at creation and immutable afterwards.
type Attachment struct {
	Filename string
	Data     []byte
}

// HasAttachment reports whether the record carries an attachment.
func (r *Record) HasAttachment() bool {
	return r.Attachment != nil
}

// Field returns the value of a field and whether it was present
// (non-NULL) on the record.
func (r *Record) Field(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// timeLayout is the stored form of created_date / updated_date.
const timeLayout = time.RFC3339Nano

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord converts one row into a Record. The column order must be
// exactly Schema.selectColumns: id, fields..., pdf_data, pdf_filename,
// created_date, updated_date.
func (s *Store) scanRecord(row scanner) (*Record, error) {
	var (
		id      int64
		fields  = make([]sql.NullString, len(s.schema.Fields))
		pdfData []byte
		pdfName sql.NullString
		created sql.NullString
		updated sql.NullString
	)

	dest := make([]any, 0, len(fields)+5)
	dest = append(dest, &id)
	for i := range fields {
		dest = append(dest, &fields[i])
	}
	dest = append(dest, &pdfData, &pdfName, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:     id,
		Values: make(map[string]string),
	}
	for i, name := range s.schema.Fields {
		if fields[i].Valid {
			rec.Values[name] = fields[i].String
		}
	}
	if pdfData != nil && pdfName.Valid {
		rec.Attachment = &Attachment{Filename: pdfName.String, Data: pdfData}
	}

	var err error
	if rec.CreatedAt, err = parseStoredTime(created); err != nil {
		return nil, fmt.Errorf("record %d: %w", id, err)
	}
	if rec.UpdatedAt, err = parseStoredTime(updated); err != nil {
		return nil, fmt.Errorf("record %d: %w", id, err)
	}

	return rec, nil
}

// parseStoredTime decodes a stored timestamp. Rows migrated from a
// pre-timestamp deployment have NULL here; that is not a fault.
func parseStoredTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v.String, err)
	}
	return t, nil
}

// nullable converts a map lookup into a driver-level NULL or value.
func nullable(values map[string]string, name string) any {
	if v, ok := values[name]; ok {
		return v
	}
	return nil
}
