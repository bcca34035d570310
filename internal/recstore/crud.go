package recstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Add inserts a new record and returns it as persisted.
//
// Every field is optional: keys absent from values are stored as NULL.
// There is deliberately no minimum-field rule here - rejecting an
// all-empty submission is the presentation layer's job.
//
// The attachment, when given, must carry both filename and data; it is
// write-once and cannot be changed by Update later.
//
// The insert is a single atomic statement. On success the record is
// re-read so the caller sees exactly what was stored; if that re-read
// fails after the commit, the write is still reported as a success
// using the caller-supplied values (degraded success) rather than
// discarding a persisted row.
func (s *Store) Add(ctx context.Context, values map[string]string, att *Attachment) (*Record, error) {
	if err := s.checkFields(values); err != nil {
		return nil, err
	}
	if att != nil && (att.Filename == "" || len(att.Data) == 0) {
		return nil, fmt.Errorf("add %s: attachment requires both filename and data", s.schema.Kind)
	}

	now := s.now().UTC()
	stamp := now.Format(timeLayout)

	cols := make([]string, 0, len(s.schema.Fields)+4)
	args := make([]any, 0, len(s.schema.Fields)+4)
	cols = append(cols, s.schema.Fields...)
	for _, f := range s.schema.Fields {
		args = append(args, nullable(values, f))
	}
	cols = append(cols, colPDFData, colPDFFilename, colCreated, colUpdated)
	if att != nil {
		args = append(args, att.Data, att.Filename)
	} else {
		args = append(args, nil, nil)
	}
	args = append(args, stamp, stamp)

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		s.schema.Table,
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		s.opLog("add").WithError(err).Error("insert failed")
		return nil, fmt.Errorf("add %s: %w", s.schema.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		s.opLog("add").WithError(err).Error("last insert id failed")
		return nil, fmt.Errorf("add %s: last insert id: %w", s.schema.Kind, err)
	}

	rec, err := s.Get(ctx, id)
	if err == nil && rec != nil {
		return rec, nil
	}

	// The row is committed; a failed confirmation read must not turn a
	// successful write into a reported failure.
	s.opLog("add").WithField("id", id).WithError(err).
		Warn("record persisted but confirmation read failed; returning submitted values")
	rec = &Record{
		ID:        id,
		Values:    make(map[string]string, len(values)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range values {
		rec.Values[k] = v
	}
	if att != nil {
		rec.Attachment = &Attachment{Filename: att.Filename, Data: att.Data}
	}
	return rec, nil
}

// Get returns the record with the given id, or (nil, nil) if no such
// record exists. Not-found is a normal result, never an error.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(s.schema.selectColumns(), ", "), s.schema.Table, colID,
	), id)

	rec, err := s.scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.opLog("get").WithField("id", id).WithError(err).Error("lookup failed")
		return nil, fmt.Errorf("get %s %d: %w", s.schema.Kind, id, err)
	}
	return rec, nil
}

// GetAll returns every record, most recently created first.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) GetAll(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s DESC",
		strings.Join(s.schema.selectColumns(), ", "), s.schema.Table, colID,
	))
	if err != nil {
		s.opLog("get_all").WithError(err).Error("query failed")
		return nil, fmt.Errorf("get all %ss: %w", s.schema.Kind, err)
	}
	defer rows.Close()

	return s.collectRecords(rows, "get_all")
}

// Update changes only the supplied fields of an existing record and
// stamps updated_date; unspecified fields are left untouched.
// Attachment columns are not updatable - attachments are write-once at
// creation.
//
// Returns false (with no error) if no record has the given id.
func (s *Store) Update(ctx context.Context, id int64, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return false, fmt.Errorf("update %s %d: no fields supplied", s.schema.Kind, id)
	}
	if err := s.checkFields(values); err != nil {
		return false, err
	}

	// Iterate the schema order, not the map, so the statement text is
	// deterministic for a given field set.
	set := make([]string, 0, len(values)+1)
	args := make([]any, 0, len(values)+2)
	for _, f := range s.schema.Fields {
		if v, ok := values[f]; ok {
			set = append(set, f+" = ?")
			args = append(args, v)
		}
	}
	set = append(set, colUpdated+" = ?")
	args = append(args, s.now().UTC().Format(timeLayout), id)

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		s.schema.Table, strings.Join(set, ", "), colID,
	)

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		s.opLog("update").WithField("id", id).WithError(err).Error("update failed")
		return false, fmt.Errorf("update %s %d: %w", s.schema.Kind, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s %d: rows affected: %w", s.schema.Kind, id, err)
	}
	return n > 0, nil
}

// Delete removes the record with the given id. Returns false (with no
// error) if no such record exists. Deletion is final: the id is never
// reused because the table uses AUTOINCREMENT.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ?", s.schema.Table, colID,
	), id)
	if err != nil {
		s.opLog("delete").WithField("id", id).WithError(err).Error("delete failed")
		return false, fmt.Errorf("delete %s %d: %w", s.schema.Kind, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %d: rows affected: %w", s.schema.Kind, id, err)
	}
	return n > 0, nil
}

// checkFields rejects field names not declared by the schema. The
// statically declared field list is the only thing insert, select and
// update ever agree on, so drift surfaces here instead of as silent
// SQL errors.
func (s *Store) checkFields(values map[string]string) error {
	for name := range values {
		if !s.schema.hasField(name) {
			return fmt.Errorf("%s has no field %q", s.schema.Kind, name)
		}
	}
	return nil
}

// collectRecords drains rows into a slice, preserving query order.
func (s *Store) collectRecords(rows *sql.Rows, op string) ([]*Record, error) {
	recs := []*Record{}
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			s.opLog(op).WithError(err).Error("row scan failed")
			return nil, fmt.Errorf("%s %ss: scan: %w", op, s.schema.Kind, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		s.opLog(op).WithError(err).Error("row iteration failed")
		return nil, fmt.Errorf("%s %ss: iterate: %w", op, s.schema.Kind, err)
	}
	return recs, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
