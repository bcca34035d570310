package recstore

import "fmt"

// Reserved column names managed by the store itself. A Schema may not
// declare fields with these names.
const (
	colID          = "id"
	colPDFData     = "pdf_data"
	colPDFFilename = "pdf_filename"
	colCreated     = "created_date"
	colUpdated     = "updated_date"
)

// Schema declares the shape of one record kind: its table, its ordered
// field list, and the subset of fields covered by substring search.
//
// The field list is the single source of truth shared by insert, select
// and row conversion - there is no runtime column introspection outside
// of migrations.
type Schema struct {
	// Kind is a short human-readable name used in errors and logs
	// (e.g. "publication").
	Kind string

	// Table is the SQLite table name.
	Table string

	// Fields is the ordered list of nullable TEXT columns. Order is
	// fixed and shared by DDL, INSERT and SELECT statements.
	Fields []string

	// SearchFields lists the columns matched by Search. Must be a
	// subset of Fields plus, optionally, the attachment filename.
	SearchFields []string

	// IndexFields lists the columns of the composite search index.
	// The index is created best-effort; its absence never affects
	// correctness.
	IndexFields []string
}

// validate checks internal consistency of the schema declaration.
func (sc Schema) validate() error {
	if sc.Kind == "" || sc.Table == "" {
		return fmt.Errorf("schema: kind and table are required")
	}
	if len(sc.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields declared", sc.Kind)
	}

	seen := make(map[string]bool, len(sc.Fields))
	for _, f := range sc.Fields {
		if isReservedColumn(f) {
			return fmt.Errorf("schema %s: field %q collides with a store-managed column", sc.Kind, f)
		}
		if seen[f] {
			return fmt.Errorf("schema %s: duplicate field %q", sc.Kind, f)
		}
		seen[f] = true
	}

	for _, f := range sc.SearchFields {
		if !seen[f] && f != colPDFFilename {
			return fmt.Errorf("schema %s: search field %q is not a declared field", sc.Kind, f)
		}
	}
	for _, f := range sc.IndexFields {
		if !seen[f] {
			return fmt.Errorf("schema %s: index field %q is not a declared field", sc.Kind, f)
		}
	}
	return nil
}

// hasField reports whether name is a declared (user-editable) field.
func (sc Schema) hasField(name string) bool {
	for _, f := range sc.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// searchable reports whether name may be used as a search column.
func (sc Schema) searchable(name string) bool {
	for _, f := range sc.SearchFields {
		if f == name {
			return true
		}
	}
	return false
}

func isReservedColumn(name string) bool {
	switch name {
	case colID, colPDFData, colPDFFilename, colCreated, colUpdated:
		return true
	}
	return false
}

// selectColumns returns the full column list for SELECT statements, in
// the fixed order expected by scanRecord.
func (sc Schema) selectColumns() []string {
	cols := make([]string, 0, len(sc.Fields)+5)
	cols = append(cols, colID)
	cols = append(cols, sc.Fields...)
	cols = append(cols, colPDFData, colPDFFilename, colCreated, colUpdated)
	return cols
}
