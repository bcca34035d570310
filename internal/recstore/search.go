package recstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQuery is returned when a search is attempted with an empty
// query string. Callers are expected to reject empty input before
// reaching the store; this sentinel is the backstop.
var ErrEmptyQuery = errors.New("empty search query")

// Search returns every record where the query occurs as a substring in
// any of the schema's search fields. Matching follows the engine
// default (SQLite LIKE: ASCII case-insensitive), with no tokenization
// or ranking; results are ordered most recently created first.
func (s *Store) Search(ctx context.Context, query string) ([]*Record, error) {
	return s.searchColumns(ctx, query, s.schema.SearchFields)
}

// SearchIn is Search restricted to a subset of the search fields, e.g.
// a filename-only search over the attachment column. Every named
// column must be one of the schema's declared search fields.
func (s *Store) SearchIn(ctx context.Context, query string, fields ...string) ([]*Record, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("search %s: no fields given", s.schema.Kind)
	}
	for _, f := range fields {
		if !s.schema.searchable(f) {
			return nil, fmt.Errorf("search %s: %q is not a searchable field", s.schema.Kind, f)
		}
	}
	return s.searchColumns(ctx, query, fields)
}

func (s *Store) searchColumns(ctx context.Context, query string, cols []string) ([]*Record, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	pattern := "%" + escapeLike(query) + "%"
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = c + ` LIKE ? ESCAPE '\'`
		args[i] = pattern
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s DESC",
		strings.Join(s.schema.selectColumns(), ", "),
		s.schema.Table,
		strings.Join(conds, " OR "),
		colID,
	)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		s.opLog("search").WithField("query", query).WithError(err).Error("search failed")
		return nil, fmt.Errorf("search %ss: %w", s.schema.Kind, err)
	}
	defer rows.Close()

	return s.collectRecords(rows, "search")
}

// escapeLike neutralizes LIKE metacharacters so the query is matched
// as a literal substring, per the pure-containment search contract.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}
