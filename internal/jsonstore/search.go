package jsonstore

import (
	"strconv"
	"strings"

	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

// Search returns every publication whose concatenated field text
// contains the query as a substring, case-insensitively. The haystack
// is the lowercase join of all fields, the attachment filename and the
// stored keywords, so any query appearing verbatim in one field
// matches - the same completeness the relational store's per-field OR
// search gives. Results are ordered most recently added first.
func (s *Store) Search(query string) ([]*Publication, error) {
	if query == "" {
		return nil, recstore.ErrEmptyQuery
	}
	needle := normalizeText(query)

	var out []*Publication
	for i := len(s.pubs) - 1; i >= 0; i-- {
		if strings.Contains(searchableText(&s.pubs[i]), needle) {
			p := clonePublication(s.pubs[i])
			out = append(out, &p)
		}
	}
	if out == nil {
		out = []*Publication{}
	}
	return out, nil
}

// searchableText joins everything substring search covers for one
// publication.
func searchableText(p *Publication) string {
	parts := make([]string, 0, len(record.PublicationSchema.Fields)+2)
	for _, f := range record.PublicationSchema.Fields {
		if v := p.Fields[f]; v != "" {
			parts = append(parts, v)
		}
	}
	if p.PDFFilename != "" {
		parts = append(parts, p.PDFFilename)
	}
	parts = append(parts, strings.Join(p.Keywords, " "))
	return normalizeText(strings.Join(parts, " "))
}

// SearchByFilename returns publications whose attachment filename
// contains the given text, case-insensitively.
func (s *Store) SearchByFilename(query string) []*Publication {
	needle := normalizeText(query)
	out := []*Publication{}
	for i := len(s.pubs) - 1; i >= 0; i-- {
		if s.pubs[i].PDFFilename == "" {
			continue
		}
		if strings.Contains(normalizeText(s.pubs[i].PDFFilename), needle) {
			p := clonePublication(s.pubs[i])
			out = append(out, &p)
		}
	}
	return out
}

// SearchByAuthor returns publications whose authors field contains the
// given name, case-insensitively.
func (s *Store) SearchByAuthor(author string) []*Publication {
	return s.filterByField(record.PubAuthors, author)
}

// SearchByJournal returns publications whose journal name contains the
// given text, case-insensitively.
func (s *Store) SearchByJournal(journal string) []*Publication {
	return s.filterByField(record.PubJournal, journal)
}

// SearchByYear returns publications published in exactly the given
// year.
func (s *Store) SearchByYear(year int) []*Publication {
	return s.SearchByYearRange(year, year)
}

// SearchByYearRange returns publications whose year lies in
// [start, end]. Publications without a parseable year never match.
func (s *Store) SearchByYearRange(start, end int) []*Publication {
	out := []*Publication{}
	for i := len(s.pubs) - 1; i >= 0; i-- {
		year, err := strconv.Atoi(s.pubs[i].Fields[record.PubYear])
		if err != nil {
			continue
		}
		if year >= start && year <= end {
			p := clonePublication(s.pubs[i])
			out = append(out, &p)
		}
	}
	return out
}

func (s *Store) filterByField(field, query string) []*Publication {
	needle := normalizeText(query)
	out := []*Publication{}
	for i := len(s.pubs) - 1; i >= 0; i-- {
		if strings.Contains(normalizeText(s.pubs[i].Fields[field]), needle) {
			p := clonePublication(s.pubs[i])
			out = append(out, &p)
		}
	}
	return out
}
