package jsonstore

import (
	"sort"
	"strconv"
	"strings"

	"github.com/benchtop/labrec/internal/record"
)

// Stats summarizes a set of publications.
type Stats struct {
	Total        int      `json:"total"`
	Years        []int    `json:"years"`
	OldestYear   int      `json:"oldest_year,omitempty"`
	NewestYear   int      `json:"newest_year,omitempty"`
	Journals     []string `json:"journals"`
	JournalCount int      `json:"journal_count"`
	AuthorCount  int      `json:"author_count"`
}

// Statistics computes statistics over the stored publications.
func (s *Store) Statistics() Stats {
	fields := make([]map[string]string, 0, len(s.pubs))
	for i := range s.pubs {
		fields = append(fields, s.pubs[i].Fields)
	}
	return ComputeStats(fields)
}

// ComputeStats derives statistics from publication field maps: totals,
// the sorted set of distinct publication years and its range, distinct
// journals, and the number of distinct author names (comma-split). It
// works on plain field maps so either backing store can feed it.
func ComputeStats(fields []map[string]string) Stats {
	stats := Stats{
		Total:    len(fields),
		Years:    []int{},
		Journals: []string{},
	}

	years := make(map[int]struct{})
	journals := make(map[string]struct{})
	authors := make(map[string]struct{})

	for _, f := range fields {
		if year, err := strconv.Atoi(f[record.PubYear]); err == nil {
			years[year] = struct{}{}
		}
		if j := f[record.PubJournal]; j != "" {
			journals[j] = struct{}{}
		}
		for _, a := range strings.Split(f[record.PubAuthors], ",") {
			if a = strings.TrimSpace(a); a != "" {
				authors[a] = struct{}{}
			}
		}
	}

	for y := range years {
		stats.Years = append(stats.Years, y)
	}
	sort.Ints(stats.Years)
	if len(stats.Years) > 0 {
		stats.OldestYear = stats.Years[0]
		stats.NewestYear = stats.Years[len(stats.Years)-1]
	}

	for j := range journals {
		stats.Journals = append(stats.Journals, j)
	}
	sort.Strings(stats.Journals)
	stats.JournalCount = len(stats.Journals)
	stats.AuthorCount = len(authors)

	return stats
}
