package record

import (
	"fmt"
	"io"
	"strings"
)

// WriteBibTeX renders publications as BibTeX @article entries. Each
// entry is keyed by the first author's name (spaces removed) and the
// year; publications missing both get a numbered fallback key.
//
// Only populated fields are emitted. Attachments are not part of the
// BibTeX surface.
func WriteBibTeX(w io.Writer, pubs []map[string]string) error {
	for i, pub := range pubs {
		if _, err := fmt.Fprintf(w, "@article{%s,\n", citeKey(pub, i)); err != nil {
			return fmt.Errorf("write bibtex: %w", err)
		}

		fields := []struct {
			bibtex string
			key    string
		}{
			{"title", PubTitle},
			{"author", PubAuthors},
			{"journal", PubJournal},
			{"year", PubYear},
			{"volume", PubVolume},
			{"number", PubIssue},
			{"pages", PubPages},
			{"abstract", PubAbstract},
		}
		for _, f := range fields {
			if v := pub[f.key]; v != "" {
				if _, err := fmt.Fprintf(w, "  %s = {%s},\n", f.bibtex, v); err != nil {
					return fmt.Errorf("write bibtex: %w", err)
				}
			}
		}

		if _, err := fmt.Fprint(w, "}\n\n"); err != nil {
			return fmt.Errorf("write bibtex: %w", err)
		}
	}
	return nil
}

// citeKey derives a citation key like "Watson_1953".
func citeKey(pub map[string]string, i int) string {
	first := pub[PubAuthors]
	if idx := strings.Index(first, ","); idx >= 0 {
		first = first[:idx]
	}
	first = strings.ReplaceAll(strings.TrimSpace(first), " ", "")

	year := pub[PubYear]
	switch {
	case first != "" && year != "":
		return first + "_" + year
	case first != "":
		return first
	case year != "":
		return "entry" + year
	default:
		return fmt.Sprintf("entry%d", i+1)
	}
}
