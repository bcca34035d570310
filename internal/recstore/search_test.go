package recstore

import (
	"context"
	"errors"
	"testing"
)

func TestSearch_SubstringAnywhereInField(t *testing.T) {
	s := createTestStore(t)

	brca := mustAdd(t, s, map[string]string{"label": "BRCA1 exon capture"}, nil)
	mustAdd(t, s, map[string]string{"label": "TP53 panel"}, nil)

	recs, err := s.Search(context.Background(), "rca")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d results, want 1", len(recs))
	}
	if recs[0].ID != brca.ID {
		t.Errorf("matched id %d, want %d", recs[0].ID, brca.ID)
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	s := createTestStore(t)
	mustAdd(t, s, map[string]string{"origin": "Homo sapiens"}, nil)

	for _, q := range []string{"homo", "HOMO", "Sapiens"} {
		recs, err := s.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", q, err)
		}
		if len(recs) != 1 {
			t.Errorf("Search(%q) got %d results, want 1", q, len(recs))
		}
	}
}

func TestSearch_MatchesAnySearchField(t *testing.T) {
	s := createTestStore(t)

	mustAdd(t, s, map[string]string{"label": "alpha"}, nil)
	mustAdd(t, s, map[string]string{"origin": "alpha strain"}, nil)
	mustAdd(t, s, map[string]string{"notes": "compare with alpha batch"}, nil)
	mustAdd(t, s, map[string]string{"label": "unrelated"}, nil)

	recs, err := s.Search(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("got %d results, want 3", len(recs))
	}
}

func TestSearch_MatchesAttachmentFilename(t *testing.T) {
	s := createTestStore(t)

	rec := mustAdd(t, s, map[string]string{"label": "x"},
		&Attachment{Filename: "western_blot_2024.pdf", Data: []byte("pdf")})
	mustAdd(t, s, map[string]string{"label": "y"}, nil)

	recs, err := s.Search(context.Background(), "western_blot")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Errorf("filename search got %d results", len(recs))
	}
}

func TestSearch_NoMatchesReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)
	mustAdd(t, s, map[string]string{"label": "something"}, nil)

	recs, err := s.Search(context.Background(), "zzz-no-such-thing")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if recs == nil {
		t.Error("no-match search should return an empty slice, not nil")
	}
	if len(recs) != 0 {
		t.Errorf("got %d results, want 0", len(recs))
	}
}

func TestSearch_EmptyQueryIsError(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Search(context.Background(), "")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearch_NewestFirst(t *testing.T) {
	s := createTestStore(t)

	old := mustAdd(t, s, map[string]string{"label": "shared term"}, nil)
	recent := mustAdd(t, s, map[string]string{"notes": "shared term too"}, nil)

	recs, err := s.Search(context.Background(), "shared")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d results, want 2", len(recs))
	}
	if recs[0].ID != recent.ID || recs[1].ID != old.ID {
		t.Errorf("order = [%d %d], want newest first", recs[0].ID, recs[1].ID)
	}
}

func TestSearch_LikeMetacharactersAreLiteral(t *testing.T) {
	s := createTestStore(t)

	percent := mustAdd(t, s, map[string]string{"notes": "diluted to 50% stock"}, nil)
	underscore := mustAdd(t, s, map[string]string{"label": "lane_4 gel"}, nil)
	mustAdd(t, s, map[string]string{"label": "laneX4 gel"}, nil)

	recs, err := s.Search(context.Background(), "50%")
	if err != nil {
		t.Fatalf("Search(50%%) failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != percent.ID {
		t.Errorf("%% should match literally, got %d results", len(recs))
	}

	recs, err = s.Search(context.Background(), "lane_4")
	if err != nil {
		t.Fatalf("Search(lane_4) failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != underscore.ID {
		t.Errorf("_ should match literally, got %d results", len(recs))
	}
}

func TestSearchIn_RestrictsColumns(t *testing.T) {
	s := createTestStore(t)

	inLabel := mustAdd(t, s, map[string]string{"label": "kinase assay"}, nil)
	mustAdd(t, s, map[string]string{"notes": "kinase inhibitor added"}, nil)

	recs, err := s.SearchIn(context.Background(), "kinase", "label")
	if err != nil {
		t.Fatalf("SearchIn() failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != inLabel.ID {
		t.Errorf("scoped search got %d results, want only the label match", len(recs))
	}
}

func TestSearchIn_FilenameOnly(t *testing.T) {
	s := createTestStore(t)

	withPDF := mustAdd(t, s, map[string]string{"label": "report"},
		&Attachment{Filename: "report_final.pdf", Data: []byte("pdf")})
	mustAdd(t, s, map[string]string{"label": "report draft"}, nil)

	recs, err := s.SearchIn(context.Background(), "report", colPDFFilename)
	if err != nil {
		t.Fatalf("SearchIn() failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != withPDF.ID {
		t.Errorf("filename-only search got %d results", len(recs))
	}
}

func TestSearchIn_RejectsNonSearchableColumn(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.SearchIn(context.Background(), "x", "id"); err == nil {
		t.Error("SearchIn() should reject non-searchable columns")
	}
	if _, err := s.SearchIn(context.Background(), "x"); err == nil {
		t.Error("SearchIn() should reject an empty column list")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
