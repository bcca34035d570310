package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/benchtop/labrec/internal/jsonstore"
	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

// fieldLabel pairs a stored field name with its display label.
type fieldLabel struct {
	field string
	label string
}

var pubLabels = []fieldLabel{
	{record.PubJournal, "Journal"},
	{record.PubYear, "Year"},
	{record.PubVolume, "Volume"},
	{record.PubIssue, "Issue"},
	{record.PubPages, "Pages"},
	{record.PubTitle, "Title"},
	{record.PubAuthors, "Authors"},
	{record.PubAbstract, "Abstract"},
}

var seqLabels = []fieldLabel{
	{record.SeqUserName, "Submitter"},
	{record.SeqUserAffiliation, "Affiliation"},
	{record.SeqUserPhone, "Phone"},
	{record.SeqGene, "Gene"},
	{record.SeqProtein, "Protein"},
	{record.SeqOrganism, "Organism"},
	{record.SeqAccession, "Accession"},
	{record.SeqSequence, "Sequence"},
}

// storeRecordDTO is the JSON payload for a relational-store record.
type storeRecordDTO struct {
	ID          int64             `json:"id"`
	Fields      map[string]string `json:"fields"`
	PDFFilename string            `json:"pdf_filename,omitempty"`
	CreatedDate string            `json:"created_date,omitempty"`
	UpdatedDate string            `json:"updated_date,omitempty"`
}

func storeDTO(rec *recstore.Record) storeRecordDTO {
	dto := storeRecordDTO{
		ID:     rec.ID,
		Fields: rec.Values,
	}
	if rec.Attachment != nil {
		dto.PDFFilename = rec.Attachment.Filename
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedDate = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedDate = rec.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func storeDTOs(recs []*recstore.Record) []storeRecordDTO {
	out := make([]storeRecordDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, storeDTO(r))
	}
	return out
}

// docRecordDTO is the JSON payload for a document-store publication.
type docRecordDTO struct {
	ID          string            `json:"id"`
	Fields      map[string]string `json:"fields"`
	PDFFilename string            `json:"pdf_filename,omitempty"`
	DateAdded   string            `json:"date_added,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
}

func docDTO(pub *jsonstore.Publication) docRecordDTO {
	dto := docRecordDTO{
		ID:          pub.ID,
		Fields:      pub.Fields,
		PDFFilename: pub.PDFFilename,
		Keywords:    pub.Keywords,
	}
	if !pub.DateAdded.IsZero() {
		dto.DateAdded = pub.DateAdded.Format(time.RFC3339)
	}
	return dto
}

func docDTOs(pubs []*jsonstore.Publication) []docRecordDTO {
	out := make([]docRecordDTO, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, docDTO(p))
	}
	return out
}

// renderDetail writes one record as aligned label/value lines, showing
// only populated fields.
func renderDetail(w io.Writer, id string, labels []fieldLabel, fields map[string]string, pdfName, created, updated string) {
	fmt.Fprintf(w, "%-12s %s\n", "ID:", id)
	for _, fl := range labels {
		if v := fields[fl.field]; v != "" {
			fmt.Fprintf(w, "%-12s %s\n", fl.label+":", v)
		}
	}
	if pdfName != "" {
		fmt.Fprintf(w, "%-12s %s\n", "PDF:", pdfName)
	}
	if created != "" {
		fmt.Fprintf(w, "%-12s %s\n", "Created:", created)
	}
	if updated != "" && updated != created {
		fmt.Fprintf(w, "%-12s %s\n", "Updated:", updated)
	}
}

func renderStoreDetail(w io.Writer, labels []fieldLabel, rec *recstore.Record) {
	dto := storeDTO(rec)
	renderDetail(w, fmt.Sprintf("%d", rec.ID), labels, rec.Values, dto.PDFFilename, dto.CreatedDate, dto.UpdatedDate)
}

func renderDocDetail(w io.Writer, pub *jsonstore.Publication) {
	dto := docDTO(pub)
	renderDetail(w, pub.ID, pubLabels, pub.Fields, dto.PDFFilename, dto.DateAdded, "")
}

// renderList writes one summary line per record: the id plus the
// kind's headline fields.
func renderList(w io.Writer, lines [][2]string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%-8s %s\n", l[0], l[1])
	}
	fmt.Fprintf(w, "%d record(s)\n", len(lines))
}

// pubSummary is the headline for a publication list line.
func pubSummary(fields map[string]string) string {
	title := fields[record.PubTitle]
	if title == "" {
		title = "(untitled)"
	}
	journal := fields[record.PubJournal]
	year := fields[record.PubYear]
	switch {
	case journal != "" && year != "":
		return fmt.Sprintf("%s (%s, %s)", title, journal, year)
	case journal != "":
		return fmt.Sprintf("%s (%s)", title, journal)
	case year != "":
		return fmt.Sprintf("%s (%s)", title, year)
	default:
		return title
	}
}

// seqSummary is the headline for a sequence list line.
func seqSummary(fields map[string]string) string {
	gene := fields[record.SeqGene]
	if gene == "" {
		gene = "(unnamed)"
	}
	organism := fields[record.SeqOrganism]
	accession := fields[record.SeqAccession]
	switch {
	case organism != "" && accession != "":
		return fmt.Sprintf("%s / %s (%s)", gene, organism, accession)
	case organism != "":
		return fmt.Sprintf("%s / %s", gene, organism)
	case accession != "":
		return fmt.Sprintf("%s (%s)", gene, accession)
	default:
		return gene
	}
}
