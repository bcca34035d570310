package record

import "github.com/benchtop/labrec/internal/recstore"

// Publication field names. These are the column names of the
// publications table and the keys of every field map crossing the
// store boundary.
const (
	PubJournal  = "journal_name"
	PubYear     = "publication_year"
	PubVolume   = "volume"
	PubIssue    = "issue"
	PubPages    = "page_range"
	PubTitle    = "title"
	PubAuthors  = "authors"
	PubAbstract = "abstract"
)

// Sequence field names.
const (
	SeqUserName        = "user_name"
	SeqUserAffiliation = "user_affiliation"
	SeqUserPhone       = "user_phone"
	SeqGene            = "gene_name"
	SeqProtein         = "protein_name"
	SeqOrganism        = "organism_name"
	SeqAccession       = "accession_number"
	SeqSequence        = "sequence"
)

// AttachmentFilename is the store-managed column holding the original
// filename of an attached document. It is searchable for publications
// but not a user-editable field.
const AttachmentFilename = "pdf_filename"

// PublicationSchema declares the publications store. The field list
// and search set are fixed; the two record kinds are deliberately not
// interchangeable.
var PublicationSchema = recstore.Schema{
	Kind:  "publication",
	Table: "publications",
	Fields: []string{
		PubJournal,
		PubYear,
		PubVolume,
		PubIssue,
		PubPages,
		PubTitle,
		PubAuthors,
		PubAbstract,
	},
	SearchFields: []string{
		PubJournal,
		PubYear,
		PubVolume,
		PubPages,
		PubTitle,
		PubAuthors,
		PubAbstract,
		AttachmentFilename,
	},
	IndexFields: []string{PubTitle, PubAuthors, PubJournal},
}

// SequenceSchema declares the sequences store.
var SequenceSchema = recstore.Schema{
	Kind:  "sequence",
	Table: "sequences",
	Fields: []string{
		SeqUserName,
		SeqUserAffiliation,
		SeqUserPhone,
		SeqGene,
		SeqProtein,
		SeqOrganism,
		SeqAccession,
		SeqSequence,
	},
	SearchFields: []string{
		SeqGene,
		SeqProtein,
		SeqOrganism,
		SeqAccession,
		SeqUserName,
	},
	IndexFields: []string{SeqGene, SeqProtein, SeqOrganism, SeqAccession, SeqUserName},
}
