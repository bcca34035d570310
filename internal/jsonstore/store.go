package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

// idPrefix and idDigits define the string identifier format: a fixed
// prefix plus a zero-padded monotonically increasing counter
// ("PUB001", "PUB002", ...). The counter is derived from the last
// element's identifier, so ids keep increasing across deletes.
const (
	idPrefix = "PUB"
	idDigits = 3
)

// Publication is one record in the document list. Fields uses the same
// field names as the relational publications store, so the two backing
// representations expose an identical contract.
type Publication struct {
	ID          string            `json:"id"`
	Fields      map[string]string `json:"fields"`
	PDFFilename string            `json:"pdf_filename,omitempty"`
	PDFData     []byte            `json:"pdf_data,omitempty"`
	DateAdded   time.Time         `json:"date_added"`
	Keywords    []string          `json:"keywords,omitempty"`
}

// HasAttachment reports whether the publication carries an attachment.
func (p *Publication) HasAttachment() bool {
	return len(p.PDFData) > 0 && p.PDFFilename != ""
}

// Store keeps publications as a flat ordered list persisted in a
// single JSON document. The whole list is rewritten on every mutation;
// the write is atomic (temp file + rename), so the document is always
// either the previous or the new state, never a torn mix.
type Store struct {
	path      string
	pubs      []Publication
	now       func() time.Time
	downloads string
	log       *logrus.Logger
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithClock overrides the timestamp source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDownloadsDir overrides the default attachment export directory.
func WithDownloadsDir(dir string) Option {
	return func(s *Store) { s.downloads = dir }
}

// WithLogger overrides the store's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open loads the document list at path. A missing file is an empty
// store; an unreadable or corrupt file is a fault - the store refuses
// to open rather than silently clobbering existing data on the next
// save.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		now:       time.Now,
		downloads: recstore.DefaultDownloadsDir,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		s.opLog("open").WithError(err).Error("read failed")
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.pubs); err != nil {
		s.opLog("open").WithError(err).Error("corrupt document")
		return nil, fmt.Errorf("open %s: corrupt document: %w", path, err)
	}
	return s, nil
}

// save persists the whole list. Mutating operations roll their
// in-memory change back when this fails, keeping memory and disk in
// agreement.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.pubs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := recstore.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// Add appends a new publication with a freshly assigned id, computes
// its keyword set from title and abstract, and persists the list.
func (s *Store) Add(values map[string]string, att *recstore.Attachment) (*Publication, error) {
	if err := checkFields(values); err != nil {
		return nil, err
	}
	if att != nil && (att.Filename == "" || len(att.Data) == 0) {
		return nil, fmt.Errorf("add publication: attachment requires both filename and data")
	}

	pub := Publication{
		ID:        s.nextID(),
		Fields:    cloneFields(values),
		DateAdded: s.now().UTC(),
		Keywords:  extractKeywords(values[record.PubTitle], values[record.PubAbstract]),
	}
	if att != nil {
		pub.PDFFilename = att.Filename
		pub.PDFData = append([]byte(nil), att.Data...)
	}

	s.pubs = append(s.pubs, pub)
	if err := s.save(); err != nil {
		s.pubs = s.pubs[:len(s.pubs)-1]
		s.opLog("add").WithError(err).Error("save failed")
		return nil, fmt.Errorf("add publication: %w", err)
	}

	out := clonePublication(pub)
	return &out, nil
}

// nextID derives the next identifier from the last element's id.
func (s *Store) nextID() string {
	if len(s.pubs) == 0 {
		return fmt.Sprintf("%s%0*d", idPrefix, idDigits, 1)
	}
	last := s.pubs[len(s.pubs)-1].ID
	n, err := strconv.Atoi(strings.TrimPrefix(last, idPrefix))
	if err != nil {
		// Foreign id format in the document; fall back to the count.
		n = len(s.pubs)
	}
	return fmt.Sprintf("%s%0*d", idPrefix, idDigits, n+1)
}

// Get returns the publication with the given id, or (nil, nil) if no
// such publication exists.
func (s *Store) Get(id string) (*Publication, error) {
	for i := range s.pubs {
		if s.pubs[i].ID == id {
			out := clonePublication(s.pubs[i])
			return &out, nil
		}
	}
	return nil, nil
}

// GetAll returns every publication, most recently added first.
func (s *Store) GetAll() []*Publication {
	out := make([]*Publication, 0, len(s.pubs))
	for i := len(s.pubs) - 1; i >= 0; i-- {
		p := clonePublication(s.pubs[i])
		out = append(out, &p)
	}
	return out
}

// Update changes only the supplied fields of an existing publication
// and recomputes its keywords when title or abstract changed. Returns
// false (with no error) if no publication has the given id.
func (s *Store) Update(id string, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return false, fmt.Errorf("update publication %s: no fields supplied", id)
	}
	if err := checkFields(values); err != nil {
		return false, err
	}

	idx := -1
	for i := range s.pubs {
		if s.pubs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	prev := clonePublication(s.pubs[idx])
	pub := &s.pubs[idx]
	if pub.Fields == nil {
		pub.Fields = make(map[string]string)
	}
	for k, v := range values {
		pub.Fields[k] = v
	}

	_, titleChanged := values[record.PubTitle]
	_, abstractChanged := values[record.PubAbstract]
	if titleChanged || abstractChanged {
		pub.Keywords = extractKeywords(pub.Fields[record.PubTitle], pub.Fields[record.PubAbstract])
	}

	if err := s.save(); err != nil {
		s.pubs[idx] = prev
		s.opLog("update").WithField("id", id).WithError(err).Error("save failed")
		return false, fmt.Errorf("update publication %s: %w", id, err)
	}
	return true, nil
}

// Delete removes the publication with the given id. Returns false
// (with no error) if no such publication exists.
func (s *Store) Delete(id string) (bool, error) {
	idx := -1
	for i := range s.pubs {
		if s.pubs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	removed := s.pubs[idx]
	s.pubs = append(s.pubs[:idx], s.pubs[idx+1:]...)
	if err := s.save(); err != nil {
		s.pubs = append(s.pubs[:idx], append([]Publication{removed}, s.pubs[idx:]...)...)
		s.opLog("delete").WithField("id", id).WithError(err).Error("save failed")
		return false, fmt.Errorf("delete publication %s: %w", id, err)
	}
	return true, nil
}

// ExportAttachment writes the stored attachment bytes to dest, or into
// the downloads directory under the stored filename when dest is
// empty. Returns "" (with no error) when the publication does not
// exist or has no attachment.
func (s *Store) ExportAttachment(id, dest string) (string, error) {
	pub, _ := s.Get(id)
	if pub == nil || !pub.HasAttachment() {
		return "", nil
	}
	if dest == "" {
		dest = filepath.Join(s.downloads, pub.PDFFilename)
	}
	if err := recstore.WriteFileAtomic(dest, pub.PDFData); err != nil {
		s.opLog("export_attachment").WithField("id", id).WithError(err).Error("attachment write failed")
		return "", fmt.Errorf("export attachment %s: %w", id, err)
	}
	return dest, nil
}

// Len returns the number of stored publications.
func (s *Store) Len() int {
	return len(s.pubs)
}

func (s *Store) opLog(op string) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"op":   op,
		"kind": "publication",
		"path": s.path,
	})
}

// checkFields rejects field names not declared by the publication
// schema, keeping both backing representations on the same field set.
func checkFields(values map[string]string) error {
	for name := range values {
		known := false
		for _, f := range record.PublicationSchema.Fields {
			if f == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("publication has no field %q", name)
		}
	}
	return nil
}

func cloneFields(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func clonePublication(p Publication) Publication {
	p.Fields = cloneFields(p.Fields)
	p.PDFData = append([]byte(nil), p.PDFData...)
	p.Keywords = append([]string(nil), p.Keywords...)
	return p
}
