package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benchtop/labrec/internal/jsonstore"
	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

// Publication storage backends selectable via --backend.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// PubOptions holds flags shared by the pub subcommands.
type PubOptions struct {
	*RootOptions
	Backend string
}

// pubFields collects the publication field flags. Only flags the user
// actually set end up in the submitted field map, so an update touches
// nothing else.
type pubFields struct {
	journal  string
	year     string
	volume   string
	issue    string
	pages    string
	title    string
	authors  string
	abstract string
}

func (f *pubFields) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.journal, "journal", "", "journal name")
	fl.StringVar(&f.year, "year", "", "publication year")
	fl.StringVar(&f.volume, "volume", "", "journal volume")
	fl.StringVar(&f.issue, "issue", "", "journal issue")
	fl.StringVar(&f.pages, "pages", "", "page range")
	fl.StringVar(&f.title, "title", "", "article title")
	fl.StringVar(&f.authors, "authors", "", "author names, comma-separated")
	fl.StringVar(&f.abstract, "abstract", "", "article abstract")
}

func (f *pubFields) values(cmd *cobra.Command) map[string]string {
	values := map[string]string{}
	set := func(flag, field, v string) {
		if cmd.Flags().Changed(flag) {
			values[field] = v
		}
	}
	set("journal", record.PubJournal, f.journal)
	set("year", record.PubYear, f.year)
	set("volume", record.PubVolume, f.volume)
	set("issue", record.PubIssue, f.issue)
	set("pages", record.PubPages, f.pages)
	set("title", record.PubTitle, f.title)
	set("authors", record.PubAuthors, f.authors)
	set("abstract", record.PubAbstract, f.abstract)
	return values
}

// NewPubCommand creates the pub command tree.
func NewPubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PubOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pub",
		Short: "Manage literature publications",
	}
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", BackendSQLite,
		"storage backend (sqlite|json)")

	cmd.AddCommand(newPubAddCommand(opts))
	cmd.AddCommand(newPubGetCommand(opts))
	cmd.AddCommand(newPubListCommand(opts))
	cmd.AddCommand(newPubSearchCommand(opts))
	cmd.AddCommand(newPubUpdateCommand(opts))
	cmd.AddCommand(newPubDeleteCommand(opts))
	cmd.AddCommand(newPubExportCommand(opts))
	cmd.AddCommand(newPubStatsCommand(opts))
	cmd.AddCommand(newPubBibtexCommand(opts))

	return cmd
}

func (o *PubOptions) checkBackend() error {
	switch o.Backend {
	case BackendSQLite, BackendJSON:
		return nil
	}
	return NewExitError(ExitCommandError,
		fmt.Sprintf("invalid backend %q: must be sqlite or json", o.Backend))
}

func (o *PubOptions) openStore() (*recstore.Store, error) {
	st, err := recstore.Open(o.Config.PublicationsDB, record.PublicationSchema,
		recstore.WithDownloadsDir(o.Config.DownloadsDir))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open publication database", err)
	}
	return st, nil
}

func (o *PubOptions) openDocStore() (*jsonstore.Store, error) {
	ds, err := jsonstore.Open(o.Config.PublicationsJSON,
		jsonstore.WithDownloadsDir(o.Config.DownloadsDir))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open publication document store", err)
	}
	return ds, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// readAttachment loads a whole attachment file into memory, named by
// its base filename.
func readAttachment(path string) (*recstore.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read attachment", err)
	}
	return &recstore.Attachment{Filename: filepath.Base(path), Data: data}, nil
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid record id %q", arg))
	}
	return id, nil
}

func newPubAddCommand(opts *PubOptions) *cobra.Command {
	fields := &pubFields{}
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a publication",
		Long: `Add a publication record. Every field is optional, but at least one
field or the attachment must be given, and a year must lie in
[1900, 2100]. The attachment is bound at creation and cannot be
changed later.

Example:
  labrec pub add --journal Nature --year 1953 \
    --title "Molecular Structure of Nucleic Acids" \
    --authors "Watson, J.D., Crick, F.H.C." --pdf paper.pdf`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubAdd(opts, fields, pdfPath, cmd)
		},
	}

	fields.register(cmd)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "path to a document to attach")

	return cmd
}

func runPubAdd(opts *PubOptions, fields *pubFields, pdfPath string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	values := fields.values(cmd)
	att, err := readAttachment(pdfPath)
	if err != nil {
		return err
	}
	if err := record.ValidatePublication(values, att); err != nil {
		return WrapExitError(ExitFailure, "submission rejected", err)
	}

	out := opts.formatter(cmd)
	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		pub, err := ds.Add(values, att)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to add publication", err)
		}
		return out.Success(docDTO(pub), func(w io.Writer) {
			renderDocDetail(w, pub)
		})
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Add(context.Background(), values, att)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to add publication", err)
	}
	return out.Success(storeDTO(rec), func(w io.Writer) {
		renderStoreDetail(w, pubLabels, rec)
	})
}

func newPubGetCommand(opts *PubOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one publication",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubGet(opts, args[0], cmd)
		},
	}
	return cmd
}

func runPubGet(opts *PubOptions, arg string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		pub, err := ds.Get(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read publication", err)
		}
		if pub == nil {
			return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %s", arg))
		}
		return out.Success(docDTO(pub), func(w io.Writer) {
			renderDocDetail(w, pub)
		})
	}

	id, err := parseRecordID(arg)
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(context.Background(), id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read publication", err)
	}
	if rec == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %d", id))
	}
	return out.Success(storeDTO(rec), func(w io.Writer) {
		renderStoreDetail(w, pubLabels, rec)
	})
}

func newPubListCommand(opts *PubOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List all publications, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubList(opts, cmd)
		},
	}
	return cmd
}

func runPubList(opts *PubOptions, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		pubs := ds.GetAll()
		return out.Success(docDTOs(pubs), func(w io.Writer) {
			renderList(w, docListLines(pubs))
		})
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.GetAll(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list publications", err)
	}
	return out.Success(storeDTOs(recs), func(w io.Writer) {
		renderList(w, pubListLines(recs))
	})
}

func pubListLines(recs []*recstore.Record) [][2]string {
	lines := make([][2]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, [2]string{fmt.Sprintf("%d", r.ID), pubSummary(r.Values)})
	}
	return lines
}

func docListLines(pubs []*jsonstore.Publication) [][2]string {
	lines := make([][2]string, 0, len(pubs))
	for _, p := range pubs {
		lines = append(lines, [2]string{p.ID, pubSummary(p.Fields)})
	}
	return lines
}

func newPubSearchCommand(opts *PubOptions) *cobra.Command {
	var (
		filenameOnly bool
		byAuthor     string
		byJournal    string
		byYear       int
		yearFrom     int
		yearTo       int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search publications by substring",
		Long: `Search publications. The query matches as a substring,
case-insensitively, in any searchable field (journal, year, volume,
pages, title, authors, abstract, attachment filename); --filename-only
restricts the match to the attachment filename.

The json backend additionally supports field-scoped searches
(--author, --journal, --by-year, --year-from/--year-to) instead of a
query.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			scoped := scopedSearch{
				author:   byAuthor,
				journal:  byJournal,
				year:     byYear,
				yearFrom: yearFrom,
				yearTo:   yearTo,
			}
			return runPubSearch(opts, query, filenameOnly, scoped, cmd)
		},
	}

	cmd.Flags().BoolVar(&filenameOnly, "filename-only", false, "match only the attachment filename")
	cmd.Flags().StringVar(&byAuthor, "author", "", "scoped search by author (json backend)")
	cmd.Flags().StringVar(&byJournal, "journal", "", "scoped search by journal (json backend)")
	cmd.Flags().IntVar(&byYear, "by-year", 0, "scoped search by exact year (json backend)")
	cmd.Flags().IntVar(&yearFrom, "year-from", 0, "scoped search: first year of range (json backend)")
	cmd.Flags().IntVar(&yearTo, "year-to", 0, "scoped search: last year of range (json backend)")

	return cmd
}

type scopedSearch struct {
	author   string
	journal  string
	year     int
	yearFrom int
	yearTo   int
}

func (s scopedSearch) active() bool {
	return s.author != "" || s.journal != "" || s.year != 0 || s.yearFrom != 0 || s.yearTo != 0
}

func runPubSearch(opts *PubOptions, query string, filenameOnly bool, scoped scopedSearch, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if scoped.active() {
		if opts.Backend != BackendJSON {
			return NewExitError(ExitCommandError, "scoped searches require --backend json")
		}
		if query != "" || filenameOnly {
			return NewExitError(ExitCommandError, "scoped searches take no query argument")
		}
		return runPubScopedSearch(opts, scoped, out)
	}

	if strings.TrimSpace(query) == "" {
		return NewExitError(ExitCommandError, "search requires a non-empty query")
	}

	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		var pubs []*jsonstore.Publication
		if filenameOnly {
			pubs = ds.SearchByFilename(query)
		} else {
			pubs, err = ds.Search(query)
			if err != nil {
				return WrapExitError(ExitCommandError, "search failed", err)
			}
		}
		return out.Success(docDTOs(pubs), func(w io.Writer) {
			renderList(w, docListLines(pubs))
		})
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var recs []*recstore.Record
	if filenameOnly {
		recs, err = st.SearchIn(context.Background(), query, record.AttachmentFilename)
	} else {
		recs, err = st.Search(context.Background(), query)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "search failed", err)
	}
	return out.Success(storeDTOs(recs), func(w io.Writer) {
		renderList(w, pubListLines(recs))
	})
}

func runPubScopedSearch(opts *PubOptions, scoped scopedSearch, out *OutputFormatter) error {
	ds, err := opts.openDocStore()
	if err != nil {
		return err
	}

	var pubs []*jsonstore.Publication
	switch {
	case scoped.author != "":
		pubs = ds.SearchByAuthor(scoped.author)
	case scoped.journal != "":
		pubs = ds.SearchByJournal(scoped.journal)
	case scoped.year != 0:
		pubs = ds.SearchByYear(scoped.year)
	case scoped.yearFrom != 0 || scoped.yearTo != 0:
		if scoped.yearFrom == 0 || scoped.yearTo == 0 || scoped.yearFrom > scoped.yearTo {
			return NewExitError(ExitCommandError, "year range search needs --year-from <= --year-to")
		}
		pubs = ds.SearchByYearRange(scoped.yearFrom, scoped.yearTo)
	}

	return out.Success(docDTOs(pubs), func(w io.Writer) {
		renderList(w, docListLines(pubs))
	})
}

func newPubUpdateCommand(opts *PubOptions) *cobra.Command {
	fields := &pubFields{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a publication",
		Long: `Update only the supplied fields of an existing publication; every
other field keeps its value. The attachment is write-once and cannot
be updated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubUpdate(opts, fields, args[0], cmd)
		},
	}

	fields.register(cmd)
	return cmd
}

func runPubUpdate(opts *PubOptions, fields *pubFields, arg string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	values := fields.values(cmd)
	if len(values) == 0 {
		return NewExitError(ExitCommandError, "no fields to update")
	}
	if err := record.ValidatePublication(values, nil); err != nil {
		return WrapExitError(ExitFailure, "update rejected", err)
	}
	out := opts.formatter(cmd)

	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		ok, err := ds.Update(arg, values)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to update publication", err)
		}
		if !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %s", arg))
		}
		return out.Textf("updated publication %s", arg)
	}

	id, err := parseRecordID(arg)
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ok, err := st.Update(context.Background(), id, values)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to update publication", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %d", id))
	}
	return out.Textf("updated publication %d", id)
}

func newPubDeleteCommand(opts *PubOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a publication",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubDelete(opts, args[0], cmd)
		},
	}
	return cmd
}

func runPubDelete(opts *PubOptions, arg string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if opts.Backend == BackendJSON {
		ds, err := opts.openDocStore()
		if err != nil {
			return err
		}
		ok, err := ds.Delete(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to delete publication", err)
		}
		if !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %s", arg))
		}
		return out.Textf("deleted publication %s", arg)
	}

	id, err := parseRecordID(arg)
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ok, err := st.Delete(context.Background(), id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete publication", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("no publication with id %d", id))
	}
	return out.Textf("deleted publication %d", id)
}

func newPubExportCommand(opts *PubOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a publication's attached document",
		Long: `Write the stored attachment bytes to disk, unchanged. Without --out
the file lands in the configured downloads directory under its
original filename.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubExport(opts, args[0], outPath, cmd)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "destination path")
	return cmd
}

func runPubExport(opts *PubOptions, arg, outPath string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	var (
		path string
		err  error
	)
	if opts.Backend == BackendJSON {
		var ds *jsonstore.Store
		ds, err = opts.openDocStore()
		if err != nil {
			return err
		}
		path, err = ds.ExportAttachment(arg, outPath)
	} else {
		var id int64
		id, err = parseRecordID(arg)
		if err != nil {
			return err
		}
		var st *recstore.Store
		st, err = opts.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		path, err = st.ExportAttachment(context.Background(), id, outPath)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export attachment", err)
	}
	if path == "" {
		return NewExitError(ExitFailure,
			fmt.Sprintf("publication %s has no attachment or does not exist", arg))
	}
	return out.Textf("exported to %s", path)
}

func newPubStatsCommand(opts *PubOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show publication database statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubStats(opts, cmd)
		},
	}
	return cmd
}

func runPubStats(opts *PubOptions, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}
	fieldMaps, err := opts.allFieldMaps()
	if err != nil {
		return err
	}

	stats := jsonstore.ComputeStats(fieldMaps)
	out := opts.formatter(cmd)
	return out.Success(stats, func(w io.Writer) {
		renderStats(w, stats)
	})
}

func renderStats(w io.Writer, stats jsonstore.Stats) {
	fmt.Fprintf(w, "%-12s %d\n", "Total:", stats.Total)
	if len(stats.Years) > 0 {
		fmt.Fprintf(w, "%-12s %s\n", "Years:", joinInts(stats.Years))
		fmt.Fprintf(w, "%-12s %d - %d\n", "Year range:", stats.OldestYear, stats.NewestYear)
	}
	fmt.Fprintf(w, "%-12s %d\n", "Journals:", stats.JournalCount)
	for _, j := range stats.Journals {
		fmt.Fprintf(w, "  %s\n", j)
	}
	fmt.Fprintf(w, "%-12s %d\n", "Authors:", stats.AuthorCount)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// allFieldMaps reads every publication from the selected backend as a
// plain field map, for stats and BibTeX rendering.
func (o *PubOptions) allFieldMaps() ([]map[string]string, error) {
	if o.Backend == BackendJSON {
		ds, err := o.openDocStore()
		if err != nil {
			return nil, err
		}
		pubs := ds.GetAll()
		maps := make([]map[string]string, 0, len(pubs))
		for _, p := range pubs {
			maps = append(maps, p.Fields)
		}
		return maps, nil
	}

	st, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	recs, err := st.GetAll(context.Background())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list publications", err)
	}
	maps := make([]map[string]string, 0, len(recs))
	for _, r := range recs {
		maps = append(maps, r.Values)
	}
	return maps, nil
}

// matchingFieldMaps runs a substring search on the selected backend
// and returns the hits as plain field maps.
func (o *PubOptions) matchingFieldMaps(query string) ([]map[string]string, error) {
	if o.Backend == BackendJSON {
		ds, err := o.openDocStore()
		if err != nil {
			return nil, err
		}
		pubs, err := ds.Search(query)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "search failed", err)
		}
		maps := make([]map[string]string, 0, len(pubs))
		for _, p := range pubs {
			maps = append(maps, p.Fields)
		}
		return maps, nil
	}

	st, err := o.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	recs, err := st.Search(context.Background(), query)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "search failed", err)
	}
	maps := make([]map[string]string, 0, len(recs))
	for _, r := range recs {
		maps = append(maps, r.Values)
	}
	return maps, nil
}

func newPubBibtexCommand(opts *PubOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "bibtex [query]",
		Short: "Export publications as BibTeX",
		Long: `Render publications as BibTeX @article entries, either every stored
publication or, with a query, only those matching a substring search.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runPubBibtex(opts, outPath, query, cmd)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")
	return cmd
}

func runPubBibtex(opts *PubOptions, outPath, query string, cmd *cobra.Command) error {
	if err := opts.checkBackend(); err != nil {
		return err
	}

	var (
		fieldMaps []map[string]string
		err       error
	)
	if query != "" {
		fieldMaps, err = opts.matchingFieldMaps(query)
	} else {
		fieldMaps, err = opts.allFieldMaps()
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := record.WriteBibTeX(&buf, fieldMaps); err != nil {
		return WrapExitError(ExitCommandError, "failed to render BibTeX", err)
	}

	out := opts.formatter(cmd)
	if outPath != "" {
		if err := recstore.WriteFileAtomic(outPath, buf.Bytes()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write BibTeX file", err)
		}
		return out.Textf("wrote %d entries to %s", len(fieldMaps), outPath)
	}
	return out.Success(buf.String(), func(w io.Writer) {
		io.WriteString(w, buf.String())
	})
}
