package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/benchtop/labrec/internal/record"
	"github.com/benchtop/labrec/internal/recstore"
)

// SeqOptions holds flags shared by the seq subcommands.
type SeqOptions struct {
	*RootOptions
}

// seqFields collects the sequence field flags.
type seqFields struct {
	name        string
	affiliation string
	phone       string
	gene        string
	protein     string
	organism    string
	accession   string
	sequence    string
}

func (f *seqFields) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "submitter name")
	fl.StringVar(&f.affiliation, "affiliation", "", "submitter affiliation")
	fl.StringVar(&f.phone, "phone", "", "submitter phone number")
	fl.StringVar(&f.gene, "gene", "", "gene name")
	fl.StringVar(&f.protein, "protein", "", "protein name")
	fl.StringVar(&f.organism, "organism", "", "source organism")
	fl.StringVar(&f.accession, "accession", "", "accession number")
	fl.StringVar(&f.sequence, "sequence", "", "sequence data")
}

func (f *seqFields) values(cmd *cobra.Command) map[string]string {
	values := map[string]string{}
	set := func(flag, field, v string) {
		if cmd.Flags().Changed(flag) {
			values[field] = v
		}
	}
	set("name", record.SeqUserName, f.name)
	set("affiliation", record.SeqUserAffiliation, f.affiliation)
	set("phone", record.SeqUserPhone, f.phone)
	set("gene", record.SeqGene, f.gene)
	set("protein", record.SeqProtein, f.protein)
	set("organism", record.SeqOrganism, f.organism)
	set("accession", record.SeqAccession, f.accession)
	set("sequence", record.SeqSequence, f.sequence)
	return values
}

// NewSeqCommand creates the seq command tree.
func NewSeqCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeqOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seq",
		Short: "Manage biological sequences",
	}

	cmd.AddCommand(newSeqAddCommand(opts))
	cmd.AddCommand(newSeqGetCommand(opts))
	cmd.AddCommand(newSeqListCommand(opts))
	cmd.AddCommand(newSeqSearchCommand(opts))
	cmd.AddCommand(newSeqUpdateCommand(opts))
	cmd.AddCommand(newSeqDeleteCommand(opts))
	cmd.AddCommand(newSeqExportCommand(opts))

	return cmd
}

func (o *SeqOptions) openStore() (*recstore.Store, error) {
	st, err := recstore.Open(o.Config.SequencesDB, record.SequenceSchema,
		recstore.WithDownloadsDir(o.Config.DownloadsDir))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open sequence database", err)
	}
	return st, nil
}

func newSeqAddCommand(opts *SeqOptions) *cobra.Command {
	fields := &seqFields{}
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a sequence",
		Long: `Add a sequence record. Every field is optional, but at least one
field or the attachment must be given. The attachment is bound at
creation and cannot be changed later.

Example:
  labrec seq add --gene BRCA1 --organism "Homo sapiens" \
    --accession NM_007294 --sequence ATGGATTTATCTGCT`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqAdd(opts, fields, pdfPath, cmd)
		},
	}

	fields.register(cmd)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "path to a document to attach")

	return cmd
}

func runSeqAdd(opts *SeqOptions, fields *seqFields, pdfPath string, cmd *cobra.Command) error {
	values := fields.values(cmd)
	att, err := readAttachment(pdfPath)
	if err != nil {
		return err
	}
	if err := record.ValidateSequence(values, att); err != nil {
		return WrapExitError(ExitFailure, "submission rejected", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Add(context.Background(), values, att)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to add sequence", err)
	}
	out := opts.formatter(cmd)
	return out.Success(storeDTO(rec), func(w io.Writer) {
		renderStoreDetail(w, seqLabels, rec)
	})
}

func newSeqGetCommand(opts *SeqOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one sequence",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqGet(opts, args[0], cmd)
		},
	}
	return cmd
}

func runSeqGet(opts *SeqOptions, arg string, cmd *cobra.Command) error {
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
		return WrapExitError(ExitCommandError, "failed to read sequence", err)
	}
	if rec == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("no sequence with id %d", id))
	}
	out := opts.formatter(cmd)
	return out.Success(storeDTO(rec), func(w io.Writer) {
		renderStoreDetail(w, seqLabels, rec)
	})
}

func newSeqListCommand(opts *SeqOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List all sequences, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqList(opts, cmd)
		},
	}
	return cmd
}

func runSeqList(opts *SeqOptions, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.GetAll(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sequences", err)
	}
	out := opts.formatter(cmd)
	return out.Success(storeDTOs(recs), func(w io.Writer) {
		renderList(w, seqListLines(recs))
	})
}

func seqListLines(recs []*recstore.Record) [][2]string {
	lines := make([][2]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, [2]string{fmt.Sprintf("%d", r.ID), seqSummary(r.Values)})
	}
	return lines
}

func newSeqSearchCommand(opts *SeqOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search sequences by substring",
		Long: `Search sequences. The query matches as a substring,
case-insensitively, in the gene, protein, organism, accession and
submitter name fields.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqSearch(opts, args[0], cmd)
		},
	}
	return cmd
}

func runSeqSearch(opts *SeqOptions, query string, cmd *cobra.Command) error {
	if query == "" {
		return NewExitError(ExitCommandError, "search requires a non-empty query")
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.Search(context.Background(), query)
	if err != nil {
		return WrapExitError(ExitCommandError, "search failed", err)
	}
	out := opts.formatter(cmd)
	return out.Success(storeDTOs(recs), func(w io.Writer) {
		renderList(w, seqListLines(recs))
	})
}

func newSeqUpdateCommand(opts *SeqOptions) *cobra.Command {
	fields := &seqFields{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a sequence",
		Long: `Update only the supplied fields of an existing sequence; every other
field keeps its value. The attachment is write-once and cannot be
updated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqUpdate(opts, fields, args[0], cmd)
		},
	}

	fields.register(cmd)
	return cmd
}

func runSeqUpdate(opts *SeqOptions, fields *seqFields, arg string, cmd *cobra.Command) error {
	values := fields.values(cmd)
	if len(values) == 0 {
		return NewExitError(ExitCommandError, "no fields to update")
	}
	if err := record.ValidateSequence(values, nil); err != nil {
		return WrapExitError(ExitFailure, "update rejected", err)
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
		return WrapExitError(ExitCommandError, "failed to update sequence", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("no sequence with id %d", id))
	}
	out := opts.formatter(cmd)
	return out.Textf("updated sequence %d", id)
}

func newSeqDeleteCommand(opts *SeqOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a sequence",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqDelete(opts, args[0], cmd)
		},
	}
	return cmd
}

func runSeqDelete(opts *SeqOptions, arg string, cmd *cobra.Command) error {
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
		return WrapExitError(ExitCommandError, "failed to delete sequence", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("no sequence with id %d", id))
	}
	out := opts.formatter(cmd)
	return out.Textf("deleted sequence %d", id)
}

func newSeqExportCommand(opts *SeqOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:           "export <id>",
		Short:         "Export a sequence's attached document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeqExport(opts, args[0], outPath, cmd)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "destination path")
	return cmd
}

func runSeqExport(opts *SeqOptions, arg, outPath string, cmd *cobra.Command) error {
	id, err := parseRecordID(arg)
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	path, err := st.ExportAttachment(context.Background(), id, outPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export attachment", err)
	}
	if path == "" {
		return NewExitError(ExitFailure,
			fmt.Sprintf("sequence %d has no attachment or does not exist", id))
	}
	out := opts.formatter(cmd)
	return out.Textf("exported to %s", path)
}
