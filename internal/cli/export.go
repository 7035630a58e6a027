package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/alloc"
	"github.com/roach88/patchlib/internal/engine"
	"github.com/roach88/patchlib/internal/library"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	FilterOptions

	From       string
	To         string
	Mode       string
	Order      string
	Reverse    bool
	FixIndexes bool
	Select     []int64
	DryRun     bool
}

// ExportEntry is one candidate and its destination.
type ExportEntry struct {
	UID    int64  `json:"uid"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Slot   string `json:"slot"`
}

// ExportReport is the outcome of an export run.
type ExportReport struct {
	SessionID string        `json:"session_id"`
	Target    string        `json:"target"`
	Mode      string        `json:"mode"`
	Order     string        `json:"order"`
	Reverse   bool          `json:"reverse"`
	Alert     string        `json:"alert"`
	Entries   []ExportEntry `json:"entries"`
	Missing   []int64       `json:"missing"`
	Written   int           `json:"written"`
	DryRun    bool          `json:"dry_run"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Allocate slots and export sounds into a collection",
		Long: `Open an export session over the selected sounds, allocate destination
slots and write them into the target collection.

Sounds are selected with --select, or by the same filters as list.
--from names the collection the sounds come from; auto mode keeps
their slots there where possible.

Exit codes:
  0 - Export written (or dry run without alert)
  1 - Blocked by an allocation alert, or refused by the store
  2 - Command error (unknown collection, bad flags, database errors)

Examples:
  patchlib export --to Live --select 4,1,2
  patchlib export --from Factory --to Live --category Bass --mode sequential --order name
  patchlib export --to Live --tag dark --mode distribute-category --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.From, "from", "", "collection the sounds come from")
	cmd.Flags().StringVar(&opts.To, "to", "", "collection to export into (required)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "auto", "allocation mode (auto|sequential|distribute-category|distribute-tag)")
	cmd.Flags().StringVar(&opts.Order, "order", "insertion", "ordering (insertion|name|category|category-name|tag)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "reverse the ordering")
	cmd.Flags().BoolVar(&opts.FixIndexes, "fix-indexes", false, "renumber colliding destinations after allocating")
	cmd.Flags().Int64SliceVar(&opts.Select, "select", nil, "sound uids to export, in order")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "allocate and report without writing")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	var aopts alloc.Options
	var err error
	if aopts.Mode, err = alloc.ParseMode(opts.Mode); err != nil {
		return f.Fail(ExitCommandError, ErrCodeUnknownName, "invalid --mode", err)
	}
	if aopts.Order, err = alloc.ParseOrder(opts.Order); err != nil {
		return f.Fail(ExitCommandError, ErrCodeUnknownName, "invalid --order", err)
	}
	aopts.Reverse = opts.Reverse

	s, err := openSession(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer s.close()

	target, err := s.collection(f, opts.To)
	if err != nil {
		return err
	}
	source := engine.NoCollection
	if opts.From != "" {
		if source, err = s.collection(f, opts.From); err != nil {
			return err
		}
	}

	selection := make([]library.UID, 0, len(opts.Select))
	for _, uid := range opts.Select {
		selection = append(selection, library.UID(uid))
	}
	if len(opts.Select) == 0 {
		p, err := buildPipeline(s, &opts.FilterOptions, f)
		if err != nil {
			return err
		}
		selection = p.UIDs()
	}

	sess, err := s.engine.NewExportSession(selection, source)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUnknownName, "failed to open export session", err)
	}
	sess.Apply(aopts)
	if opts.FixIndexes {
		sess.FixIndexes()
	}

	report := newExportReport(sess, opts, aopts)
	if opts.DryRun {
		if alert := sess.Allocator.Alert(); alert != alloc.AlertNone {
			return exportFailed(f, report, ErrCodeExportBlocked, alert.Message())
		}
		return exportDone(f, report)
	}

	writes, err := s.engine.Export(ctx, sess, target)
	switch {
	case engine.IsBlocked(err):
		return exportFailed(f, report, ErrCodeExportBlocked, err.Error())
	case engine.IsExportFailed(err):
		return exportFailed(f, report, ErrCodeExportFailed, err.Error())
	case err != nil && writes == nil:
		return f.Fail(ExitCommandError, ErrCodeGeneric, "export failed", err)
	case err != nil:
		s.log.Warn("export written but refresh failed", "session", sess.ID, "error", err)
	}
	report.Written = len(writes)
	return exportDone(f, report)
}

func newExportReport(sess *engine.ExportSession, opts *ExportOptions, aopts alloc.Options) *ExportReport {
	cands := sess.Allocator.Candidates()
	dest := sess.Allocator.Destinations()

	report := &ExportReport{
		SessionID: sess.ID,
		Target:    opts.To,
		Mode:      aopts.Mode.String(),
		Order:     aopts.Order.String(),
		Reverse:   aopts.Reverse,
		Alert:     sess.Allocator.Alert().String(),
		Entries:   make([]ExportEntry, len(cands)),
		Missing:   make([]int64, len(sess.Missing)),
		DryRun:    opts.DryRun,
	}
	for i, c := range cands {
		report.Entries[i] = ExportEntry{
			UID:    int64(c.UID),
			Name:   c.Name,
			Source: c.Source.String(),
			Slot:   dest[i].String(),
		}
	}
	for i, uid := range sess.Missing {
		report.Missing[i] = int64(uid)
	}
	return report
}

func exportDone(f *OutputFormatter, report *ExportReport) error {
	if f.Format == "json" {
		return writeExportJSON(f, CLIResponse{Status: "ok", Data: report, SessionID: report.SessionID})
	}
	if err := writeExportText(f, report); err != nil {
		return err
	}
	if report.DryRun {
		fmt.Fprintf(f.Writer, "%s Dry run: %s sounds allocated, nothing written\n",
			okText("✓"), humanize.Comma(int64(len(report.Entries))))
		return nil
	}
	fmt.Fprintf(f.Writer, "%s Exported %s sounds to %s\n",
		okText("✓"), humanize.Comma(int64(report.Written)), report.Target)
	return nil
}

func exportFailed(f *OutputFormatter, report *ExportReport, code, message string) error {
	if f.Format == "json" {
		resp := CLIResponse{
			Status:    "error",
			Data:      report,
			Error:     &CLIError{Code: code, Message: message},
			SessionID: report.SessionID,
		}
		if err := writeExportJSON(f, resp); err != nil {
			return err
		}
	} else {
		if err := writeExportText(f, report); err != nil {
			return err
		}
		fmt.Fprintf(f.Writer, "%s [%s]: %s\n", errorText("✗ Export refused"), code, message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}

func writeExportJSON(f *OutputFormatter, resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func writeExportText(f *OutputFormatter, report *ExportReport) error {
	fmt.Fprintf(f.Writer, "Session %s (mode %s, order %s", report.SessionID, report.Mode, report.Order)
	if report.Reverse {
		fmt.Fprint(f.Writer, ", reversed")
	}
	fmt.Fprintln(f.Writer, ")")

	rows := make([][]string, len(report.Entries))
	for i, e := range report.Entries {
		rows[i] = []string{strconv.FormatInt(e.UID, 10), e.Name, e.Source, e.Slot}
	}
	if err := writeTable(f.Writer, []string{"UID", "NAME", "FROM", "TO"}, rows); err != nil {
		return err
	}

	if len(report.Missing) > 0 {
		fmt.Fprintf(f.Writer, "%s %v\n", warnText("Skipped missing uids:"), report.Missing)
	}
	alert := report.Alert
	if alert == alloc.AlertNone.String() {
		alert = okText(alert)
	} else {
		alert = errorText(alert)
	}
	fmt.Fprintf(f.Writer, "Alert: %s\n", alert)
	return nil
}
