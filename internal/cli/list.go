package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/filter"
	"github.com/roach88/patchlib/internal/library"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	FilterOptions
	Sort string
}

// SoundInfo is one listed row.
type SoundInfo struct {
	UID      int64    `json:"uid"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Slots    []string `json:"slots"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sounds through the filter cascade",
		Long: `List the sounds that pass every filter, in the chosen order.

Stages run in cascade order: collection, category, tag, bank, name.
An unset stage passes every sound. --bank and --sort slot read slots
from the single --collection given.

Examples:
  patchlib list --category Bass,Pad --tag warm
  patchlib list --collection Live --bank 1 --sort slot
  patchlib list --name "pad" --sort name --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Sort, "sort", "base", "row order (base|slot|name|category)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	mode, err := filter.ParseSortMode(opts.Sort)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUnknownName, "invalid --sort", err)
	}

	s, err := openSession(commandContext(cmd), opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := buildPipeline(s, &opts.FilterOptions, f)
	if err != nil {
		return err
	}

	var sortBy library.CollectionID
	if mode == filter.SortSlot {
		if len(opts.Collections) != 1 {
			return f.Fail(ExitCommandError, ErrCodeUnknownName, "--sort slot needs exactly one --collection", nil)
		}
		sortBy = s.collections[opts.Collections[0]]
	}

	idx := p.Snapshot().Index()
	rows := p.Sorted(sortBy, mode)
	infos := make([]SoundInfo, len(rows))
	for i, r := range rows {
		slots := []string{}
		for _, loc := range idx.Locations(r.UID) {
			name, _ := idx.Name(loc.Collection)
			slots = append(slots, fmt.Sprintf("%s@%s", name, loc.Slot))
		}
		infos[i] = SoundInfo{
			UID:      int64(r.UID),
			Name:     r.DisplayName(),
			Category: r.Category.String(),
			Tags:     append([]string{}, r.Tags...),
			Slots:    slots,
		}
	}
	s.log.Debug("listed sounds", "rows", len(infos), "total", p.Snapshot().Len(), "sort", mode.String())

	if opts.Format == "json" {
		return f.Success(infos)
	}

	table := make([][]string, len(infos))
	for i, r := range infos {
		table[i] = []string{
			strconv.FormatInt(r.UID, 10),
			r.Name,
			r.Category,
			strings.Join(r.Tags, ","),
			strings.Join(r.Slots, " "),
		}
	}
	if err := writeTable(f.Writer, []string{"UID", "NAME", "CATEGORY", "TAGS", "SLOTS"}, table); err != nil {
		return err
	}
	fmt.Fprintf(f.Writer, "%s of %s sounds\n",
		humanize.Comma(int64(len(infos))), humanize.Comma(int64(p.Snapshot().Len())))
	return nil
}
