package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/library"
)

// CollectionInfo describes one collection in the index.
type CollectionInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Sounds   int    `json:"sounds"`
	Free     int    `json:"free"`
	ReadOnly bool   `json:"read_only"`
}

// NewCollectionsCommand creates the collections command.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "collections",
		Short:         "List collections in index order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollections(rootOpts, cmd)
		},
	}
	return cmd
}

func runCollections(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	s, err := openSession(commandContext(cmd), opts, cmd, f)
	if err != nil {
		return err
	}
	defer s.close()

	snap := s.engine.View().Snapshot()
	idx := snap.Index()
	counts := make(map[library.CollectionID]int)
	for i := 0; i < snap.Len(); i++ {
		for _, loc := range idx.Locations(snap.Row(i).UID) {
			counts[loc.Collection]++
		}
	}

	infos := []CollectionInfo{}
	for _, id := range idx.Collections() {
		name, _ := idx.Name(id)
		kind, _ := idx.Kind(id)
		infos = append(infos, CollectionInfo{
			ID:       int64(id),
			Name:     name,
			Kind:     kind.String(),
			Sounds:   counts[id],
			Free:     library.SlotCount - counts[id],
			ReadOnly: kind == library.KindFactory,
		})
	}

	if opts.Format == "json" {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(f.Writer, "No collections.")
		return nil
	}

	rows := make([][]string, len(infos))
	for i, c := range infos {
		rows[i] = []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Kind,
			humanize.Comma(int64(c.Sounds)),
			humanize.Comma(int64(c.Free)),
		}
	}
	return writeTable(f.Writer, []string{"ID", "NAME", "KIND", "SOUNDS", "FREE"}, rows)
}
