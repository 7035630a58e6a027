package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/fixture"
	"github.com/roach88/patchlib/internal/store"
)

// ImportResult summarises an imported fixture.
type ImportResult struct {
	Fixture     string `json:"fixture"`
	Sounds      int    `json:"sounds"`
	Collections int    `json:"collections"`
	Placements  int    `json:"placements"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Import a library fixture into the database",
		Long: `Validate a YAML library fixture and write its sounds and collections
into the database, creating the database if it does not exist.

Collection names must not already exist in the database.

Example:
  patchlib import --db ./lib.db ./library.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	log := newLogger(opts, cmd)

	lib, err := loadFixture(f, path)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	imported, err := fixture.Apply(commandContext(cmd), st, lib)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeImportFailed, "failed to import fixture", err)
	}

	result := ImportResult{
		Fixture:     filepath.Base(path),
		Sounds:      len(imported.Sounds),
		Collections: len(imported.Collections),
	}
	for _, c := range lib.Collections {
		result.Placements += len(c.Slots)
	}
	log.Info("fixture imported", "path", path, "sounds", result.Sounds, "collections", result.Collections)

	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%s Imported %s sounds, %s collections, %s placements from %s\n",
		okText("✓"),
		humanize.Comma(int64(result.Sounds)),
		humanize.Comma(int64(result.Collections)),
		humanize.Comma(int64(result.Placements)),
		result.Fixture)
	return nil
}

// loadFixture reads and validates a fixture, reporting failures through f.
func loadFixture(f *OutputFormatter, path string) (*fixture.Library, error) {
	lib, err := fixture.Load(path)
	switch {
	case err == nil:
		return lib, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "fixture not found: "+path, nil)
	default:
		return nil, f.Fail(ExitFailure, ErrCodeInvalidFixture, "invalid fixture", err)
	}
}
