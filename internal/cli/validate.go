package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool `json:"valid"`
	Sounds      int  `json:"sounds"`
	Collections int  `json:"collections"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fixture.yaml>",
		Short: "Validate a library fixture without importing it",
		Long: `Check a YAML library fixture against the library schema and its
cross references (unknown sounds, duplicate names, slot collisions)
without touching the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	f.VerboseLog("Validating %s", path)

	lib, err := loadFixture(f, path)
	if err != nil {
		return err
	}

	result := ValidationResult{
		Valid:       true,
		Sounds:      len(lib.Sounds),
		Collections: len(lib.Collections),
	}
	if opts.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "%s Fixture valid (%d sounds, %d collections)\n",
		okText("✓"), result.Sounds, result.Collections)
	return nil
}
