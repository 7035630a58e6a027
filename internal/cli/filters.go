package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/filter"
	"github.com/roach88/patchlib/internal/library"
)

// FilterOptions holds the stage values shared by list and export.
type FilterOptions struct {
	Name        string
	Collections []string
	Categories  []string
	Tags        []string
	Bank        int
}

func (o *FilterOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Name, "name", "", "case-insensitive name substring")
	cmd.Flags().StringSliceVar(&o.Collections, "collection", nil, "keep sounds in any of these collections")
	cmd.Flags().StringSliceVar(&o.Categories, "category", nil, "keep sounds in any of these categories")
	cmd.Flags().StringSliceVar(&o.Tags, "tag", nil, "keep sounds carrying all of these tags")
	cmd.Flags().IntVar(&o.Bank, "bank", filter.NoBank, "keep sounds in this bank (0-7) of the single --collection")
}

// buildPipeline installs the stage cascade on the session's engine:
// collection, category, tag, bank, then name.
func buildPipeline(s *session, o *FilterOptions, f *OutputFormatter) (*filter.Pipeline, error) {
	ids := make([]library.CollectionID, 0, len(o.Collections))
	for _, name := range o.Collections {
		id, err := s.collection(f, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	cats := make([]library.Category, 0, len(o.Categories))
	for _, name := range o.Categories {
		c, err := library.ParseCategory(name)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeUnknownName, "invalid --category", err)
		}
		cats = append(cats, c)
	}

	collection := filter.NewCollectionStage()
	collection.SetCollections(ids...)
	category := filter.NewCategoryStage()
	category.SetCategories(cats...)
	tag := filter.NewTagStage()
	tag.SetTags(o.Tags...)
	stages := []*filter.Stage{collection, category, tag}

	if o.Bank != filter.NoBank {
		if len(ids) != 1 {
			return nil, f.Fail(ExitCommandError, ErrCodeUnknownName, "--bank needs exactly one --collection", nil)
		}
		if o.Bank < 0 || o.Bank >= library.BankCount {
			return nil, f.Fail(ExitCommandError, ErrCodeUnknownName,
				fmt.Sprintf("--bank %d out of range [0, %d)", o.Bank, library.BankCount), nil)
		}
		bank := filter.NewBankStage(ids[0])
		bank.SetBank(o.Bank)
		stages = append(stages, bank)
	}

	name := filter.NewNameStage()
	name.SetName(o.Name)
	stages = append(stages, name)

	return s.engine.SetStages(stages...), nil
}
