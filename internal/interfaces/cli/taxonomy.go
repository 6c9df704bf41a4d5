package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/internal/intelligence/taxonomy"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// NewTaxonomyCmd groups the offline taxonomy tools.
func NewTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Validate entity taxonomies and test them against text",
	}
	cmd.AddCommand(newTaxonomyValidateCmd(), newTaxonomyMatchCmd())
	return cmd
}

func newTaxonomyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a taxonomy file is well formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadTaxonomyStrict(args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, taxonomySummary{Path: args[0], Stats: model.Stats()})
		},
	}
}

func newTaxonomyMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <file> <text>...",
		Short: "Show the entities a taxonomy recognises in text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadTaxonomyStrict(args[0])
			if err != nil {
				return err
			}
			matches := taxonomy.NewMatcher(model).Recognize(strings.Join(args[1:], " "))
			return PrintResult(cmd, matchTable(matches))
		},
	}
}

// loadTaxonomyStrict differs from server startup: a missing file is an
// error here.
func loadTaxonomyStrict(path string) (*taxonomy.EntityModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedTaxonomy, "cannot read entity taxonomy").WithDetail(path)
	}
	return taxonomy.LoadFile(path)
}

type taxonomySummary struct {
	Path string `json:"path"`
	taxonomy.Stats
}

func (s taxonomySummary) String() string {
	return fmt.Sprintf("%s: valid (%d groups, %d entities, %d values)",
		s.Path, s.Groups, s.Entities, s.Values)
}

type matchTable []nlu.EntityMatch

func (m matchTable) TableHeaders() []string {
	return []string{"GROUP", "ENTITY", "START", "END"}
}

func (m matchTable) TableRows() [][]string {
	rows := make([][]string, 0, len(m))
	for _, e := range m {
		rows = append(rows, []string{e.Entity, e.Value, fmt.Sprint(e.Start), fmt.Sprint(e.End)})
	}
	return rows
}

//Personal.AI order the ending
