package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/cases"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions

	// Catalog overrides the built-in cases (for testing).
	Catalog *cases.Catalog
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return newListCommand(&ListOptions{RootOptions: rootOpts})
}

func newListCommand(opts *ListOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in cases",
		Long: `List the built-in cases with the number of satellites each needs
("1+" means any number).

Examples:
  ptest list
  ptest list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCases(opts, cmd)
		},
	}
}

func listCases(opts *ListOptions, cmd *cobra.Command) error {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = cases.Default()
	}
	infos := catalog.Describe()

	out := opts.formatter(cmd)
	if out.IsJSON() {
		return out.Success(infos)
	}

	w := out.Writer
	fmt.Fprintf(w, "%-20s %-4s %s\n", "NAME", "SATS", "DESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%-20s %-4s %s\n", info.Name, info.Satellites, info.Description)
	}
	return nil
}
