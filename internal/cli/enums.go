package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/enums"
)

// NewEnumsCommand creates the enums command.
func NewEnumsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enums [domain]",
		Short: "Show enumeration tables",
		Long: `Show the enumeration tables cases use to name enum-backed fields,
with each enumerant's ordinal.

Examples:
  ptest enums
  ptest enums rwa_modes`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showEnums(rootOpts, args, cmd)
		},
	}
}

func showEnums(opts *RootOptions, args []string, cmd *cobra.Command) error {
	reg := enums.Default()

	domains := reg.Domains()
	if len(args) == 1 {
		if _, err := reg.Table(args[0]); err != nil {
			return WrapExitError(ExitCommandError, "unknown domain", err)
		}
		domains = args
	}

	tables := make(map[string][]string, len(domains))
	for _, d := range domains {
		t, err := reg.Table(d)
		if err != nil {
			return err
		}
		tables[d] = t.Names()
	}

	out := opts.formatter(cmd)
	if out.IsJSON() {
		return out.Success(tables)
	}

	w := out.Writer
	for _, d := range domains {
		fmt.Fprintf(w, "%s:\n", d)
		for i, name := range tables[d] {
			fmt.Fprintf(w, "  %3d %s\n", i, name)
		}
	}
	return nil
}
