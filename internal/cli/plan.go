package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/taskflow/dag"
	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/validation"
)

var planFormats = []string{"levels", "tree", "dot"}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan GRAPH_FILE",
		Short: "Print the execution plan of a graph file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if appErr := validation.New().OneOf("format", format, planFormats).Validate(); appErr != nil {
				return appErr
			}
			cfg, err := flags.loadConfig(cmd.Flags(), nil)
			if err != nil {
				return err
			}
			gf, err := dag.LoadGraphFile(args[0])
			if err != nil {
				return err
			}
			o, err := gf.Build(dag.BuildOptions{DryRun: cfg.DryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "levels":
				levels, err := o.Levels()
				for i, level := range levels {
					names := make([]string, len(level))
					for j, t := range level {
						names[j] = t.Name()
					}
					fmt.Fprintf(out, "%d: %s\n", i, strings.Join(names, ", "))
				}
				return err
			case "tree":
				return o.DumpPlan(out)
			case "dot":
				return o.WriteDOT(out)
			default:
				return errors.InvalidInput("format", fmt.Sprintf("unknown plan format %q", format))
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "levels", "Output format: levels, tree or dot")
	return cmd
}
