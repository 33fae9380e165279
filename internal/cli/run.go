package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/taskflow/dag"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run GRAPH_FILE",
		Short: "Execute the task graph declared in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := start(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(cmd.Context()))

			gf, err := dag.LoadGraphFile(args[0])
			if err != nil {
				return err
			}
			o, err := gf.Build(s.buildOptions())
			if err != nil {
				return err
			}
			return s.execute(cmd.Context(), o)
		},
	}
}
