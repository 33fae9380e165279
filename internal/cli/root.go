package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/taskflow/config"
	"github.com/kbukum/taskflow/version"
)

// NewRootCmd assembles the taskflow command tree.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Run file-driven task graphs with bounded parallelism",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newRunCmd(&flags),
		newPcapCmd(&flags),
		newPlanCmd(&flags),
		newVersionCmd(),
	)
	return rootCmd
}

// start loads configuration and opens a session for cmd.
func start(cmd *cobra.Command, flags *globalFlags, override func(*config.Config)) (*session, error) {
	cfg, err := flags.loadConfig(cmd.Flags(), override)
	if err != nil {
		return nil, err
	}
	s, err := newSession(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	s.showPlan = flags.showPlan
	return s, nil
}
