package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/taskflow/config"
	"github.com/kbukum/taskflow/pcapstats"
)

func newPcapCmd(flags *globalFlags) *cobra.Command {
	var (
		epoch       int64
		forceReplot bool
		forceReport bool
		debug       bool
		projectDir  string
	)

	cmd := &cobra.Command{
		Use:   "pcap PCAP...",
		Short: "Build pcap-stats, report on every capture and plot the reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			s, err := start(cmd, flags, func(cfg *config.Config) {
				if fs.Changed("epoch") {
					cfg.Pcap.EpochNS = epoch
				}
				if fs.Changed("debug") {
					cfg.Pcap.Debug = debug
				}
				if fs.Changed("project-dir") {
					cfg.Pcap.ProjectDir = projectDir
				}
			})
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(cmd.Context()))

			o, err := pcapstats.Pipeline(s.cfg.Pcap, args, pcapstats.Options{
				Force:       s.cfg.Force,
				ForceReport: forceReport,
				ForceReplot: forceReplot,
				DryRun:      s.cfg.DryRun,
				ShowCmds:    s.cfg.ShowCmds,
				ShowOutput:  s.cfg.ShowCmdsOutput,
				Silence:     s.cfg.Silence,
			})
			if err != nil {
				return err
			}
			return s.execute(cmd.Context(), o)
		},
	}

	cmd.Flags().Int64Var(&epoch, "epoch", pcapstats.DefaultEpochNS, "Epoch duration in nanoseconds for the pcap stats tracker")
	cmd.Flags().BoolVar(&forceReplot, "force-replot", false, "Force re-plotting even if the output files already exist")
	cmd.Flags().BoolVar(&forceReport, "force-report", false, "Force report generation even if the output files already exist")
	cmd.Flags().BoolVar(&debug, "debug", false, "Build the stats tracker in debug mode")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "Project root holding build.sh, tools/, reports/ and plots/")

	return cmd
}
