package main

import (
	"github.com/muir/napi/nconfig"

	"github.com/spf13/cobra"
)

// state is shared by the subcommands.  cfg is filled in before any
// subcommand runs.
type state struct {
	configPath string
	logLevel   string
	cfg        *nconfig.Config
}

func newRootCmd() *cobra.Command {
	st := &state{}

	cmd := &cobra.Command{
		Use:          "notes",
		Short:        "Notes API server and client",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := nconfig.Load(st.configPath)
			if err != nil {
				return err
			}
			if st.logLevel != "" {
				cfg.Log.Level = st.logLevel
			}
			st.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&st.configPath, "config", "", "config file (default: search ./notes.yaml, ./configs, ~/.notes)")
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override log.level")
	cmd.AddCommand(serveCmd(st), clientCmd(st))
	return cmd
}
