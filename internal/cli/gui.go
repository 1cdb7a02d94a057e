package cli

import (
	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/gui"
	"github.com/javanstorm/cloudmanager/internal/logging"
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the graphical dashboard",
	Long:  `Open a window with VM and Docker forms, the process list and a live log view.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(config.Global)
		gui.Run(a.cfg, a.orch, a.broker, func() {
			logging.Logger.Info("Dashboard closed")
		})
		a.shutdown(cmd.OutOrStdout())
		return nil
	},
}
