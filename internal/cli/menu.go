package cli

import (
	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/console"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Open the interactive menu",
	Long: `Open the interactive menu console. Processes started from the menu keep
running while you navigate; quitting the menu stops them.`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

func runMenu(cmd *cobra.Command, args []string) error {
	a := newApp(config.Global)
	defer a.shutdown(cmd.OutOrStdout())

	ctx, stop := signalContext()
	defer stop()

	return console.New(a.cfg, a.orch, a.broker, cmd.OutOrStdout()).Run(ctx)
}
