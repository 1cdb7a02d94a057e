package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `Show the effective configuration or write a config.yaml with the
current values.

Settings come from defaults, then config.yaml, then CLOUDMANAGER_*
environment variables (e.g. CLOUDMANAGER_RAM=8G).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Global.Settings()
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		for _, k := range keys {
			fmt.Fprintf(out, "%-18s %v\n", k+":", settings[k])
		}
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.yaml with the current values",
	Long:  `Write config.yaml (the --config path, or ~/.cloudmanager/config.yaml) with the effective values.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			var err error
			if path, err = config.DefaultFile(); err != nil {
				return err
			}
		}
		if err := config.Save(config.Global, path, configInitForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
