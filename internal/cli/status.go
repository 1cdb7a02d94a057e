package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/deps"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, disk and tool status",
	Long:  `Display the directories in use, the ISO images and disk found there, the hypervisor settings and whether the external tools are installed.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	out := cmd.OutOrStdout()
	a := newApp(cfg)
	defer a.broker.Close()

	fmt.Fprintf(out, "Base directory: %s\n", cfg.BaseDir)
	fmt.Fprintf(out, "  ISOs:         %s\n", cfg.ISODir)
	fmt.Fprintf(out, "  Disks:        %s\n", cfg.DiskDir)
	fmt.Fprintf(out, "  Launch files: %s\n", cfg.LaunchDir)
	fmt.Fprintln(out)

	info := a.orch.Driver().Info()
	accel := info.Accel
	if accel == "" {
		accel = "none"
	}
	fmt.Fprintf(out, "Hypervisor: %s (%s, accelerator %s)\n", info.Name, info.Arch, accel)
	fmt.Fprintf(out, "Defaults: %s RAM, %d CPUs, %s disk\n", cfg.RAM, cfg.CPUs, cfg.DiskSize)
	fmt.Fprintln(out)

	isos, err := a.orch.ListISOs()
	if err != nil {
		fmt.Fprintf(out, "ISOs: error listing (%v)\n", err)
	} else {
		fmt.Fprintf(out, "ISOs: %d\n", len(isos))
		for _, n := range isos {
			fmt.Fprintf(out, "  %s\n", n)
		}
	}

	diskPath := cfg.DiskPath()
	if fi, err := os.Stat(diskPath); err == nil {
		fmt.Fprintf(out, "Disk:\n")
		fmt.Fprintf(out, "  Path: %s\n", diskPath)
		fmt.Fprintf(out, "  Size: %.2f MB (allocated)\n", float64(fi.Size())/(1024*1024))
	} else {
		fmt.Fprintf(out, "Disk: not created (%s, created on first launch)\n", diskPath)
	}
	fmt.Fprintln(out)

	checker := deps.NewChecker()
	results := checker.Check(deps.Required(cfg))
	fmt.Fprintf(out, "Tools (%s):\n", checker.HostOS())
	for _, r := range results {
		if r.Found() {
			fmt.Fprintf(out, "  %-12s %s\n", r.Dependency.Name, r.Path)
		} else {
			fmt.Fprintf(out, "  %-12s missing - %s\n", r.Dependency.Name, r.Hint)
		}
	}

	if missing := deps.Missing(results); len(missing) > 0 {
		fmt.Fprintf(out, "\n%d tool(s) missing; related actions will fail to start.\n", len(missing))
	}
	return nil
}
