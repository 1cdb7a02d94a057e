package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/process"
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Launch and inspect the VM",
	Long:  `Create the VM disk if needed and boot QEMU from an installer ISO.`,
}

var vmLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch the VM",
	Long: `Launch the VM in the foreground. The disk is created first when it does
not exist yet. Ctrl+C stops the VM.

Values come from flags, then from a JSON launch file given with --from,
then from the configuration defaults.`,
	Example: `  cloudmanager vm launch --iso ubuntu.iso
  cloudmanager vm launch --ram 8G --cpus 4 --disk-size 40G --iso ~/Downloads/debian.iso
  cloudmanager vm launch --from dev.json`,
	Args: cobra.NoArgs,
	RunE: runVMLaunch,
}

var vmISOsCmd = &cobra.Command{
	Use:   "isos",
	Short: "List ISO images",
	Long:  `List the ISO images found in the ISO directory.`,
	Args:  cobra.NoArgs,
	RunE:  runVMISOs,
}

// Flags for vm launch
var (
	launchRAM      string
	launchCPUs     int
	launchDiskSize string
	launchISO      string
	launchDiskName string
	launchFrom     string
)

func init() {
	vmLaunchCmd.Flags().StringVar(&launchRAM, "ram", "", "guest memory, e.g. 4G")
	vmLaunchCmd.Flags().IntVar(&launchCPUs, "cpus", 0, "virtual CPUs")
	vmLaunchCmd.Flags().StringVar(&launchDiskSize, "disk-size", "", "size of a newly created disk, e.g. 20G")
	vmLaunchCmd.Flags().StringVar(&launchISO, "iso", "", "ISO file name in the ISO directory, or a path")
	vmLaunchCmd.Flags().StringVar(&launchDiskName, "disk-name", "", "disk file name in the disk directory")
	vmLaunchCmd.Flags().StringVar(&launchFrom, "from", "", "JSON launch file (path or name in the launch directory)")

	vmCmd.AddCommand(vmLaunchCmd)
	vmCmd.AddCommand(vmISOsCmd)
}

// launchRequest merges flags over the launch file over the config defaults.
func launchRequest(cmd *cobra.Command, cfg *config.Config) (orchestrator.LaunchRequest, error) {
	req := orchestrator.LaunchRequest{
		RAM:      cfg.RAM,
		CPUs:     cfg.CPUs,
		DiskSize: cfg.DiskSize,
		DiskName: cfg.DiskName,
	}

	if launchFrom != "" {
		lf, err := config.LoadLaunchFile(launchFrom, cfg.LaunchDir)
		if errors.Is(err, config.ErrLaunchFileNotFound) {
			return req, &orchestrator.ResourceNotFoundError{
				Resource: "config",
				Name:     launchFrom,
				Searched: []string{launchFrom, filepath.Join(cfg.LaunchDir, launchFrom)},
			}
		}
		if err != nil {
			return req, fmt.Errorf("load launch file: %w", err)
		}
		req.RAM = lf.RAM
		req.CPUs = lf.CPUs
		req.DiskSize = lf.DiskSize
		req.DiskName = lf.DiskName
		req.ISO = lf.ISOPath
	}

	flags := cmd.Flags()
	if flags.Changed("ram") {
		req.RAM = launchRAM
	}
	if flags.Changed("cpus") {
		req.CPUs = launchCPUs
	}
	if flags.Changed("disk-size") {
		req.DiskSize = launchDiskSize
	}
	if flags.Changed("iso") {
		req.ISO = launchISO
	}
	if flags.Changed("disk-name") {
		req.DiskName = launchDiskName
	}
	return req, nil
}

func runVMLaunch(cmd *cobra.Command, args []string) error {
	req, err := launchRequest(cmd, config.Global)
	if err != nil {
		return err
	}

	return runForeground(config.Global, cmd.OutOrStdout(), func(ctx context.Context, a *app) (*process.Handle, error) {
		info := a.orch.Driver().Info()
		fmt.Fprintf(cmd.OutOrStdout(), "Launching VM: %s RAM, %d CPUs, disk %s, accelerator %q\n",
			req.RAM, req.CPUs, req.DiskSize, info.Accel)
		return a.orch.LaunchVM(ctx, req)
	})
}

func runVMISOs(cmd *cobra.Command, args []string) error {
	a := newApp(config.Global)
	names, err := a.orch.ListISOs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No ISO images in %s\n", config.Global.ISODir)
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}
