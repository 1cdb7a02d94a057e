package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/process"
)

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Run container runtime actions",
	Long: `Run one container runtime command in the foreground and stream its output.
The runtime is docker unless container_runtime names another CLI (e.g. podman).`,
}

// Flags for docker sub-commands
var (
	dockerRuntime string
	dockerTag     string
	dockerName    string
	dockerPorts   []string
	dockerAll     bool
)

func dockerAction(kind command.Kind, params func(args []string) map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		req := orchestrator.DockerActionRequest{Kind: kind}
		if params != nil {
			req.Params = params(args)
		}
		cfg := *config.Global
		if dockerRuntime != "" {
			cfg.ContainerRuntime = dockerRuntime
		}
		return runForeground(&cfg, cmd.OutOrStdout(), func(ctx context.Context, a *app) (*process.Handle, error) {
			return a.orch.DockerAction(req)
		})
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

var dockerBuildCmd = &cobra.Command{
	Use:   "build <path>",
	Short: "Build an image from a Dockerfile directory",
	Args:  cobra.ExactArgs(1),
	RunE: dockerAction(command.KindImageBuild, func(args []string) map[string]string {
		return map[string]string{orchestrator.ParamPath: args[0], orchestrator.ParamTag: dockerTag}
	}),
}

var dockerPullCmd = &cobra.Command{
	Use:   "pull <image>",
	Short: "Pull an image",
	Args:  cobra.ExactArgs(1),
	RunE: dockerAction(command.KindImagePull, func(args []string) map[string]string {
		return map[string]string{orchestrator.ParamImage: args[0], orchestrator.ParamTag: dockerTag}
	}),
}

var dockerRunCmd = &cobra.Command{
	Use:     "run <image>",
	Short:   "Run a detached container",
	Example: `  cloudmanager docker run nginx --name web1 -p 8080:80`,
	Args:    cobra.ExactArgs(1),
	RunE: dockerAction(command.KindImageRun, func(args []string) map[string]string {
		return map[string]string{
			orchestrator.ParamImage: args[0],
			orchestrator.ParamTag:   dockerTag,
			orchestrator.ParamName:  dockerName,
			orchestrator.ParamPorts: strings.Join(dockerPorts, ","),
		}
	}),
}

var dockerStopCmd = &cobra.Command{
	Use:   "stop <container>",
	Short: "Stop a container",
	Args:  cobra.ExactArgs(1),
	RunE: dockerAction(command.KindContainerStop, func(args []string) map[string]string {
		return map[string]string{orchestrator.ParamContainerID: args[0]}
	}),
}

var dockerSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the registry",
	Args:  cobra.ExactArgs(1),
	RunE: dockerAction(command.KindImageSearch, func(args []string) map[string]string {
		return map[string]string{orchestrator.ParamTerm: firstArg(args)}
	}),
}

var dockerPsCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers",
	Args:  cobra.NoArgs,
	RunE: dockerAction(command.KindContainerList, func(args []string) map[string]string {
		return map[string]string{orchestrator.ParamAll: strconv.FormatBool(dockerAll)}
	}),
}

var dockerImagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List local images",
	Args:  cobra.NoArgs,
	RunE:  dockerAction(command.KindImageList, nil),
}

var dockerVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the runtime client version",
	Args:  cobra.NoArgs,
	RunE:  dockerAction(command.KindVersionCheck, nil),
}

func init() {
	dockerCmd.PersistentFlags().StringVar(&dockerRuntime, "runtime", "", "container CLI to use instead of container_runtime (e.g. podman)")
	dockerBuildCmd.Flags().StringVarP(&dockerTag, "tag", "t", "", "image tag")
	dockerPullCmd.Flags().StringVar(&dockerTag, "tag", "", "image tag")
	dockerRunCmd.Flags().StringVar(&dockerTag, "tag", "", "image tag")
	dockerRunCmd.Flags().StringVar(&dockerName, "name", "", "container name")
	dockerRunCmd.Flags().StringSliceVarP(&dockerPorts, "publish", "p", nil, "publish a port (host:container), repeatable")
	dockerPsCmd.Flags().BoolVarP(&dockerAll, "all", "a", false, "include stopped containers")

	dockerCmd.AddCommand(dockerBuildCmd)
	dockerCmd.AddCommand(dockerPullCmd)
	dockerCmd.AddCommand(dockerRunCmd)
	dockerCmd.AddCommand(dockerStopCmd)
	dockerCmd.AddCommand(dockerSearchCmd)
	dockerCmd.AddCommand(dockerPsCmd)
	dockerCmd.AddCommand(dockerImagesCmd)
	dockerCmd.AddCommand(dockerVersionCmd)
}
