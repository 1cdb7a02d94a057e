package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/testutil"
)

// writeConfig points a config.yaml at the sandbox tools.
func writeConfig(t *testing.T, env *testutil.Env) string {
	t.Helper()
	c := env.Config
	body := fmt.Sprintf(`base_dir: %q
disk_name: %q
disk_size: %q
ram: %q
cpus: %d
accel: none
qemu_img: %q
qemu_system: %q
container_runtime: %q
`, c.BaseDir, c.DiskName, c.DiskSize, c.RAM, c.CPUs, c.QemuImg, c.QemuSystem, c.ContainerRuntime)

	path := filepath.Join(env.Dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// resetFlags restores every flag to its default so commands can run twice.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cloudmanager dev")
	assert.Contains(t, out, "Commit:")
}

func TestDockerRunCommand(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)

	out, err := execute(t, "--config", cfgPath, "docker", "run", "nginx", "--name", "web1", "-p", "8080:80")
	require.NoError(t, err)
	assert.Contains(t, out, "3f4e5d6c7b8a")
	assert.Contains(t, out, "--- done ---")
	assert.Equal(t, []string{"docker run -d --name web1 -p 8080:80 nginx"}, env.CallsTo("docker"))
}

func TestDockerVersionLoadsConfig(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)

	out, err := execute(t, "--config", cfgPath, "docker", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Docker version 27.0.3")
}

func TestDockerFailurePropagates(t *testing.T) {
	env := testutil.NewEnv(t)
	env.WriteTool("docker", `echo "Error response from daemon: No such container: $2" >&2; exit 1`)
	cfgPath := writeConfig(t, env)

	out, err := execute(t, "--config", cfgPath, "docker", "stop", "ghost")
	require.Error(t, err)
	assert.Contains(t, out, "ERR: Error response from daemon")
	assert.Contains(t, out, "--- failed: exit status 1 ---")
}

func TestDockerRequiresArgument(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)

	_, err := execute(t, "--config", cfgPath, "docker", "pull")
	require.Error(t, err)
	assert.Empty(t, env.Calls())
}

func TestVMLaunchCommand(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)
	env.AddISO("ubuntu.iso")
	env.ReleaseBoot(0)

	out, err := execute(t, "--config", cfgPath, "vm", "launch", "--iso", "ubuntu.iso", "--ram", "2G")
	require.NoError(t, err)
	assert.Contains(t, out, "[vm] status: creating-disk")
	assert.Contains(t, out, "[vm] status: booting")
	assert.Contains(t, out, "qemu: booting")

	calls := env.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], "qemu-img create -f qcow2")
	assert.Contains(t, calls[1], "qemu-system-x86_64 -m 2G -smp 2")
}

func TestVMLaunchFromFile(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)
	env.AddISO("alpine.iso")
	env.ReleaseBoot(0)

	launch := `{"ram": "1G", "cpu": 3, "disk_size": "8G", "disk_name": "alpine.img", "iso_path": "alpine.iso"}`
	require.NoError(t, os.WriteFile(filepath.Join(env.Config.LaunchDir, "alpine.json"), []byte(launch), 0644))

	_, err := execute(t, "--config", cfgPath, "vm", "launch", "--from", "alpine.json", "--cpus", "1")
	require.NoError(t, err)

	disk := filepath.Join(env.Config.DiskDir, "alpine.img")
	calls := env.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "qemu-img create -f qcow2 "+disk+" 8G", calls[0])
	assert.Contains(t, calls[1], "-m 1G -smp 1 -hda "+disk)
}

func TestVMLaunchErrors(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)

	_, err := execute(t, "--config", cfgPath, "vm", "launch")
	var ve *orchestrator.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "iso", ve.Field)

	_, err = execute(t, "--config", cfgPath, "vm", "launch", "--iso", "missing.iso")
	var nf *orchestrator.ResourceNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "iso", nf.Resource)

	_, err = execute(t, "--config", cfgPath, "vm", "launch", "--from", "nope.json")
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "config", nf.Resource)

	assert.Empty(t, env.Calls())
}

func TestVMISOsCommand(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)

	out, err := execute(t, "--config", cfgPath, "vm", "isos")
	require.NoError(t, err)
	assert.Contains(t, out, "No ISO images")

	env.AddISO("debian.iso")
	out, err = execute(t, "--config", cfgPath, "vm", "isos")
	require.NoError(t, err)
	assert.Equal(t, "debian.iso\n", out)
}

func TestStatusCommand(t *testing.T) {
	env := testutil.NewEnv(t)
	cfgPath := writeConfig(t, env)
	env.AddISO("ubuntu.iso")

	out, err := execute(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Base directory: "+env.Config.BaseDir)
	assert.Contains(t, out, "accelerator none")
	assert.Contains(t, out, "ISOs: 1")
	assert.Contains(t, out, "Disk: not created")
	assert.Contains(t, out, env.Config.QemuImg)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "status")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	path := filepath.Join(home, "cm", "config.yaml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err, "init must not overwrite without --force")

	t.Setenv("CLOUDMANAGER_RAM", "16G")
	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "ram:")
	assert.Contains(t, out, "16G")
	assert.Contains(t, out, "container_runtime:")
}
