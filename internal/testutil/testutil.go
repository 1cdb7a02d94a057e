// Package testutil provides common test helpers for cloudmanager tests.
//
// The fake tools are POSIX shell scripts: they append their argv to a shared
// calls log so tests can assert on ordering, and the fake hypervisor blocks
// until ReleaseBoot is called.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/javanstorm/cloudmanager/internal/config"
)

// Env is a sandbox with fake qemu-img, qemu-system and docker executables.
type Env struct {
	Dir    string
	Config *config.Config
}

// RequireShell skips the test when /bin/sh is unavailable.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// NewEnv builds a sandbox config whose tools are fakes living in t.TempDir().
func NewEnv(t *testing.T) *Env {
	t.Helper()
	RequireShell(t)

	dir := t.TempDir()
	base := filepath.Join(dir, "base")

	cfg := &config.Config{
		BaseDir:          base,
		ISODir:           filepath.Join(base, "data", "iso"),
		DiskDir:          filepath.Join(base, "data", "disks"),
		LaunchDir:        filepath.Join(base, "config"),
		DiskName:         "disk.img",
		RAM:              "4G",
		CPUs:             2,
		DiskSize:         "5G",
		Accel:            "none",
		ContainerRuntime: filepath.Join(dir, "bin", "docker"),
		QemuImg:          filepath.Join(dir, "bin", "qemu-img"),
		QemuSystem:       filepath.Join(dir, "bin", "qemu-system-x86_64"),
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create sandbox directories: %v", err)
	}

	env := &Env{Dir: dir, Config: cfg}
	env.WriteTool("qemu-img", qemuImgScript)
	env.WriteTool("qemu-system-x86_64", qemuSystemScript)
	env.WriteTool("docker", dockerScript)
	return env
}

// WriteTool writes an executable script into the sandbox bin directory and
// returns its path. body may use $CALLS, $STATE and $NAME.
func (e *Env) WriteTool(name, body string) string {
	bin := filepath.Join(e.Dir, "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		panic(err)
	}
	path := filepath.Join(bin, name)
	script := fmt.Sprintf("#!/bin/sh\nCALLS=%q\nSTATE=%q\nNAME=%q\necho \"$NAME $*\" >> \"$CALLS\"\n%s\n",
		e.callsPath(), e.Dir, name, body)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		panic(err)
	}
	return path
}

func (e *Env) callsPath() string {
	return filepath.Join(e.Dir, "calls.log")
}

// Calls returns every recorded invocation as "<tool> <args...>".
func (e *Env) Calls() []string {
	f, err := os.Open(e.callsPath())
	if err != nil {
		return nil
	}
	defer f.Close()

	var calls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		calls = append(calls, sc.Text())
	}
	return calls
}

// CallsTo returns the recorded invocations of one tool.
func (e *Env) CallsTo(tool string) []string {
	var out []string
	for _, c := range e.Calls() {
		if strings.HasPrefix(c, tool+" ") || c == tool {
			out = append(out, c)
		}
	}
	return out
}

// AddISO creates an empty ISO file in the ISO directory.
func (e *Env) AddISO(name string) string {
	path := filepath.Join(e.Config.ISODir, name)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		panic(err)
	}
	return path
}

// ReleaseBoot lets the fake hypervisor exit with code.
func (e *Env) ReleaseBoot(code int) {
	if err := os.WriteFile(filepath.Join(e.Dir, "release"), []byte(fmt.Sprint(code)), 0644); err != nil {
		panic(err)
	}
}

// FailDiskCreate makes the fake qemu-img exit non-zero without a disk.
func (e *Env) FailDiskCreate() {
	e.WriteTool("qemu-img", `echo "qemu-img: Could not create disk" >&2; exit 1`)
}

// CreateTestDisk creates a sparse disk file at the given path with the specified size.
func CreateTestDisk(t *testing.T, path string, sizeMB int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test disk at %s: %v", path, err)
	}
	defer f.Close()

	if err := f.Truncate(sizeMB * 1024 * 1024); err != nil {
		t.Fatalf("failed to truncate test disk: %v", err)
	}
}

// qemu-img create -f qcow2 <path> <size>
const qemuImgScript = `
echo "Formatting '$4', fmt=qcow2 size=$5"
: > "$4"
`

// The boot blocks until $STATE/release exists, then exits with its content.
const qemuSystemScript = `
echo "qemu: booting"
while [ ! -f "$STATE/release" ]; do sleep 0.05; done
exit "$(cat "$STATE/release")"
`

const dockerScript = `
case "$1" in
  pull)      echo "Using default tag: latest"; echo "Status: Downloaded newer image for $2" ;;
  run)       echo "3f4e5d6c7b8a" ;;
  build)     echo "Successfully built 1a2b3c4d" ;;
  stop)      echo "$2" ;;
  search)    echo "NAME DESCRIPTION STARS"; echo "$2 official 100" ;;
  ps)        echo "CONTAINER ID IMAGE STATUS" ;;
  images)    echo "REPOSITORY TAG IMAGE ID" ;;
  --version) echo "Docker version 27.0.3, build 7d4bcd8" ;;
  sleep)     echo "sleeping"; while :; do sleep 0.05; done ;;
  *)         echo "docker: unknown command $1" >&2; exit 125 ;;
esac
`
