package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/process"
	"github.com/javanstorm/cloudmanager/internal/session"
	"github.com/javanstorm/cloudmanager/internal/testutil"
)

const waitFor = 10 * time.Second

type fixture struct {
	env    *testutil.Env
	rec    *events.Recorder
	runner *process.Runner
	orch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	rec := &events.Recorder{}
	reg := session.NewRegistry(rec)
	runner := process.NewRunner(rec, process.WithRegistrar(reg), process.WithWaitDelay(500*time.Millisecond))

	t.Cleanup(func() {
		env.ReleaseBoot(0)
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = runner.Shutdown(ctx)
	})

	return &fixture{
		env:    env,
		rec:    rec,
		runner: runner,
		orch:   New(env.Config, runner, reg),
	}
}

func (f *fixture) waitStatus(t *testing.T, want session.VMStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.orch.CurrentVMStatus() == want
	}, waitFor, 10*time.Millisecond, "VM never reached %s (now %s)", want, f.orch.CurrentVMStatus())
}

func defaultRequest() LaunchRequest {
	return LaunchRequest{RAM: "4G", CPUs: 2, DiskSize: "5G", ISO: "ubuntu.iso"}
}

func TestLaunchVMCreatesDiskThenBoots(t *testing.T) {
	f := newFixture(t)
	iso := f.env.AddISO("ubuntu.iso")
	disk := filepath.Join(f.env.Config.DiskDir, "disk.img")

	assert.Equal(t, session.VMStopped, f.orch.CurrentVMStatus())

	boot, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	require.NotNil(t, boot)
	f.waitStatus(t, session.VMRunning)

	vm := f.orch.VM()
	assert.Equal(t, disk, vm.DiskPath)
	assert.Equal(t, iso, vm.ISOPath)
	assert.Equal(t, boot.ID(), vm.BootHandle)

	diskHandle, err := f.orch.Handle(vm.DiskHandle)
	require.NoError(t, err)
	assert.Equal(t, process.Succeeded, diskHandle.State())
	assert.False(t, diskHandle.EndTime().After(boot.StartTime()), "disk creation must finish before the boot starts")

	calls := f.env.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "qemu-img create -f qcow2 "+disk+" 5G", calls[0])
	assert.Equal(t, "qemu-system-x86_64 -m 4G -smp 2 -hda "+disk+" -boot d -cdrom "+iso, calls[1])

	f.env.ReleaseBoot(0)
	f.waitStatus(t, session.VMStopped)

	assert.Equal(t, []string{"creating-disk", "booting", "running", "stopped"}, f.rec.StatusesOf(""))
	assert.Equal(t, process.Succeeded, boot.State())
}

func TestLaunchVMExistingDiskSkipsCreate(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")
	testutil.CreateTestDisk(t, filepath.Join(f.env.Config.DiskDir, "disk.img"), 1)

	_, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	f.waitStatus(t, session.VMRunning)

	assert.Empty(t, f.env.CallsTo("qemu-img"))
	assert.Len(t, f.env.CallsTo("qemu-system-x86_64"), 1)
	assert.Empty(t, f.orch.VM().DiskHandle)
	assert.Equal(t, []string{"booting", "running"}, f.rec.StatusesOf(""))
}

func TestLaunchVMAlreadyRunning(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")

	_, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	f.waitStatus(t, session.VMRunning)

	before := len(f.orch.Handles())
	h, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	assert.Nil(t, h)
	assert.ErrorIs(t, err, session.ErrAlreadyRunning)
	assert.Len(t, f.orch.Handles(), before)
	assert.Len(t, f.env.CallsTo("qemu-system-x86_64"), 1)
	assert.Equal(t, session.VMRunning, f.orch.CurrentVMStatus())
}

func TestLaunchVMDiskFailure(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")
	f.env.FailDiskCreate()

	_, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrProcessFailure)
	assert.Equal(t, session.VMError, f.orch.CurrentVMStatus())
	assert.ErrorIs(t, f.orch.VM().Err, process.ErrProcessFailure)
	assert.Empty(t, f.env.CallsTo("qemu-system-x86_64"))

	// Error accepts a new launch, evaluated fresh.
	_, err = f.orch.LaunchVM(context.Background(), defaultRequest())
	assert.ErrorIs(t, err, process.ErrProcessFailure)
	assert.Len(t, f.env.CallsTo("qemu-img"), 2)
}

func TestLaunchVMBootFailure(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")

	boot, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	f.waitStatus(t, session.VMRunning)

	f.env.ReleaseBoot(1)
	f.waitStatus(t, session.VMError)

	assert.Equal(t, process.Failed, boot.State())
	assert.ErrorIs(t, f.orch.VM().Err, process.ErrProcessFailure)
}

func TestLaunchVMISOFromLiteralPath(t *testing.T) {
	f := newFixture(t)
	iso := filepath.Join(f.env.Dir, "elsewhere", "custom.iso")
	require.NoError(t, os.MkdirAll(filepath.Dir(iso), 0755))
	require.NoError(t, os.WriteFile(iso, nil, 0644))

	req := defaultRequest()
	req.ISO = iso
	_, err := f.orch.LaunchVM(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, iso, f.orch.VM().ISOPath)
}

func TestLaunchVMISONotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	var nf *ResourceNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "iso", nf.Resource)
	assert.Len(t, nf.Searched, 2)
	assert.Empty(t, f.env.Calls())
	assert.Equal(t, session.VMStopped, f.orch.CurrentVMStatus())
}

func TestLaunchVMValidation(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")

	tests := []struct {
		name  string
		edit  func(*LaunchRequest)
		field string
	}{
		{"missing ram", func(r *LaunchRequest) { r.RAM = "" }, "ram"},
		{"bad ram", func(r *LaunchRequest) { r.RAM = "lots" }, "ram"},
		{"zero cpus", func(r *LaunchRequest) { r.CPUs = 0 }, "cpus"},
		{"missing disk size", func(r *LaunchRequest) { r.DiskSize = "" }, "diskSize"},
		{"missing iso", func(r *LaunchRequest) { r.ISO = "" }, "iso"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := defaultRequest()
			tt.edit(&req)
			_, err := f.orch.LaunchVM(context.Background(), req)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Empty(t, f.env.Calls())
}

func TestCancelBoot(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")

	boot, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	f.waitStatus(t, session.VMRunning)

	require.NoError(t, f.orch.Cancel(boot.ID()))
	assert.Equal(t, process.Failed, boot.State())
	assert.ErrorIs(t, boot.Err(), process.ErrCancelled)
	published := len(f.rec.Lines(boot.ID()))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.runner.Shutdown(ctx))

	assert.Len(t, f.rec.Lines(boot.ID()), published, "no output after cancel")
	f.waitStatus(t, session.VMError)
	assert.Empty(t, f.orch.ActiveHandles())

	assert.ErrorIs(t, f.orch.Cancel("unknown"), session.ErrNotFound)
	assert.ErrorIs(t, f.orch.Cancel(boot.ID()), process.ErrNotRunning)
}

func TestCancelVMDuringDiskCreation(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")
	f.env.WriteTool("qemu-img", `while [ ! -f "$STATE/release-disk" ]; do sleep 0.05; done`)

	assert.ErrorIs(t, f.orch.CancelVM(), process.ErrNotRunning)

	type result struct {
		h   *process.Handle
		err error
	}
	launched := make(chan result, 1)
	go func() {
		h, err := f.orch.LaunchVM(context.Background(), defaultRequest())
		launched <- result{h, err}
	}()

	require.Eventually(t, func() bool {
		vm := f.orch.VM()
		return vm.Status == session.VMCreatingDisk && vm.DiskHandle != ""
	}, waitFor, 10*time.Millisecond, "disk creation never started")
	assert.Empty(t, f.orch.VM().BootHandle)

	require.NoError(t, f.orch.CancelVM())

	var res result
	select {
	case res = <-launched:
	case <-time.After(waitFor):
		t.Fatal("LaunchVM did not return after cancel")
	}
	assert.ErrorIs(t, res.err, process.ErrCancelled)
	require.NotNil(t, res.h)
	assert.Equal(t, f.orch.VM().DiskHandle, res.h.ID())

	assert.Equal(t, session.VMError, f.orch.CurrentVMStatus())
	assert.Empty(t, f.env.CallsTo("qemu-system-x86_64"), "boot must not start after a cancelled disk")
	assert.ErrorIs(t, f.orch.CancelVM(), process.ErrNotRunning)
}

func TestCancelVMStopsBoot(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")

	boot, err := f.orch.LaunchVM(context.Background(), defaultRequest())
	require.NoError(t, err)
	f.waitStatus(t, session.VMRunning)

	require.NoError(t, f.orch.CancelVM())
	assert.ErrorIs(t, boot.Err(), process.ErrCancelled)
	f.waitStatus(t, session.VMError)
}

func TestEnsureDiskIsIdempotent(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.env.Dir, "nested", "extra.qcow2")

	h, err := f.orch.EnsureDisk(context.Background(), path, "1G")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, process.Succeeded, h.State())
	assert.FileExists(t, path)

	h, err = f.orch.EnsureDisk(context.Background(), path, "1G")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Len(t, f.env.CallsTo("qemu-img"), 1)

	_, err = f.orch.EnsureDisk(context.Background(), "", "1G")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestListISOs(t *testing.T) {
	f := newFixture(t)
	f.env.AddISO("ubuntu.iso")
	f.env.AddISO("alpine.iso")
	require.NoError(t, os.WriteFile(filepath.Join(f.env.Config.ISODir, "notes.txt"), nil, 0644))

	names, err := f.orch.ListISOs()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpine.iso", "ubuntu.iso"}, names)
}

func TestDiskPathOverride(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, filepath.Join(f.env.Config.DiskDir, "disk.img"), f.orch.diskPath(""))
	assert.Equal(t, filepath.Join(f.env.Config.DiskDir, "other.img"), f.orch.diskPath("other.img"))

	abs := filepath.Join(f.env.Dir, "abs.img")
	assert.Equal(t, abs, f.orch.diskPath(abs))
	assert.True(t, strings.HasPrefix(f.orch.diskPath("x.img"), f.env.Config.DiskDir))
}
