package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanstorm/cloudmanager/pkg/hypervisor"
)

func TestDescriptorIsImmutable(t *testing.T) {
	args := []string{"pull", "nginx"}
	d := New(KindImagePull, "docker", args, "")

	args[1] = "evil"
	assert.Equal(t, []string{"pull", "nginx"}, d.Args())

	got := d.Args()
	got[0] = "rm"
	assert.Equal(t, []string{"pull", "nginx"}, d.Args())
}

func TestDescriptorStringQuotesSpaces(t *testing.T) {
	driver := hypervisor.NewDriver(hypervisor.Tools{}, hypervisor.AccelNone)
	d := DiskCreate(driver, "/home/op/My VMs/disk.img", "5G")

	assert.Equal(t, KindDiskCreate, d.Kind())
	assert.Equal(t, `qemu-img create -f qcow2 '/home/op/My VMs/disk.img' 5G`, d.String())
	// The path stays one argument.
	assert.Equal(t, "/home/op/My VMs/disk.img", d.Args()[3])
}

func TestVMBoot(t *testing.T) {
	driver := hypervisor.NewDriver(hypervisor.Tools{}, hypervisor.AccelNone)

	d, err := VMBoot(driver, &hypervisor.VMConfig{
		Memory:   "4G",
		CPUs:     2,
		DiskPath: "disk.img",
		ISOPath:  "ubuntu.iso",
	})
	require.NoError(t, err)

	assert.Equal(t, KindVMBoot, d.Kind())
	assert.Equal(t, hypervisor.DefaultQemuSystem, d.Program())
	assert.Equal(t, []string{"-m", "4G", "-smp", "2", "-hda", "disk.img", "-boot", "d", "-cdrom", "ubuntu.iso"}, d.Args())

	_, err = VMBoot(driver, &hypervisor.VMConfig{Memory: "4G", CPUs: 0, DiskPath: "d", ISOPath: "i"})
	assert.ErrorIs(t, err, hypervisor.ErrInvalidCPUCount)
}

func TestContainerDescriptors(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		kind Kind
		args []string
	}{
		{"build with tag", ImageBuild("", ".", "myapp:v1"), KindImageBuild, []string{"build", "-t", "myapp:v1", "."}},
		{"build without tag", ImageBuild("", "./app", ""), KindImageBuild, []string{"build", "./app"}},
		{"pull", ImagePull("", "nginx"), KindImagePull, []string{"pull", "nginx"}},
		{"run with name", ImageRun("", RunOptions{Image: "nginx", Name: "web1"}), KindImageRun, []string{"run", "-d", "--name", "web1", "nginx"}},
		{"run with tag and ports", ImageRun("", RunOptions{Image: "nginx", Tag: "1.27", Ports: []string{"8080:80", ""}}), KindImageRun, []string{"run", "-d", "-p", "8080:80", "nginx:1.27"}},
		{"search", ImageSearch("", "redis"), KindImageSearch, []string{"search", "redis"}},
		{"stop", ContainerStop("", "abc123"), KindContainerStop, []string{"stop", "abc123"}},
		{"ps", ContainerList("", false), KindContainerList, []string{"ps"}},
		{"ps all", ContainerList("", true), KindContainerList, []string{"ps", "-a"}},
		{"images", ImageList(""), KindImageList, []string{"images"}},
		{"version", VersionCheck(""), KindVersionCheck, []string{"--version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, DefaultRuntime, tt.d.Program())
			assert.Equal(t, tt.kind, tt.d.Kind())
			assert.Equal(t, tt.args, tt.d.Args())
			assert.True(t, tt.d.Kind().IsContainer())
		})
	}
}

func TestImageRef(t *testing.T) {
	assert.Equal(t, "nginx", ImageRef("nginx", ""))
	assert.Equal(t, "nginx:1.27", ImageRef("nginx", "1.27"))
	assert.Equal(t, "nginx:latest", ImageRef("nginx:latest", "1.27"))
	assert.Equal(t, "localhost:5000/app:v2", ImageRef("localhost:5000/app", "v2"))
	assert.Equal(t, "localhost:5000/app:v1", ImageRef("localhost:5000/app:v1", "v2"))

	run := ImageRun("", RunOptions{Image: "nginx:latest", Tag: "1.27"})
	assert.Equal(t, []string{"run", "-d", "nginx:latest"}, run.Args())
}

func TestRuntimeOverride(t *testing.T) {
	d := ImagePull("podman", "alpine")
	assert.Equal(t, "podman", d.Program())
}

func TestKindNamesRoundTrip(t *testing.T) {
	for k := KindDiskCreate; k <= KindVersionCheck; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}

	_, ok := ParseKind("launch-missiles")
	assert.False(t, ok)
}

func TestKindDuration(t *testing.T) {
	assert.Equal(t, Long, KindVMBoot.Duration())
	assert.Equal(t, Long, KindImagePull.Duration())
	assert.Equal(t, Short, KindDiskCreate.Duration())
	assert.Equal(t, Short, KindImageSearch.Duration())
	assert.False(t, KindVMBoot.IsContainer())
}
