package bpffs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMountInfo = `22 1 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw
30 22 0:27 / /sys/fs/bpf rw,nosuid shared:9 - bpf bpf rw,mode=700
31 22 0:28 / /run rw,nosuid - tmpfs tmpfs rw
32 31 0:29 / /run/with\040space rw - bpf bpf rw
malformed line without separator
`

func writeMountInfo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mountinfo")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMounts(t *testing.T) {
	mounts, err := Mounts(writeMountInfo(t, sampleMountInfo))
	require.NoError(t, err)
	assert.Equal(t, []Mount{
		{Point: "/", FSType: "ext4"},
		{Point: "/sys/fs/bpf", FSType: "bpf"},
		{Point: "/run", FSType: "tmpfs"},
		{Point: "/run/with space", FSType: "bpf"},
	}, mounts)
}

func TestMountsMissingFile(t *testing.T) {
	_, err := Mounts(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestContaining(t *testing.T) {
	mounts := []Mount{
		{Point: "/", FSType: "ext4"},
		{Point: "/sys/fs/bpf", FSType: "bpf"},
		{Point: "/sys/fs/bpfx", FSType: "tmpfs"},
	}

	m, ok := Containing(mounts, "/sys/fs/bpf/pfq")
	require.True(t, ok)
	assert.Equal(t, "bpf", m.FSType)

	m, ok = Containing(mounts, "/sys/fs/bpfx/pfq")
	require.True(t, ok)
	assert.Equal(t, "tmpfs", m.FSType)

	m, ok = Containing(mounts, "/var/run")
	require.True(t, ok)
	assert.Equal(t, "/", m.Point)

	_, ok = Containing(nil, "/sys/fs/bpf")
	assert.False(t, ok)
}

func TestCheckPinPath(t *testing.T) {
	info := writeMountInfo(t, sampleMountInfo)

	assert.NoError(t, CheckPinPath(info, "/sys/fs/bpf/pfq_devmap"))
	assert.NoError(t, CheckPinPath(info, "/run/with space/pfq_devmap"))
	assert.ErrorIs(t, CheckPinPath(info, "/run/pfq_devmap"), ErrNotBPFFS)
	assert.ErrorIs(t, CheckPinPath(info, "/tmp/pfq_devmap"), ErrNotBPFFS)
}
