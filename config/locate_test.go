package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	tests := []struct {
		name  string
		setup func(t *testing.T) string // returns the expected path
	}{
		{
			name: "in start directory",
			setup: func(t *testing.T) string {
				return writeConfig(t, deep, "[]")
			},
		},
		{
			name: "in ancestor",
			setup: func(t *testing.T) string {
				return writeConfig(t, filepath.Join(root, "a"), "[]")
			},
		},
		{
			name: "closest ancestor wins",
			setup: func(t *testing.T) string {
				writeConfig(t, root, "[]")
				return writeConfig(t, filepath.Join(root, "a", "b"), "[]")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.RemoveAll(filepath.Join(root, "a")))
			os.Remove(filepath.Join(root, FileName))
			require.NoError(t, os.MkdirAll(deep, 0o755))

			want := tt.setup(t)
			got, err := Locate(deep)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLocateSkipsDirectoryWithConfigName(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "[]")

	start := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(filepath.Join(start, FileName), 0o755))

	got, err := Locate(start)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocateRelativeStart(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "[]")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(wd) })

	got, err := Locate("sub")
	require.NoError(t, err)

	// TempDir may sit behind a symlink (macOS /var -> /private/var)
	wantReal, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, wantReal, gotReal)

	got, err = Locate("")
	require.NoError(t, err)
	gotReal, err = filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, wantReal, gotReal)
}

func TestLocateNotFound(t *testing.T) {
	start := filepath.Join(t.TempDir(), "x", "y")
	require.NoError(t, os.MkdirAll(start, 0o755))

	if _, err := os.Stat(filepath.Join(string(filepath.Separator), FileName)); err == nil {
		t.Skip("filesystem root has a " + FileName)
	}
	// an ancestor of the temp dir could legitimately carry one
	if p, err := Locate(filepath.Dir(t.TempDir())); err == nil {
		t.Skipf("ancestor of temp dir has %s", p)
	}

	got, err := Locate(start)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, got)
}
