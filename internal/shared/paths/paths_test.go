package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExplicitDir(t *testing.T) {
	dir := t.TempDir()

	layout, err := Resolve(dir + "/")
	require.NoError(t, err)

	assert.Equal(t, dir, layout.Root)
	assert.Equal(t, filepath.Join(dir, "blocklist.txt"), layout.Blocklist())
	assert.Equal(t, filepath.Join(dir, "state.json"), layout.State())
	assert.Equal(t, filepath.Join(dir, "profiles.yaml"), layout.Profiles())
}

func TestResolveHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	layout, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DirName), layout.Root)
}

func TestEnsure(t *testing.T) {
	layout := Layout{Root: filepath.Join(t.TempDir(), "nested", "data")}

	require.NoError(t, layout.Ensure())
	info, err := os.Stat(layout.Root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// idempotent
	require.NoError(t, layout.Ensure())
}
