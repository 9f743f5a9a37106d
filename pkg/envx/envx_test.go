package envx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVX_STR", " value ")
	t.Setenv("ENVX_INT", "42")
	t.Setenv("ENVX_BAD_INT", "forty")
	t.Setenv("ENVX_BOOL", "true")
	t.Setenv("ENVX_DUR", "90s")
	t.Setenv("ENVX_SECS", "30")
	t.Setenv("ENVX_LIST", "a, b,,c ")

	require.Equal(t, "value", String("ENVX_STR", "def"))
	require.Equal(t, "def", String("ENVX_UNSET", "def"))
	require.Equal(t, 42, Int("ENVX_INT", 1))
	require.Equal(t, 1, Int("ENVX_BAD_INT", 1))
	require.True(t, Bool("ENVX_BOOL", false))
	require.True(t, Bool("ENVX_UNSET", true))
	require.Equal(t, 90*time.Second, Duration("ENVX_DUR", time.Minute))
	require.Equal(t, 30*time.Second, Duration("ENVX_SECS", time.Minute))
	require.Equal(t, time.Minute, Duration("ENVX_UNSET", time.Minute))
	require.Equal(t, []string{"a", "b", "c"}, List("ENVX_LIST", nil))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ENVX_FROM_FILE=file\nENVX_PRESET=file\n"), 0o600))

	t.Setenv("ENVX_PRESET", "env")
	t.Setenv("ENVX_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("ENVX_FROM_FILE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	require.Equal(t, "file", os.Getenv("ENVX_FROM_FILE"))
	require.Equal(t, "env", os.Getenv("ENVX_PRESET"))
}
