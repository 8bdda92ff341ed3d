package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string `mapstructure:"name"`
	Count int    `mapstructure:"count"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(content), 0o600))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, "name: taskchat\ncount: 3\n")

	var conf testConfig
	require.NoError(t, LoadConfig(dir, "app", "yaml", &conf))
	assert.Equal(t, "taskchat", conf.Name)
	assert.Equal(t, 3, conf.Count)
}

func TestLoadConfigMissingFile(t *testing.T) {
	var conf testConfig
	assert.Error(t, LoadConfig(t.TempDir(), "nope", "yaml", &conf))
}

func TestLoadConfigWithEnv(t *testing.T) {
	dir := writeConfig(t, "name: from-file\n")

	t.Setenv("TC_NAME", "from-env")
	var conf testConfig
	require.NoError(t, LoadConfigWithEnv(dir, "app", "yaml", "TC", &conf))
	assert.Equal(t, "from-env", conf.Name)
}
