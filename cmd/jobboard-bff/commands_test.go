package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jobboard-bff version dev\n", out)
}

func TestInitConfigThenValidate(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	unsetEnv(t, "BACKEND_URL", "APP_ENV", "CONFIG_PATH")
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend_url")

	out, err = execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Result: PASS")
	assert.Contains(t, out, `"sessionSecret": "***"`)
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestValidateCmd_Invalid(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("BACKEND_URL", "ftp://backend")
	unsetEnv(t, "CONFIG_PATH")

	out, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "Result: FAIL")
	assert.Contains(t, out, "backend_url")
}

func TestInitConfigCmd_RequiresPath(t *testing.T) {
	_, err := execute(t, "init-config")
	assert.Error(t, err)
}
