package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staycheck/internal/partition"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "https://automationintesting.online", cfg.BaseURL)
	assert.Equal(t, "admin", cfg.Credentials.Username)
	assert.Equal(t, 0, cfg.Retries)
	assert.Equal(t, 4, cfg.Parallel)
	assert.True(t, cfg.Headless)
	assert.Empty(t, cfg.LedgerPath)
}

func TestFromEnv_CIRetries(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"CI": "true"}))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Retries)

	cfg, err = FromEnv(env(map[string]string{"CI": "true", EnvRetries: "0"}))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Retries)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		EnvBaseURL:         "http://localhost:8080/",
		EnvAdminUser:       "root",
		EnvAdminPassword:   "s3cret",
		EnvActionTimeout:   "2s",
		EnvResponseTimeout: "1m",
		EnvExpectTimeout:   "750ms",
		EnvScenarioTimeout: "45s",
		EnvTeardownTimeout: "10s",
		EnvRetries:         "1",
		EnvParallel:        "8",
		EnvHeadless:        "false",
		EnvLedger:          "/tmp/ledger.db",
		EnvBaseOffset:      "900",
		EnvWidth:           "30",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "root", cfg.Credentials.Username)
	assert.Equal(t, "s3cret", cfg.Credentials.Password)
	assert.Equal(t, 2*time.Second, cfg.ActionTimeout)
	assert.Equal(t, time.Minute, cfg.ResponseTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.ExpectTimeout)
	assert.Equal(t, 45*time.Second, cfg.ScenarioTimeout)
	assert.Equal(t, 10*time.Second, cfg.TeardownTimeout)
	assert.Equal(t, 1, cfg.Retries)
	assert.Equal(t, 8, cfg.Parallel)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "/tmp/ledger.db", cfg.LedgerPath)
	assert.Equal(t, 900, cfg.BaseOffset)
	assert.Equal(t, 30, cfg.Width)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{EnvActionTimeout, "soon", EnvActionTimeout},
		{EnvScenarioTimeout, "-1s", "must be positive"},
		{EnvParallel, "0", "must be at least 1"},
		{EnvRetries, "two", "is not an integer"},
		{EnvWidth, "0", "must be at least 1"},
		{EnvHeadless, "maybe", "is not a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := FromEnv(env(map[string]string{tt.key: tt.value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staycheck.env")
	require.NoError(t, os.WriteFile(path, []byte("STAYCHECK_PARALLEL=3\nSTAYCHECK_ADMIN_USER=fromfile\n"), 0o644))

	// Set variables win over the file.
	t.Setenv(EnvAdminUser, "fromenv")
	// godotenv sets what it loads; make sure the test restores it.
	t.Setenv(EnvParallel, "")
	os.Unsetenv(EnvParallel)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parallel)
	assert.Equal(t, "fromenv", cfg.Credentials.Username)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	require.NoError(t, err)
}

func TestPartition(t *testing.T) {
	p := partition.Plan{BaseOffset: 500, Width: 20}

	cfg := Default()
	assert.Equal(t, p, cfg.Partition(p))

	cfg.BaseOffset = 900
	cfg.Width = 40
	got := cfg.Partition(p)
	assert.Equal(t, 900, got.BaseOffset)
	assert.Equal(t, 40, got.Width)
}
