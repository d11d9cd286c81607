package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	require.Len(t, cfg.Caches, 1)
	assert.Equal(t, "default", cfg.Caches[0].ID)
	assert.Equal(t, 5*time.Second, cfg.Caches[0].FlushInterval)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
  output: stderr
shutdown_timeout: 15s
telemetry:
  export_timeout: 3s
  headers:
    x-api-key: secret
metrics:
  enabled: true
api:
  port: 9090
flusher:
  flush_timeout: 2s
caches:
  - id: audit
    path: /var/log/audit.log
    flush_interval: 5s
    buffer_size: 1MiB
  - id: events
    path: /var/log/events.log
    flush_interval: 10s
    queue_size: 64
    buffer_size: 4096
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.Telemetry.ExportTimeout)
	assert.Equal(t, map[string]string{"x-api-key": "secret"}, cfg.Telemetry.Headers)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, 5*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, "127.0.0.1", cfg.API.BindAddress)
	assert.Equal(t, 2*time.Second, cfg.Flusher.FlushTimeout)

	require.Len(t, cfg.Caches, 2)
	assert.Equal(t, "audit", cfg.Caches[0].ID)
	assert.Equal(t, ByteSize(1<<20), cfg.Caches[0].BufferSize)
	assert.Equal(t, 1024, cfg.Caches[0].QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Caches[1].FlushInterval)
	assert.Equal(t, 64, cfg.Caches[1].QueueSize)
	assert.Equal(t, ByteSize(4096), cfg.Caches[1].BufferSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
caches:
  - id: a
    path: /tmp/a.log
    flush_interval: 1s
`)
	t.Setenv("FLUSHWATCH_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "invalid log level",
			content: `
logging:
  level: verbose
caches:
  - {id: a, path: /tmp/a.log, flush_interval: 1s}
`,
			wantErr: "oneof",
		},
		{
			name:    "no caches",
			content: "logging:\n  level: info\n",
			wantErr: "required",
		},
		{
			name: "missing flush interval",
			content: `
caches:
  - {id: a, path: /tmp/a.log}
`,
			wantErr: "FlushInterval",
		},
		{
			name: "duplicate ids",
			content: `
caches:
  - {id: a, path: /tmp/a.log, flush_interval: 1s}
  - {id: a, path: /tmp/b.log, flush_interval: 2s}
`,
			wantErr: "unique",
		},
		{
			name: "sample rate out of range",
			content: `
telemetry:
  sample_rate: 2
caches:
  - {id: a, path: /tmp/a.log, flush_interval: 1s}
`,
			wantErr: "lte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "caches: [\n"))
	require.Error(t, err)
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := MustLoad(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flushwatch init --config")
}

func TestMustLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration file found")
}

func TestGetConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "flushwatch"), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "flushwatch", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := GetDefaultConfig()
	cfg.Caches[0].BufferSize = ByteSize(128 << 10)

	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Caches, loaded.Caches)
	assert.Equal(t, cfg.ShutdownTimeout, loaded.ShutdownTimeout)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "warn", Format: "json"},
		ShutdownTimeout: time.Minute,
		Caches: []CacheConfig{
			{ID: "a", Path: "/tmp/a", FlushInterval: time.Second, QueueSize: 8, BufferSize: 512},
		},
	}

	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, 8, cfg.Caches[0].QueueSize)
	assert.Equal(t, ByteSize(512), cfg.Caches[0].BufferSize)
	assert.Equal(t, 9470, cfg.API.Port)
	assert.NotEmpty(t, cfg.Telemetry.Profiling.ProfileTypes)
}

func TestFileCacheConfig(t *testing.T) {
	c := CacheConfig{ID: "a", Path: "/tmp/a", FlushInterval: time.Second, QueueSize: 4, BufferSize: 2048}
	fc := c.FileCacheConfig()

	assert.Equal(t, "a", fc.ID)
	assert.Equal(t, "/tmp/a", fc.Path)
	assert.Equal(t, time.Second, fc.FlushInterval)
	assert.Equal(t, 4, fc.QueueSize)
	assert.Equal(t, 2048, fc.BufferSize)
}

func TestByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"4096", 4096},
		{"64KiB", 64 << 10},
		{"64 KiB", 64 << 10},
		{"1MB", 1000 * 1000},
		{" 2GiB ", 2 << 30},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseByteSize("lots")
	assert.Error(t, err)

	assert.Equal(t, "64 KiB", ByteSize(64<<10).String())
}

func TestByteSize_YAML(t *testing.T) {
	type holder struct {
		Size ByteSize `yaml:"size"`
	}

	out, err := yaml.Marshal(holder{Size: 64 << 10})
	require.NoError(t, err)
	assert.Equal(t, "size: 64 KiB\n", string(out))

	// 1500 does not survive the binary unit rounding.
	out, err = yaml.Marshal(holder{Size: 1500})
	require.NoError(t, err)
	assert.Equal(t, "size: 1500\n", string(out))

	var h holder
	require.NoError(t, yaml.Unmarshal([]byte("size: 1MiB\n"), &h))
	assert.Equal(t, ByteSize(1<<20), h.Size)

	require.NoError(t, yaml.Unmarshal([]byte("size: 512\n"), &h))
	assert.Equal(t, ByteSize(512), h.Size)

	assert.Error(t, yaml.Unmarshal([]byte("size: huge\n"), &h))
}
