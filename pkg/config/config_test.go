package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.Equal(t, nil, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Equal(t, nil, cfg.Validate())
	assert.Equal(t, 40*time.Millisecond, cfg.Client.BufferTime())
	assert.Equal(t, time.Second, cfg.Client.EditInterval())
}

func TestReadPopulatesDefaults(t *testing.T) {
	cfg, err := Read(writeConfig(t, `
server:
  addr: 0.0.0.0:9000
  seed_file: seed.json
  render_on_exit: true
log:
  format: json
`))
	assert.Equal(t, nil, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "seed.json", cfg.Server.SeedFile)
	assert.Equal(t, true, cfg.Server.RenderOnExit)
	assert.Equal(t, defaultClient, cfg.Client)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, true, errors.Is(err, os.ErrNotExist))

	_, err = Read(writeConfig(t, "server: [nope"))
	assert.NotEqual(t, nil, err)

	_, err = Read(writeConfig(t, "log:\n  format: xml\n"))
	assert.Equal(t, true, errors.Is(err, ErrUnknownLogFormat))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		err    error
	}{
		{"default", func(c *Config) {}, nil},
		{"http url", func(c *Config) { c.Client.URL = "http://localhost:8080/sync" }, ErrInvalidURL},
		{"no host", func(c *Config) { c.Client.URL = "ws:///sync" }, ErrInvalidURL},
		{"negative buffer", func(c *Config) { c.Client.BufferTimeMs = -1 }, ErrInvalidBufferTime},
		{"zero interval", func(c *Config) { c.Client.EditIntervalMs = 0 }, ErrInvalidEditInterval},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, ErrMissingAddr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.err == nil {
				assert.Equal(t, nil, err)
			} else {
				assert.Equal(t, true, errors.Is(err, tc.err))
			}
		})
	}
}
