package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tcpstream.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── YAML ─────────────────────────────────────────────────────────────

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
host: db.internal
port: 5432
timeout: 5s
encoding: latin1
chunk_size: 1024
idle_gap: 10ms
quit: 2s
tunnel: ops@bastion:2222
strict_hostkey: true
verbose: 2
`)
	cfg := Defaults()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Host != "db.internal" || cfg.Port != 5432 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Timeout != 5*time.Second || cfg.IdleGap != 10*time.Millisecond || cfg.Quit != 2*time.Second {
		t.Errorf("durations = %s %s %s", cfg.Timeout, cfg.IdleGap, cfg.Quit)
	}
	if cfg.Encoding != "latin1" || cfg.ChunkSize != 1024 {
		t.Errorf("stream = %s/%d", cfg.Encoding, cfg.ChunkSize)
	}
	if cfg.TunnelSpec != "ops@bastion:2222" || !cfg.StrictHostKey || cfg.Verbose != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.StopTimeout != DefaultStopTimeout {
		t.Errorf("StopTimeout = %s, want default", cfg.StopTimeout)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeFile(t, "host: x\nprot: 80\n")
	err := LoadFile(path, Defaults())
	if err == nil || !strings.Contains(err.Error(), "prot") {
		t.Fatalf("err = %v, want unknown-field error", err)
	}
}

func TestLoadFile_Empty(t *testing.T) {
	cfg := Defaults()
	if err := LoadFile(writeFile(t, ""), cfg); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.ChunkSize != DefaultChunkSize {
		t.Error("empty file changed defaults")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), Defaults()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ── Environment ──────────────────────────────────────────────────────

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TCPSTREAM_HOST", "env.example.com")
	t.Setenv("TCPSTREAM_PORT", "8080")
	t.Setenv("TCPSTREAM_SOURCE_PORT", "4000")
	t.Setenv("TCPSTREAM_TIMEOUT", "7")
	t.Setenv("TCPSTREAM_IDLE_GAP", "5ms")
	t.Setenv("TCPSTREAM_ENCODING", "ascii")
	t.Setenv("TCPSTREAM_TUNNEL", "me@gw")
	t.Setenv("TCPSTREAM_VERBOSE", "3")

	cfg := Defaults()
	LoadFromEnv(cfg)

	if cfg.Host != "env.example.com" || cfg.Port != 8080 || cfg.LocalPort != 4000 {
		t.Errorf("target = %s:%d from %d", cfg.Host, cfg.Port, cfg.LocalPort)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("Timeout = %s, want 7s", cfg.Timeout)
	}
	if cfg.IdleGap != 5*time.Millisecond {
		t.Errorf("IdleGap = %s, want 5ms", cfg.IdleGap)
	}
	if cfg.Encoding != "ascii" || cfg.TunnelSpec != "me@gw" || cfg.Verbose != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("TCPSTREAM_NO_DNS", v)
			t.Setenv("TCPSTREAM_STATS", v)
			cfg := &Config{}
			LoadFromEnv(cfg)
			if !cfg.NoDNS || !cfg.Stats {
				t.Errorf("NoDNS=%v Stats=%v", cfg.NoDNS, cfg.Stats)
			}
		})
	}
}

// TestLoadFromEnv_Malformed verifies bad values leave the field alone.
func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Setenv("TCPSTREAM_PORT", "eighty")
	t.Setenv("TCPSTREAM_TIMEOUT", "soon")
	t.Setenv("TCPSTREAM_QUIT", "-3")

	cfg := Defaults()
	cfg.Port = 22
	LoadFromEnv(cfg)
	if cfg.Port != 22 || cfg.Timeout != DefaultConnTimeout || cfg.Quit != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
}

// TestLoad_Precedence verifies env overrides the file, which overrides
// defaults.
func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "host: file-host\nport: 1000\nchunk_size: 64\n")
	t.Setenv("TCPSTREAM_CONFIG", path)
	t.Setenv("TCPSTREAM_PORT", "2000")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "file-host" {
		t.Errorf("Host = %q, want file value", cfg.Host)
	}
	if cfg.Port != 2000 {
		t.Errorf("Port = %d, want env value", cfg.Port)
	}
	if cfg.ChunkSize != 64 {
		t.Errorf("ChunkSize = %d, want file value", cfg.ChunkSize)
	}
	if cfg.Encoding != DefaultEncoding {
		t.Errorf("Encoding = %q, want default", cfg.Encoding)
	}
}
