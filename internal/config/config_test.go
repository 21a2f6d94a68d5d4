package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/taskwire/internal/parcel"
	"github.com/danmuck/taskwire/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskwire.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateLoadsAndValidates(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "taskwire.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Parcel.Compression != "zstd" || cfg.Admin.Addr != ":9400" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := cfg.PackOptions().Compression; got != parcel.CompressionZstd {
		t.Fatalf("pack options compression: %s", got)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeFile(t, "[log]\nlevel = \"debug\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Archive != def.Archive || cfg.Parcel != def.Parcel || cfg.Admin.Addr != def.Admin.Addr {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	limits := cfg.ParcelLimits()
	if limits.MaxPayloadBytes != def.Parcel.MaxPayloadBytes || limits.Archive.MaxRecordBytes != def.Archive.MaxRecordBytes {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"compression":  "[parcel]\ncompression = \"gzip\"\n",
		"record bound": "[archive]\nmax_record_bytes = 0\n",
		"record>body":  "[archive]\nmax_record_bytes = 10\n[parcel]\nmax_payload_bytes = 5\n",
		"level":        "[log]\nlevel = \"loud\"\n",
		"unknown key":  "[admin]\nport = 9400\n",
		"empty addr":   "[admin]\naddr = \" \"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, body)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
