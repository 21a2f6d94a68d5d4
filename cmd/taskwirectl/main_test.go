package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/taskwire/internal/admin"
	"github.com/danmuck/taskwire/internal/testutil/testlog"
	"github.com/spf13/pflag"
)

func TestPackThenInspect(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "jobs.twp")
	var out bytes.Buffer
	if err := run([]string{"pack", "--text", strings.Repeat("hello ", 50), "--compression", "zstd", "--task", "greet", "--out", path}, &out); err != nil {
		t.Fatalf("pack text: %v", err)
	}
	if err := run([]string{"pack", "--type", "byte", "--text", "raw", "--out", path}, &out); err != nil {
		t.Fatalf("pack bytes: %v", err)
	}

	out.Reset()
	if err := run([]string{"inspect", path}, &out); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var views []admin.ParcelView
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out.String())
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 parcels, got %d", len(views))
	}
	if views[0].Type != TextName || views[0].Compression != "zstd" || views[0].Attrs[0].Value != "greet" {
		t.Fatalf("unexpected text parcel %+v", views[0])
	}
	if views[1].Type != "byte" || views[1].RawBytes != 3 {
		t.Fatalf("unexpected byte parcel %+v", views[1])
	}
}

func TestTypesListsText(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := run([]string{"types"}, &out); err != nil {
		t.Fatalf("types: %v", err)
	}
	if !strings.Contains(out.String(), TextName) || !strings.Contains(out.String(), "byte") {
		t.Fatalf("unexpected types output:\n%s", out.String())
	}
}

func TestConfigInitValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "taskwire.toml")
	var out bytes.Buffer
	if err := run([]string{"config", "init", "--config", path}, &out); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if err := run([]string{"config", "validate", "--config", path}, &out); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if err := os.WriteFile(path, []byte("[parcel]\ncompression = \"brotli\"\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := run([]string{"config", "validate", "--config", path}, &out); err == nil {
		t.Fatalf("expected validation failure")
	}
}

func TestHelpStopsCommand(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	err := run([]string{"pack", "--help"}, &out)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected pflag.ErrHelp, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("help must not run the command, wrote %d bytes", out.Len())
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run([]string{"explode"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}
