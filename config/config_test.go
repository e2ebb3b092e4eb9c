package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf"

	"github.com/nicholastmosher/flipper/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	k := koanf.New(".")
	if err := config.Load(k, filepath.Join(t.TempDir(), "missing.yml")); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	var c config.Config
	if err := k.Unmarshal("", &c); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if c.VendorID != 0x16C0 {
		t.Errorf("vendor id = 0x%X, want 0x16C0", c.VendorID)
	}
	if c.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q, want :8080", c.HTTPAddr)
	}
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flipperctl.yml")

	cfg := config.Default()
	cfg.HTTPAddr = ":9999"
	if err := config.Write(cfg, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	k := koanf.New(".")
	if err := config.Load(k, path); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	var loaded config.Config
	if err := k.Unmarshal("", &loaded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if loaded.HTTPAddr != ":9999" {
		t.Errorf("http addr = %q, want :9999", loaded.HTTPAddr)
	}
}
