package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/rlab.db")
	if cfg.Database.Path != "/tmp/rlab.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Storage.Driver != StorageDriverSQLite {
		t.Fatalf("unexpected storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Progress.MicroMax != 21 || cfg.Progress.EvidenceMax != 7 {
		t.Fatalf("unexpected progress maxima %#v", cfg.Progress)
	}
	ladder, err := cfg.LevelLadder()
	if err != nil {
		t.Fatalf("LevelLadder() error = %v", err)
	}
	if ladder.Initial().Name != "Torpor" || len(ladder.Levels()) != 3 {
		t.Fatalf("unexpected default ladder %#v", ladder.Levels())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/rlab.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/rlab.db"

[storage]
driver = "jsonfile"
json_path = "/custom/storage.json"

[logging]
level = "debug"

[progress]
micro_per_category = 2
micro_max = 14

[[levels]]
id = "inicio"
name = "Inicio"

[[levels]]
id = "meta"
name = "Meta"
micro_threshold = 14
evidence_threshold = 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Driver != StorageDriverJSONFile || cfg.Storage.JSONPath != "/custom/storage.json" {
		t.Fatalf("unexpected storage %#v", cfg.Storage)
	}
	if cfg.Storage.Key != "colibri_timeline_custom_events_v1" {
		t.Fatalf("expected default storage key retained, got %q", cfg.Storage.Key)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
	if cfg.Progress.MicroPerCategory != 2 || cfg.Progress.MicroMax != 14 || cfg.Progress.EvidenceMax != 7 {
		t.Fatalf("unexpected progress %#v", cfg.Progress)
	}
	if len(cfg.Levels) != 2 || cfg.Levels[1].Name != "Meta" {
		t.Fatalf("expected levels to replace defaults, got %#v", cfg.Levels)
	}
}

func TestLoadKeepsDefaultLevelsWhenOmitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path, Default("/tmp/rlab.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Levels) != 3 {
		t.Fatalf("expected default levels, got %#v", cfg.Levels)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "driver", content: "[storage]\ndriver = \"redis\"\n", want: "invalid storage.driver"},
		{name: "jsonfile without path", content: "[storage]\ndriver = \"jsonfile\"\n", want: "json_path is required"},
		{name: "negative maxima", content: "[progress]\nmicro_max = -1\n", want: "progress maxima"},
		{name: "bad ladder", content: "[[levels]]\nid = \"a\"\nname = \"A\"\nmicro_threshold = 3\n", want: "invalid levels"},
		{name: "micro threshold above cap", content: "[progress]\nmicro_max = 14\n", want: "micro_threshold 21 exceeds progress.micro_max 14"},
		{name: "evidence threshold above cap", content: "[progress]\nevidence_max = 5\n", want: "evidence_threshold 7 exceeds progress.evidence_max 5"},
		{name: "endpoint", content: "[server]\napi_endpoint = \"api\"\n", want: "must start with /"},
		{name: "toml", content: "[database\n", want: "decode toml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := Load(path, Default("/tmp/rlab.db"))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("expected config dir to exist, err=%v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RLAB_DB_PATH", " /env/rlab.db ")
	t.Setenv("RLAB_DEV_MODE", "false")
	t.Setenv("RLAB_LOG_LEVEL", "error")

	overrides, err := LoadEnvOverrides()
	if err != nil {
		t.Fatalf("LoadEnvOverrides() error = %v", err)
	}
	if overrides.DBPath != "/env/rlab.db" {
		t.Fatalf("expected trimmed db path, got %q", overrides.DBPath)
	}
	if overrides.DevMode == nil || *overrides.DevMode {
		t.Fatalf("expected explicit false dev mode, got %v", overrides.DevMode)
	}
	cfg := overrides.Apply(Default("/tmp/rlab.db"))
	if cfg.Logging.Level != "error" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnvOverridesRejectsBadBool(t *testing.T) {
	t.Setenv("RLAB_DEV_MODE", "maybe")
	if _, err := LoadEnvOverrides(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
