package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/colibri-os/rlab/internal/domain"
)

type StorageDriver string

const (
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverJSONFile StorageDriver = "jsonfile"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Progress ProgressConfig `toml:"progress"`
	Levels   []LevelConfig  `toml:"levels"`
	Server   ServerConfig   `toml:"server"`
	Identity IdentityConfig `toml:"identity"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	Driver   StorageDriver `toml:"driver"`
	JSONPath string        `toml:"json_path"`
	Key      string        `toml:"key"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ProgressConfig struct {
	MicroPerCategory    int `toml:"micro_per_category"`
	EvidencePerCategory int `toml:"evidence_per_category"`
	MicroMax            int `toml:"micro_max"`
	EvidenceMax         int `toml:"evidence_max"`
}

type LevelConfig struct {
	ID                string `toml:"id"`
	Name              string `toml:"name"`
	MicroThreshold    int    `toml:"micro_threshold"`
	EvidenceThreshold int    `toml:"evidence_threshold"`
	Placeholder       bool   `toml:"placeholder"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type IdentityConfig struct {
	DisplayName string `toml:"display_name"`
}

func defaultLevels() []LevelConfig {
	levels := domain.DefaultLevels()
	out := make([]LevelConfig, 0, len(levels))
	for _, level := range levels {
		out = append(out, LevelConfig(level))
	}
	return out
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Storage: StorageConfig{
			Driver: StorageDriverSQLite,
			Key:    "colibri_timeline_custom_events_v1",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".rlab/log",
			},
		},
		Progress: ProgressConfig{
			MicroPerCategory:    3,
			EvidencePerCategory: 1,
			MicroMax:            21,
			EvidenceMax:         7,
		},
		Levels: defaultLevels(),
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Identity: IdentityConfig{
			DisplayName: "Ana López",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// [[levels]] replaces the default ladder instead of appending to it.
	cfg.Levels = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = append([]LevelConfig(nil), defaults.Levels...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverSQLite, "":
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required")
		}
	case StorageDriverJSONFile:
		if strings.TrimSpace(c.Storage.JSONPath) == "" {
			return errors.New("storage.json_path is required for the jsonfile driver")
		}
	default:
		return fmt.Errorf("invalid storage.driver: %q", c.Storage.Driver)
	}

	if _, err := c.LevelLadder(); err != nil {
		return fmt.Errorf("invalid levels: %w", err)
	}

	p := c.Progress
	if p.MicroPerCategory < 0 || p.EvidencePerCategory < 0 || p.MicroMax < 0 || p.EvidenceMax < 0 {
		return errors.New("progress maxima must be >= 0")
	}
	// A threshold above its cap could never be reached.
	for _, level := range c.Levels {
		if level.Placeholder {
			continue
		}
		if level.MicroThreshold > p.MicroMax {
			return fmt.Errorf("level %q micro_threshold %d exceeds progress.micro_max %d", level.ID, level.MicroThreshold, p.MicroMax)
		}
		if level.EvidenceThreshold > p.EvidenceMax {
			return fmt.Errorf("level %q evidence_threshold %d exceeds progress.evidence_max %d", level.ID, level.EvidenceThreshold, p.EvidenceMax)
		}
	}

	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	return nil
}

// LevelLadder builds the validated level ladder from [[levels]].
func (c Config) LevelLadder() (domain.LevelLadder, error) {
	levels := make([]domain.Level, 0, len(c.Levels))
	for _, level := range c.Levels {
		levels = append(levels, domain.Level(level))
	}
	return domain.NewLevelLadder(levels)
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
