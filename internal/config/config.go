package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/taskwire/internal/logging"
	"github.com/danmuck/taskwire/internal/parcel"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the taskwire runtime configuration. Archive mode is a build
// choice and deliberately absent.
type Config struct {
	Archive ArchiveConfig `toml:"archive"`
	Parcel  ParcelConfig  `toml:"parcel"`
	Admin   AdminConfig   `toml:"admin"`
	Log     LogConfig     `toml:"log"`
}

type ArchiveConfig struct {
	// Version is the schema version payloads are saved at and the highest
	// version accepted on load.
	Version        uint32 `toml:"version"`
	MaxRecordBytes uint32 `toml:"max_record_bytes"`
}

type ParcelConfig struct {
	Compression     string `toml:"compression"`
	MaxPayloadBytes uint32 `toml:"max_payload_bytes"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Archive: ArchiveConfig{Version: 1, MaxRecordBytes: 8 * 1024 * 1024},
		Parcel:  ParcelConfig{Compression: "none", MaxPayloadBytes: 8 * 1024 * 1024},
		Admin:   AdminConfig{Addr: ":9400"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Archive.MaxRecordBytes == 0 {
		return fmt.Errorf("%w: archive.max_record_bytes must be positive", ErrInvalid)
	}
	if cfg.Parcel.MaxPayloadBytes == 0 {
		return fmt.Errorf("%w: parcel.max_payload_bytes must be positive", ErrInvalid)
	}
	if cfg.Archive.MaxRecordBytes > cfg.Parcel.MaxPayloadBytes {
		return fmt.Errorf("%w: archive.max_record_bytes exceeds parcel.max_payload_bytes", ErrInvalid)
	}
	if _, err := parcel.ParseCompression(cfg.Parcel.Compression); err != nil {
		return fmt.Errorf("%w: parcel.compression: %v", ErrInvalid, err)
	}
	if strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("%w: admin.addr is required", ErrInvalid)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, cfg.Log.Level)
	}
	return nil
}
