// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then INGREDIENTCORE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
	Log     Log     `yaml:"log"`
}

// Storage selects the persistent store backend.
type Storage struct {
	// Driver is memory, sqlite or postgres.
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects where catalog exports are written.
type Blob struct {
	// Driver is fs, s3 or memory.
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures an S3 or MinIO bucket. Empty credentials fall back to the
// default AWS credential chain.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Log configures the process logger.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Storage: Storage{Driver: "sqlite", SQLitePath: "ingredientcore.db"},
		Blob:    Blob{Driver: "fs", FSRoot: "blobdata", S3: S3{Region: "us-east-1"}},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty) over the defaults and applies environment
// overrides. A missing file is an error only when path was given explicitly.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment variables:
//
//	INGREDIENTCORE_STORAGE_DRIVER: memory|sqlite|postgres
//	INGREDIENTCORE_SQLITE_PATH, INGREDIENTCORE_POSTGRES_DSN
//	INGREDIENTCORE_BLOB_DRIVER: fs|s3|memory
//	INGREDIENTCORE_BLOB_FS_ROOT
//	INGREDIENTCORE_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE
//	INGREDIENTCORE_LOG_LEVEL, INGREDIENTCORE_LOG_FORMAT
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.Driver, "INGREDIENTCORE_STORAGE_DRIVER")
	set(&cfg.Storage.SQLitePath, "INGREDIENTCORE_SQLITE_PATH")
	set(&cfg.Storage.PostgresDSN, "INGREDIENTCORE_POSTGRES_DSN")
	set(&cfg.Blob.Driver, "INGREDIENTCORE_BLOB_DRIVER")
	set(&cfg.Blob.FSRoot, "INGREDIENTCORE_BLOB_FS_ROOT")
	set(&cfg.Blob.S3.Bucket, "INGREDIENTCORE_BLOB_S3_BUCKET")
	set(&cfg.Blob.S3.Region, "INGREDIENTCORE_BLOB_S3_REGION")
	set(&cfg.Blob.S3.Endpoint, "INGREDIENTCORE_BLOB_S3_ENDPOINT")
	if v := getenv("INGREDIENTCORE_BLOB_S3_PATH_STYLE"); v != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	set(&cfg.Log.Level, "INGREDIENTCORE_LOG_LEVEL")
	set(&cfg.Log.Format, "INGREDIENTCORE_LOG_FORMAT")
}

// Validate reports unknown drivers and missing required settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
