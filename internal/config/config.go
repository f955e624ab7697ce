package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type AppConfig struct {
	Port                int      `toml:"port"`
	Endpoint            string   `toml:"endpoint"`
	Workers             int      `toml:"workers"`
	QueueSize           int      `toml:"queue_size"`
	DefaultWidth        int      `toml:"default_width"`
	DefaultHeight       int      `toml:"default_height"`
	MaxUploadBytes      int64    `toml:"max_upload_bytes"`
	JPEGQuality         int      `toml:"jpeg_quality"`
	Enhance             bool     `toml:"enhance"`
	Scaling             string   `toml:"scaling"`
	ByteOrder           string   `toml:"byte_order"`
	TempDir             string   `toml:"temp_dir"`
	SavedDir            string   `toml:"saved_dir"`
	RawLogEnabled       bool     `toml:"raw_log"`
	RawLogDir           string   `toml:"raw_log_dir"`
	IngestLogEvery      int      `toml:"ingest_log_every"`
	IngestEnabled       bool     `toml:"ingest"`
	Debug               bool     `toml:"debug"`
	DebugRate           float64  `toml:"debug_rate"`
	ClassifierURL       string   `toml:"classifier_url"`
	ClassifierHealthURL string   `toml:"classifier_health_url"`
	ClassifierTimeout   Duration `toml:"classifier_timeout"`
	HealthInterval      Duration `toml:"health_interval"`
	UIRate              Duration `toml:"ui_rate"`
	RecentResults       int      `toml:"recent_results"`
}

// Duration decodes TOML strings such as "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() AppConfig {
	return AppConfig{
		Port:              3000,
		Endpoint:          "tcp://localhost:31001",
		Workers:           4,
		QueueSize:         16,
		DefaultWidth:      640,
		DefaultHeight:     480,
		MaxUploadBytes:    16 << 20,
		JPEGQuality:       90,
		Enhance:           true,
		Scaling:           "proportional",
		TempDir:           "temp",
		SavedDir:          "saved_images",
		RawLogDir:         "rawlog",
		IngestLogEvery:    100,
		DebugRate:         1,
		ClassifierTimeout: Duration{30 * time.Second},
		HealthInterval:    Duration{10 * time.Second},
		UIRate:            Duration{time.Second},
		RecentResults:     50,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.DefaultWidth < 1 || c.DefaultHeight < 1 {
		errs = append(errs, errors.New("default dimensions must be positive"))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d out of range", c.JPEGQuality))
	}
	switch c.Scaling {
	case "", "proportional", "replicate", "shift":
	default:
		errs = append(errs, fmt.Errorf("unknown scaling %q", c.Scaling))
	}
	switch c.ByteOrder {
	case "", "auto", "le", "be":
	default:
		errs = append(errs, fmt.Errorf("unknown byte_order %q", c.ByteOrder))
	}
	if c.TempDir == "" || c.SavedDir == "" {
		errs = append(errs, errors.New("temp_dir and saved_dir are required"))
	}
	return errors.Join(errs...)
}
