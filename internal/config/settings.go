package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the settings file inside the config directory.
const SettingsFileName = "biasd.yaml"

// Scan interval bounds in seconds.
const (
	MinScanInterval     = 5
	MaxScanInterval     = 300
	DefaultScanInterval = 10
)

// Settings is the daemon configuration. Values come from defaults, then the
// YAML file, then BIASD_* environment variables.
type Settings struct {
	Device   DeviceSettings   `yaml:"device"`
	Store    StoreSettings    `yaml:"store"`
	API      APISettings      `yaml:"api"`
	MQTT     MQTTSettings     `yaml:"mqtt"`
	InfluxDB InfluxDBSettings `yaml:"influxdb"`
	Logging  LoggingSettings  `yaml:"logging"`
	Backups  BackupSettings   `yaml:"backups"`
}

// DeviceSettings addresses the amplifier.
type DeviceSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Timeout  int    `yaml:"timeout"` // seconds
	ClientID string `yaml:"client_id"`
	// Schema is auto, legacy, extended or late.
	Schema       string  `yaml:"schema"`
	RateLimit    float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst        int     `yaml:"burst"`
	ScanInterval int     `yaml:"scan_interval"` // seconds
}

// StoreSettings selects the preset blob store.
type StoreSettings struct {
	// Backend is file, sqlite or memory.
	Backend string `yaml:"backend"`
	// Path is a directory for file, a database file for sqlite. Relative
	// paths resolve against the config directory.
	Path string `yaml:"path"`
	// Instance distinguishes preset collections sharing one store.
	Instance string `yaml:"instance"`
	// Generation is legacy (gain 0-2) or extended (gain 0-10).
	Generation string `yaml:"generation"`
}

// APISettings configures the REST server.
type APISettings struct {
	Addr     string             `yaml:"addr"`
	Timeouts APITimeoutSettings `yaml:"timeouts"`
	// Announce registers the API over mDNS.
	Announce bool `yaml:"announce"`
}

// APITimeoutSettings are HTTP server timeouts in seconds.
type APITimeoutSettings struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTSettings configures the MQTT bridge.
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// InfluxDBSettings configures metric export.
type InfluxDBSettings struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingSettings configures slog.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// BackupSettings configures preset backups.
type BackupSettings struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Keep    int    `yaml:"keep"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Device: DeviceSettings{
			Port:         80,
			Timeout:      5,
			Schema:       "auto",
			ScanInterval: DefaultScanInterval,
		},
		Store: StoreSettings{
			Backend:    "file",
			Path:       "presets",
			Instance:   "default",
			Generation: "extended",
		},
		API: APISettings{
			Addr: ":8080",
			Timeouts: APITimeoutSettings{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Announce: true,
		},
		MQTT: MQTTSettings{
			Host:        "localhost",
			Port:        1883,
			ClientID:    "biasd",
			QoS:         1,
			TopicPrefix: "bias",
		},
		InfluxDB: InfluxDBSettings{
			Bucket:        "biasd",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Backups: BackupSettings{
			Enabled: true,
			Dir:     "backups",
			Keep:    7,
		},
	}
}

// LoadSettings reads SettingsFileName from configDir. A missing file yields
// the defaults; environment overrides and validation apply either way.
func LoadSettings(configDir string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(configDir, SettingsFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
	}

	applyEnvOverrides(&s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}
	return &s, nil
}

// applyEnvOverrides applies BIASD_SECTION_KEY variables.
func applyEnvOverrides(s *Settings) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("BIASD_DEVICE_HOST", &s.Device.Host)
	num("BIASD_DEVICE_PORT", &s.Device.Port)
	str("BIASD_DEVICE_SCHEMA", &s.Device.Schema)
	num("BIASD_DEVICE_SCAN_INTERVAL", &s.Device.ScanInterval)
	str("BIASD_STORE_BACKEND", &s.Store.Backend)
	str("BIASD_STORE_PATH", &s.Store.Path)
	str("BIASD_API_ADDR", &s.API.Addr)
	flag("BIASD_MQTT_ENABLED", &s.MQTT.Enabled)
	flag("BIASD_API_ANNOUNCE", &s.API.Announce)
	str("BIASD_MQTT_HOST", &s.MQTT.Host)
	str("BIASD_MQTT_USERNAME", &s.MQTT.Username)
	str("BIASD_MQTT_PASSWORD", &s.MQTT.Password)
	flag("BIASD_INFLUXDB_ENABLED", &s.InfluxDB.Enabled)
	str("BIASD_INFLUXDB_URL", &s.InfluxDB.URL)
	str("BIASD_INFLUXDB_TOKEN", &s.InfluxDB.Token)
	str("BIASD_LOG_LEVEL", &s.Logging.Level)
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []string

	if s.Device.Port < 1 || s.Device.Port > 65535 {
		errs = append(errs, "device.port must be between 1 and 65535")
	}
	if s.Device.Timeout < 1 {
		errs = append(errs, "device.timeout must be at least 1 second")
	}
	switch s.Device.Schema {
	case "auto", "legacy", "extended", "late":
	default:
		errs = append(errs, fmt.Sprintf("device.schema %q must be auto, legacy, extended or late", s.Device.Schema))
	}
	if s.Device.ScanInterval < MinScanInterval || s.Device.ScanInterval > MaxScanInterval {
		errs = append(errs, fmt.Sprintf("device.scan_interval must be between %d and %d", MinScanInterval, MaxScanInterval))
	}
	if s.Device.RateLimit < 0 {
		errs = append(errs, "device.rate_limit must not be negative")
	}

	switch s.Store.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q must be file, sqlite or memory", s.Store.Backend))
	}
	if s.Store.Backend != "memory" && s.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if strings.TrimSpace(s.Store.Instance) == "" {
		errs = append(errs, "store.instance is required")
	}
	switch s.Store.Generation {
	case "legacy", "extended":
	default:
		errs = append(errs, fmt.Sprintf("store.generation %q must be legacy or extended", s.Store.Generation))
	}

	if s.API.Addr == "" {
		errs = append(errs, "api.addr is required")
	}

	if s.MQTT.Enabled {
		if s.MQTT.Host == "" {
			errs = append(errs, "mqtt.host is required")
		}
		if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if s.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	if s.InfluxDB.Enabled {
		if s.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required")
		}
		if s.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required")
		}
	}

	switch strings.ToLower(s.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn or error", s.Logging.Level))
	}

	if s.Backups.Enabled && s.Backups.Keep < 1 {
		errs = append(errs, "backups.keep must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ScanEvery returns the refresh period.
func (d DeviceSettings) ScanEvery() time.Duration {
	return time.Duration(d.ScanInterval) * time.Second
}

// RequestTimeout returns the per-call device timeout.
func (d DeviceSettings) RequestTimeout() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// PresetKey returns the blob key the preset collection is stored under.
func (s StoreSettings) PresetKey() string {
	return "bias_presets_" + s.Instance
}

// Resolve returns p relative to configDir unless it is absolute.
func Resolve(configDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(configDir, p)
}

// OpenStore opens the configured blob store. The returned closer is never
// nil.
func OpenStore(s StoreSettings, configDir string) (BlobStore, io.Closer, error) {
	switch s.Backend {
	case "memory":
		return NewMemStore(), io.NopCloser(nil), nil
	case "sqlite":
		st, err := OpenSQLiteStore(Resolve(configDir, s.Path))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return NewFileStore(Resolve(configDir, s.Path)), io.NopCloser(nil), nil
	}
}
