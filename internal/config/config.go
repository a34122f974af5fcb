// Package config loads zc settings from ~/.zonecharge/config.toml, a .env file
// and ZONECHARGE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/zonecharge/internal/application"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "ZONECHARGE"
	configDirName  = ".zonecharge"
	configFileName = "config.toml"
	defaultEnvFile = ".env"
)

const (
	KeyAPIBaseURL                = "api.base_url"
	KeyAPITimeout                = "api.timeout"
	KeyPollInterval              = "poll.interval"
	KeyLocationSource            = "location.source"
	KeyLocationTimeout           = "location.timeout"
	KeyLocationMaxSampleAge      = "location.max_sample_age"
	KeyLocationHighAccuracy      = "location.high_accuracy"
	KeyLocationAccuracyThreshold = "location.accuracy_threshold"
	KeyLocationResume            = "location.resume"
	KeyLocationResumeMaxAge      = "location.resume_max_age"
	KeyLocationFilePath          = "location.file.path"
	KeyLocationMQTTBroker        = "location.mqtt.broker"
	KeyLocationMQTTTopic         = "location.mqtt.topic"
	KeyLocationMQTTClientID      = "location.mqtt.client_id"
	KeyLocationMQTTUsername      = "location.mqtt.username"
	KeyLocationMQTTPassword      = "location.mqtt.password"
	KeyLocationMQTTQoS           = "location.mqtt.qos"
	KeyLocationStaticLatitude    = "location.static.latitude"
	KeyLocationStaticLongitude   = "location.static.longitude"
	KeyStatePath                 = "state.path"
	KeySecretsDir                = "secrets.dir"
	KeySecretsBackend            = "secrets.backend"
	KeyNATSURL                   = "nats.url"
	KeyLogLevel                  = "log.level"
	KeyLogFormat                 = "log.format"
)

const (
	SecretsBackendAuto = "auto"
	SecretsBackendFile = "file"
	SecretsBackendPass = "pass"
)

const (
	LocationSourceFile   = "file"
	LocationSourceMQTT   = "mqtt"
	LocationSourceStatic = "static"
)

type Config struct {
	API      APIConfig
	Poll     PollConfig
	Location LocationConfig
	State    StateConfig
	Secrets  SecretsConfig
	NATS     NATSConfig
	Log      LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PollConfig struct {
	Interval time.Duration
}

type LocationConfig struct {
	Source            string
	Timeout           time.Duration
	MaxSampleAge      time.Duration
	HighAccuracy      bool
	AccuracyThreshold float64
	Resume            bool
	ResumeMaxAge      time.Duration
	File              FileLocationConfig
	MQTT              MQTTLocationConfig
	Static            StaticLocationConfig
}

type FileLocationConfig struct {
	Path string
}

type MQTTLocationConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
}

type StaticLocationConfig struct {
	Latitude  float64
	Longitude float64
}

type StateConfig struct {
	Path string
}

type SecretsConfig struct {
	Dir string
	// Backend is auto (pass with file fallback), file or pass.
	Backend string
}

type NATSConfig struct {
	URL string
}

type LoadOptions struct {
	// ConfigFile overrides ~/.zonecharge/config.toml. A missing default file
	// is fine; a missing explicit file is an error.
	ConfigFile string
	// EnvFile defaults to .env in the working directory.
	EnvFile string
	// HomeDir overrides os.UserHomeDir for default paths.
	HomeDir string
}

// Load reads configuration and validates it. The returned viper instance
// carries the merged settings for adapters that read their own keys.
func Load(opts LoadOptions) (*Config, *viper.Viper, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, nil, err
	}

	home := opts.HomeDir
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v, home)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, opts.ConfigFile, home); err != nil {
		return nil, nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

func DefaultConfigPath(home string) string {
	return filepath.Join(home, configDirName, configFileName)
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault(KeyAPIBaseURL, "http://localhost:8000/api")
	v.SetDefault(KeyAPITimeout, "10s")
	v.SetDefault(KeyPollInterval, "1s")
	v.SetDefault(KeyLocationSource, LocationSourceFile)
	v.SetDefault(KeyLocationTimeout, "20s")
	v.SetDefault(KeyLocationMaxSampleAge, "1s")
	v.SetDefault(KeyLocationHighAccuracy, true)
	v.SetDefault(KeyLocationAccuracyThreshold, 100.0)
	v.SetDefault(KeyLocationResume, true)
	v.SetDefault(KeyLocationResumeMaxAge, "10m")
	v.SetDefault(KeyLocationFilePath, filepath.Join(home, configDirName, "fix.json"))
	v.SetDefault(KeyLocationMQTTBroker, "")
	v.SetDefault(KeyLocationMQTTTopic, "")
	v.SetDefault(KeyLocationMQTTClientID, "zonecharge")
	v.SetDefault(KeyLocationMQTTUsername, "")
	v.SetDefault(KeyLocationMQTTPassword, "")
	v.SetDefault(KeyLocationMQTTQoS, 1)
	v.SetDefault(KeyLocationStaticLatitude, 0.0)
	v.SetDefault(KeyLocationStaticLongitude, 0.0)
	v.SetDefault(KeyStatePath, filepath.Join(home, configDirName, "state.toml"))
	v.SetDefault(KeySecretsDir, filepath.Join(home, configDirName, "secrets"))
	v.SetDefault(KeySecretsBackend, SecretsBackendAuto)
	v.SetDefault(KeyNATSURL, "")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path, home string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath(home)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	d := decoder{v: v}
	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
			Timeout: d.duration(KeyAPITimeout),
		},
		Poll: PollConfig{
			Interval: d.duration(KeyPollInterval),
		},
		Location: LocationConfig{
			Source:            strings.ToLower(strings.TrimSpace(v.GetString(KeyLocationSource))),
			Timeout:           d.duration(KeyLocationTimeout),
			MaxSampleAge:      d.duration(KeyLocationMaxSampleAge),
			HighAccuracy:      d.boolean(KeyLocationHighAccuracy),
			AccuracyThreshold: d.float(KeyLocationAccuracyThreshold),
			Resume:            d.boolean(KeyLocationResume),
			ResumeMaxAge:      d.duration(KeyLocationResumeMaxAge),
			File: FileLocationConfig{
				Path: expandHome(v.GetString(KeyLocationFilePath)),
			},
			MQTT: MQTTLocationConfig{
				Broker:   strings.TrimSpace(v.GetString(KeyLocationMQTTBroker)),
				Topic:    strings.TrimSpace(v.GetString(KeyLocationMQTTTopic)),
				ClientID: strings.TrimSpace(v.GetString(KeyLocationMQTTClientID)),
				Username: v.GetString(KeyLocationMQTTUsername),
				Password: v.GetString(KeyLocationMQTTPassword),
				QoS:      d.qos(KeyLocationMQTTQoS),
			},
			Static: StaticLocationConfig{
				Latitude:  d.float(KeyLocationStaticLatitude),
				Longitude: d.float(KeyLocationStaticLongitude),
			},
		},
		State:   StateConfig{Path: expandHome(v.GetString(KeyStatePath))},
		Secrets: SecretsConfig{
			Dir:     expandHome(v.GetString(KeySecretsDir)),
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeySecretsBackend))),
		},
		NATS:    NATSConfig{URL: strings.TrimSpace(v.GetString(KeyNATSURL))},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		},
	}

	if err := errors.Join(d.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decoder collects conversion errors so every bad key is reported at once.
type decoder struct {
	v    *viper.Viper
	errs []error
}

func (d *decoder) duration(key string) time.Duration {
	value, err := cast.ToDurationE(d.v.Get(key))
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("%s: invalid duration %q", key, d.v.GetString(key)))
	}
	return value
}

func (d *decoder) boolean(key string) bool {
	value, err := cast.ToBoolE(d.v.Get(key))
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("%s: invalid boolean %q", key, d.v.GetString(key)))
	}
	return value
}

func (d *decoder) float(key string) float64 {
	value, err := cast.ToFloat64E(d.v.Get(key))
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("%s: invalid number %q", key, d.v.GetString(key)))
	}
	return value
}

func (d *decoder) qos(key string) byte {
	value, err := cast.ToIntE(d.v.Get(key))
	if err != nil || value < 0 || value > 2 {
		d.errs = append(d.errs, fmt.Errorf("%s: must be 0, 1 or 2, got %q", key, d.v.GetString(key)))
		return 0
	}
	return byte(value)
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Validate reports every invalid setting, each prefixed with its key.
func (c *Config) Validate() error {
	var errs []error
	add := func(key, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
	}

	if err := validateBaseURL(c.API.BaseURL); err != nil {
		add(KeyAPIBaseURL, "%v", err)
	}
	if c.API.Timeout <= 0 {
		add(KeyAPITimeout, "must be positive")
	}
	if c.Poll.Interval <= 0 {
		add(KeyPollInterval, "must be positive")
	}
	if c.Location.Timeout <= 0 {
		add(KeyLocationTimeout, "must be positive")
	}
	if c.Location.MaxSampleAge < 0 {
		add(KeyLocationMaxSampleAge, "must not be negative")
	}
	if c.Location.AccuracyThreshold < 0 {
		add(KeyLocationAccuracyThreshold, "must not be negative")
	}
	if c.Location.ResumeMaxAge < 0 {
		add(KeyLocationResumeMaxAge, "must not be negative")
	}

	switch c.Location.Source {
	case LocationSourceFile:
		if c.Location.File.Path == "" {
			add(KeyLocationFilePath, "required when %s is %q", KeyLocationSource, LocationSourceFile)
		}
	case LocationSourceMQTT:
		if c.Location.MQTT.Broker == "" {
			add(KeyLocationMQTTBroker, "required when %s is %q", KeyLocationSource, LocationSourceMQTT)
		}
		if c.Location.MQTT.Topic == "" {
			add(KeyLocationMQTTTopic, "required when %s is %q", KeyLocationSource, LocationSourceMQTT)
		}
	case LocationSourceStatic:
		if lat := c.Location.Static.Latitude; lat < -90 || lat > 90 {
			add(KeyLocationStaticLatitude, "must be between -90 and 90")
		}
		if lon := c.Location.Static.Longitude; lon < -180 || lon > 180 {
			add(KeyLocationStaticLongitude, "must be between -180 and 180")
		}
	default:
		add(KeyLocationSource, "must be one of %s, %s or %s, got %q",
			LocationSourceFile, LocationSourceMQTT, LocationSourceStatic, c.Location.Source)
	}

	if c.State.Path == "" {
		add(KeyStatePath, "required")
	}
	if c.Secrets.Dir == "" {
		add(KeySecretsDir, "required")
	}
	switch c.Secrets.Backend {
	case SecretsBackendAuto, SecretsBackendFile, SecretsBackendPass:
	default:
		add(KeySecretsBackend, "must be %s, %s or %s, got %q",
			SecretsBackendAuto, SecretsBackendFile, SecretsBackendPass, c.Secrets.Backend)
	}
	if c.NATS.URL != "" {
		if u, err := url.Parse(c.NATS.URL); err != nil || u.Host == "" {
			add(KeyNATSURL, "invalid url %q", c.NATS.URL)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		add(KeyLogLevel, "%v", err)
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		add(KeyLogFormat, "must be %s or %s, got %q", LogFormatText, LogFormatJSON, c.Log.Format)
	}

	return errors.Join(errs...)
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// CoordinatorConfig maps polling and location settings onto the coordinator.
func (c *Config) CoordinatorConfig() application.CoordinatorConfig {
	cfg := application.DefaultCoordinatorConfig()
	cfg.TickInterval = c.Poll.Interval
	cfg.LocationTimeout = c.Location.Timeout
	cfg.EvaluationTimeout = c.API.Timeout
	cfg.WatchOptions = domain.LocationOptions{
		HighAccuracy: c.Location.HighAccuracy,
		MaxSampleAge: c.Location.MaxSampleAge,
		Timeout:      cfg.WatchOptions.Timeout,
	}
	cfg.AcquireOptions = domain.LocationOptions{
		HighAccuracy: c.Location.HighAccuracy,
		Timeout:      c.Location.Timeout,
	}
	cfg.ResumeFromLastKnown = c.Location.Resume
	cfg.ResumeMaxAge = c.Location.ResumeMaxAge
	return cfg
}
