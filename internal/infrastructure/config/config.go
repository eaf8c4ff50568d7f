package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// serverlessDBFile is the storage file name used in the temp directory when
// running on an ephemeral filesystem.
const serverlessDBFile = "devices.db"

// Config is the root configuration structure for the smart home backend.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Deployment DeploymentConfig `yaml:"deployment"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AppConfig contains application identity settings.
type AppConfig struct {
	Name string `yaml:"name"`
}

// DeploymentConfig describes the environment the process runs in.
type DeploymentConfig struct {
	// Serverless marks an ephemeral-filesystem deployment: the database is
	// placed in the temp directory and the background simulator is disabled.
	Serverless bool `yaml:"serverless"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	// StaticDir optionally serves the application shell from disk instead of
	// the embedded copy.
	StaticDir string `yaml:"static_dir"`
}

// APITimeoutConfig holds the HTTP server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout is the limit for reading a request, headers included.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return seconds(t.Read) }

// WriteTimeout is the limit for writing a response.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }

// IdleTimeout is how long a keep-alive connection may sit unused.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return seconds(t.Idle) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// SimulatorConfig controls the background temperature simulator.
type SimulatorConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval is the pause between updates in seconds.
	Interval int `yaml:"interval"`
	// SensorID is the device id of the simulated temperature sensor.
	SensorID int64 `yaml:"sensor_id"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the YAML file at path over the built-in defaults, then applies
// SMARTHOME_* environment overrides and validates the result.
//
// A missing file is reported with an error wrapping fs.ErrNotExist so the
// caller can fall back to Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return finalise(cfg)
}

// Defaults returns the built-in configuration with environment overrides
// applied. It is used when no configuration file is present.
func Defaults() (*Config, error) {
	return finalise(defaultConfig())
}

func finalise(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		App:      AppConfig{Name: "Smart Home"},
		Database: DatabaseConfig{Path: "devices.db", WALMode: true, BusyTimeout: 5},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     5000,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Simulator: SimulatorConfig{Enabled: true, Interval: 5, SensorID: 3},
		MQTT: MQTTConfig{
			Broker:      MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "smarthome-core"},
			QoS:         1,
			Reconnect:   MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
			TopicPrefix: "smarthome",
		},
		InfluxDB: InfluxDBConfig{BatchSize: 100, FlushInterval: 10},
		Logging:  LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// envOverrides maps each SMARTHOME_* variable onto its setting. Values
// that fail to parse are ignored.
var envOverrides = []struct {
	name  string
	apply func(cfg *Config, v string)
}{
	{"SMARTHOME_SERVERLESS", func(cfg *Config, v string) { setBool(&cfg.Deployment.Serverless, v) }},
	{"SMARTHOME_DATABASE_PATH", func(cfg *Config, v string) { cfg.Database.Path = v }},
	{"SMARTHOME_API_HOST", func(cfg *Config, v string) { cfg.API.Host = v }},
	{"SMARTHOME_API_PORT", func(cfg *Config, v string) { setInt(&cfg.API.Port, v) }},
	{"SMARTHOME_MQTT_HOST", func(cfg *Config, v string) { cfg.MQTT.Broker.Host = v }},
	{"SMARTHOME_MQTT_USERNAME", func(cfg *Config, v string) { cfg.MQTT.Auth.Username = v }},
	{"SMARTHOME_MQTT_PASSWORD", func(cfg *Config, v string) { cfg.MQTT.Auth.Password = v }},
	{"SMARTHOME_INFLUXDB_TOKEN", func(cfg *Config, v string) { cfg.InfluxDB.Token = v }},
	{"SMARTHOME_LOG_LEVEL", func(cfg *Config, v string) { cfg.Logging.Level = v }},
}

func applyEnvOverrides(cfg *Config) {
	// Hosting platforms with an ephemeral filesystem set VERCEL.
	if os.Getenv("VERCEL") != "" {
		cfg.Deployment.Serverless = true
	}
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func setBool(dst *bool, v string) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Database.Path != "" || c.Deployment.Serverless, "database.path is required")
	check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")
	check(!c.Simulator.Enabled || c.Simulator.Interval >= 1, "simulator.interval must be at least 1 second")
	check(c.Simulator.SensorID > 0 || !c.Simulator.Enabled, "simulator.sensor_id must be positive")
	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	check(!c.InfluxDB.Enabled || (c.InfluxDB.URL != "" && c.InfluxDB.Bucket != ""),
		"influxdb.url and influxdb.bucket are required when influxdb is enabled")

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}
	return nil
}

// StoragePath returns the SQLite file for the current deployment.
// Serverless deployments write to the temp directory because the
// application directory is read-only there.
func (c *Config) StoragePath() string {
	if c.Deployment.Serverless {
		return filepath.Join(os.TempDir(), serverlessDBFile)
	}
	return c.Database.Path
}

// SimulatorEnabled reports whether the temperature simulator should run.
// It never runs in serverless deployments.
func (c *Config) SimulatorEnabled() bool {
	return c.Simulator.Enabled && !c.Deployment.Serverless
}

// GetSimulatorInterval returns the simulator period.
func (c *Config) GetSimulatorInterval() time.Duration {
	return seconds(c.Simulator.Interval)
}
