package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level

	DBPath string `json:"db_path"`

	BrokerURL      string `json:"broker_url"`
	ClientID       string `json:"client_id"`
	TelemetryTopic string `json:"telemetry_topic"`
	CommandTopic   string `json:"command_topic"`

	DeviceIDs           []string `json:"device_ids"`
	PollIntervalSeconds int      `json:"poll_interval_seconds"`

	HTTPPort  int    `json:"http_port"`
	JWTSecret string `json:"jwt_secret"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
}

func Load() *Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.DBPath == "" {
		cfg.DBPath = "data/ahu.db"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "ahu-controller"
	}
	if cfg.TelemetryTopic == "" {
		cfg.TelemetryTopic = "device/info"
	}
	if cfg.CommandTopic == "" {
		cfg.CommandTopic = "/device/ahu"
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 5
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 3000
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "ahu."
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var missing []string

	if cfg.BrokerURL == "" {
		missing = append(missing, "broker_url")
	}
	if len(cfg.DeviceIDs) == 0 {
		missing = append(missing, "device_ids")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "jwt_secret")
	}

	if len(missing) > 0 {
		panic("Missing required config fields: " + strings.Join(missing, ", "))
	}
}
