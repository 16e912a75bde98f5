package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

const (
	defaultKafkaGroupID     = "vo2lens-default-group"
	defaultCalculatorWindow = 30 * time.Second
	defaultMinVenturiArea   = 0.0001
	defaultMaxVenturiArea   = 0.001
	defaultMaxAbsPressure   = 1000.0
	defaultHTTPListenAddr   = ":8080"
	defaultHTTPEnabled      = true
	defaultLogLevel         = "info"
	defaultLogFormat        = "console"
	defaultLogFileEnabled   = false
	defaultLogDirectory     = "log"
	defaultLogFilename      = "vo2lens.log"
	defaultLogMaxSizeMB     = 100
	defaultLogMaxBackups    = 3
	defaultLogMaxAgeDays    = 7
	defaultLogCompress      = false

	// Environment variable prefix
	envPrefix = "VO2LENS"
)

type Config struct {
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Calculator CalculatorConfig `mapstructure:"calculator"`
	Ingestion  IngestionConfig  `mapstructure:"ingestion"`
	Alerts     AlertConfig      `mapstructure:"alerts"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	GroupID     string   `mapstructure:"groupID"`
	ResultTopic string   `mapstructure:"resultTopic"` // empty disables publishing
}

type CalculatorConfig struct {
	AirDensity        float64       `mapstructure:"airDensity"`        // kg/m³
	DrynessCorrection float64       `mapstructure:"drynessCorrection"` // dimensionless
	AmbientO2Percent  float64       `mapstructure:"ambientO2Percent"`
	Window            time.Duration `mapstructure:"window"`
}

type IngestionConfig struct {
	MinVenturiArea float64 `mapstructure:"minVenturiArea"`
	MaxVenturiArea float64 `mapstructure:"maxVenturiArea"`
	MaxAbsPressure float64 `mapstructure:"maxAbsPressure"`
}

// AlertConfig bounds what a plausible session result looks like. Nil disables a check.
type AlertConfig struct {
	VO2MaxMin          *float64 `mapstructure:"vo2MaxMin"`
	VO2MaxMax          *float64 `mapstructure:"vo2MaxMax"`
	InvalidWindowRate  *float64 `mapstructure:"invalidWindowRate"`
	DroppedReadingRate *float64 `mapstructure:"droppedReadingRate"`
}

type HTTPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listenAddr"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Core converts the calculator section into the calculator's own configuration.
func (c CalculatorConfig) Core() vo2max.Config {
	return vo2max.Config{
		AirDensity:        c.AirDensity,
		DrynessCorrection: c.DrynessCorrection,
		AmbientO2Percent:  c.AmbientO2Percent,
		WindowMs:          uint64(c.Window / time.Millisecond),
	}
}

// Limits converts the ingestion section into sanitizer limits.
func (c IngestionConfig) Limits() message.Limits {
	return message.Limits{
		MinVenturiArea: c.MinVenturiArea,
		MaxVenturiArea: c.MaxVenturiArea,
		MaxAbsPressure: c.MaxAbsPressure,
	}
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
// An empty configPath skips the file and uses defaults plus environment overrides.
// Kafka settings are not validated here; see ValidateStreaming.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
// Every key the service reads has a default so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("kafka.resultTopic", "")
	v.SetDefault("calculator.airDensity", vo2max.DefaultAirDensity)
	v.SetDefault("calculator.drynessCorrection", vo2max.DefaultDrynessCorrection)
	v.SetDefault("calculator.ambientO2Percent", vo2max.DefaultAmbientO2Percent)
	v.SetDefault("calculator.window", defaultCalculatorWindow)
	v.SetDefault("ingestion.minVenturiArea", defaultMinVenturiArea)
	v.SetDefault("ingestion.maxVenturiArea", defaultMaxVenturiArea)
	v.SetDefault("ingestion.maxAbsPressure", defaultMaxAbsPressure)
	v.SetDefault("http.enabled", defaultHTTPEnabled)
	v.SetDefault("http.listenAddr", defaultHTTPListenAddr)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Calculator.Window < time.Millisecond {
		return ErrInvalidCalculatorWindow
	}
	if err := cfg.Calculator.Core().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCalculator, err)
	}

	in := cfg.Ingestion
	if in.MinVenturiArea < 0 || in.MaxVenturiArea <= in.MinVenturiArea || in.MaxAbsPressure <= 0 {
		return ErrInvalidIngestionLimits
	}

	a := cfg.Alerts
	if a.VO2MaxMin != nil && a.VO2MaxMax != nil && *a.VO2MaxMin > *a.VO2MaxMax {
		return fmt.Errorf("%w: vo2MaxMin exceeds vo2MaxMax", ErrInvalidAlertThresholds)
	}
	for name, rate := range map[string]*float64{"invalidWindowRate": a.InvalidWindowRate, "droppedReadingRate": a.DroppedReadingRate} {
		if rate != nil && (*rate < 0 || *rate > 1) {
			return fmt.Errorf("%w: %s must be within [0, 1]", ErrInvalidAlertThresholds, name)
		}
	}
	return nil
}

// ValidateStreaming checks the settings the Kafka pipeline needs.
func (c *Config) ValidateStreaming() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrEmptyKafkaBrokers
	}
	if c.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if c.Kafka.GroupID == "" {
		return ErrEmptyKafkaGroupID
	}
	return nil
}
