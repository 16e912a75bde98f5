package config

import "errors"

var (
	ErrReadingConfigFile       = errors.New("failed to read config file")
	ErrUnmarshallingConfig     = errors.New("failed to unmarshal config")
	ErrConfigFileMissing       = errors.New("config file not found")
	ErrEmptyKafkaBrokers       = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic         = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID       = errors.New("kafka groupID cannot be empty")
	ErrInvalidCalculatorWindow = errors.New("calculator window must be at least 1ms")
	ErrInvalidCalculator       = errors.New("invalid calculator settings")
	ErrInvalidIngestionLimits  = errors.New("invalid ingestion limits")
	ErrInvalidAlertThresholds  = errors.New("invalid alert thresholds")
)
