package pipeline

import "errors"

var (
	ErrInvalidKafkaConfig     = errors.New("invalid Kafka configuration provided")
	ErrKafkaFetchFailed       = errors.New("failed to fetch message from Kafka")
	ErrKafkaCommitFailed      = errors.New("failed to commit Kafka offset")
	ErrConsumerCreationFailed = errors.New("failed to create consumer")
	ErrPublisherCreation      = errors.New("failed to create publisher")
	ErrConsumerRunFailed      = errors.New("consumer component failed")
	ErrCalculatorRunFailed    = errors.New("calculator component failed")
	ErrAlerterRunFailed       = errors.New("alerter component failed")
	ErrPublisherRunFailed     = errors.New("publisher component failed")
)
