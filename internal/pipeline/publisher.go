package pipeline

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/config"
)

// messageWriter is the part of *kafka.Writer the publisher relies on.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes session results to the result topic, keyed by session ID.
type Publisher struct {
	writer messageWriter
	input  <-chan SessionResult
	logger *zap.Logger
}

// NewPublisher creates a publisher for cfg.ResultTopic.
func NewPublisher(cfg config.KafkaConfig, input <-chan SessionResult, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 || cfg.ResultTopic == "" {
		return nil, ErrInvalidKafkaConfig
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.ResultTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger:  kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}
	logger.Info("Kafka publisher created",
		zap.String("topic", cfg.ResultTopic),
		zap.Strings("brokers", cfg.Brokers),
	)
	return newPublisher(w, input, logger), nil
}

func newPublisher(writer messageWriter, input <-chan SessionResult, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		input:  input,
		logger: logger,
	}
}

// Run publishes results until the input channel closes or ctx is cancelled.
// A result that cannot be written is logged and counted; the loop carries on.
func (p *Publisher) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	sugar.Info("Starting publisher loop...")

	defer func() {
		if err := p.writer.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka writer cleanly", zap.Error(err))
		}
		sugar.Info("Publisher loop stopped.")
	}()

	for {
		select {
		case result, ok := <-p.input:
			if !ok {
				sugar.Info("Publisher input channel closed.")
				return nil
			}
			p.publish(ctx, result)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Publisher) publish(ctx context.Context, result SessionResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		p.logger.Error("Failed to encode session result", zap.String("session_id", result.SessionID), zap.Error(err))
		resultsPublished.WithLabelValues("encode_error").Inc()
		return
	}

	msg := kafka.Message{Key: []byte(result.SessionID), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish session result", zap.String("session_id", result.SessionID), zap.Error(err))
		resultsPublished.WithLabelValues("write_error").Inc()
		return
	}
	resultsPublished.WithLabelValues("ok").Inc()
	p.logger.Debug("Session result published", zap.String("session_id", result.SessionID))
}
