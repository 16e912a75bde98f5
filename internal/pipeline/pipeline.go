package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/config"
	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

const channelBufferSize = 64

// Pipeline orchestrates the stages: consumer, parsing, calculation, alerting, publishing.
type Pipeline struct {
	consumer   runner
	calculator *Calculator
	alerter    *Alerter
	publisher  runner // nil when no result topic is configured
	logger     *zap.Logger

	rawMessages chan []byte
	sessions    chan message.Session
	results     chan SessionResult
	checked     chan SessionResult
}

type runner interface {
	Run(ctx context.Context) error
}

// New creates and wires up a new pipeline. calc is shared with other callers
// (the HTTP API); it holds no per-call state.
func New(cfg *config.Config, calc *vo2max.Calculator, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	p := newPipeline(cfg, calc, logger)

	consumerInstance, err := NewConsumer(cfg.Kafka, p.rawMessages, logger.Named("consumer"))
	if err != nil {
		initLogger.Error("Failed to create consumer", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConsumerCreationFailed, err)
	}
	p.consumer = consumerInstance

	if p.checked != nil {
		publisherInstance, err := NewPublisher(cfg.Kafka, p.checked, logger.Named("publisher"))
		if err != nil {
			initLogger.Error("Failed to create publisher", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrPublisherCreation, err)
		}
		p.publisher = publisherInstance
	} else {
		initLogger.Info("No result topic configured, results are only logged and exported as metrics")
	}

	initLogger.Info("Pipeline instance created successfully")
	return p, nil
}

// newPipeline creates the channels and the in-process stages. The Kafka-facing
// consumer and publisher are attached by the caller.
func newPipeline(cfg *config.Config, calc *vo2max.Calculator, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		logger:      logger.Named("pipeline"),
		rawMessages: make(chan []byte, channelBufferSize),
		sessions:    make(chan message.Session, channelBufferSize),
		results:     make(chan SessionResult, channelBufferSize),
	}
	p.calculator = NewCalculator(calc, cfg.Ingestion.Limits(), p.sessions, p.results, logger.Named("calculator"))

	// A nil output makes the alerter the last stage.
	var alerterOutput chan<- SessionResult
	if cfg.Kafka.ResultTopic != "" {
		p.checked = make(chan SessionResult, channelBufferSize)
		alerterOutput = p.checked
	}
	p.alerter = NewAlerter(cfg.Alerts, p.results, alerterOutput, logger.Named("alerter"))
	return p
}

// Run starts all pipeline components and waits for them to complete or context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	pipelineErr := make(chan error, 5)

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(4)
	go p.runStage(ctx, &wg, pipelineErr, "consumer", p.consumer, ErrConsumerRunFailed, func() { close(p.rawMessages) })
	go p.runParser(ctx, &wg)
	go p.runStage(ctx, &wg, pipelineErr, "calculator", p.calculator, ErrCalculatorRunFailed, func() { close(p.results) })
	go p.runStage(ctx, &wg, pipelineErr, "alerter", p.alerter, ErrAlerterRunFailed, func() {
		if p.checked != nil {
			close(p.checked)
		}
	})
	if p.publisher != nil {
		wg.Add(1)
		go p.runStage(ctx, &wg, pipelineErr, "publisher", p.publisher, ErrPublisherRunFailed, nil)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Wait for context cancellation, the first error from any component, or all components finishing
	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
		cancel()
	case <-done:
	}

	<-done
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr == nil {
		select {
		case firstErr = <-pipelineErr:
		default:
		}
	}
	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

// runStage runs one component and closes its output channel when it returns.
func (p *Pipeline) runStage(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error, name string, stage runner, wrapErr error, closeOutput func()) {
	defer wg.Done()
	if closeOutput != nil {
		defer closeOutput()
	}

	stageLogger := p.logger.With(zap.String("stage", name))
	stageLogger.Debug("Starting stage goroutine...")

	err := stage.Run(ctx)
	switch {
	case err == nil:
		stageLogger.Debug("Stage finished normally")
	case errors.Is(err, context.Canceled):
		stageLogger.Debug("Stage cancelled gracefully")
	default:
		stageLogger.Error("Stage exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", wrapErr, err)
	}
}

// runParser decodes raw messages into sessions.
func (p *Pipeline) runParser(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(p.sessions)

	parserLogger := p.logger.Named("parser").Sugar()
	parserLogger.Debug("Starting parser goroutine...")

	for {
		select {
		case rawMsg, ok := <-p.rawMessages:
			if !ok {
				parserLogger.Debug("Parser finished (raw message channel closed).")
				return
			}

			session, err := message.ParseSession(rawMsg)
			if err != nil {
				parseFailures.Inc()
				parserLogger.Warnw("Failed to parse session message, skipping", zap.Error(err))
				continue
			}

			select {
			case p.sessions <- session:
			case <-ctx.Done():
				parserLogger.Debugw("Parser context cancelled during send.", zap.Error(ctx.Err()))
				return
			}

		case <-ctx.Done():
			parserLogger.Debugw("Parser context cancelled while waiting for raw message.", zap.Error(ctx.Err()))
			return
		}
	}
}
