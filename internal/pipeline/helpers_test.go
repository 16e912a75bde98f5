package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

func newTestCore(t *testing.T) *vo2max.Calculator {
	t.Helper()
	calc, err := vo2max.NewCalculator(vo2max.DefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return calc
}

// rampSession returns a session with one reading per second for durationMs.
func rampSession(id string, durationMs uint64, o2 float64) message.Session {
	s := message.Session{
		SessionID:    id,
		Profile:      "athlete-1",
		WeightKg:     70,
		ExerciseType: "treadmill",
		RecordedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for ts := uint64(0); ts <= durationMs; ts += 1000 {
		s.Readings = append(s.Readings, message.ReadingPayload{
			VenturiAreaRegular:     0.0008,
			VenturiAreaConstricted: 0.0003,
			O2:                     o2,
			DifferentialPressure:   20,
			TimeStamp:              ts,
		})
	}
	return s
}

func toReadings(payloads []message.ReadingPayload) []vo2max.Reading {
	out := make([]vo2max.Reading, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.ToReading())
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}

// fakeReader serves queued messages and then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	fetchErr  error
	commitErr error
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	fetchErr := r.fetchErr
	r.mu.Unlock()

	if fetchErr != nil {
		return kafka.Message{}, fetchErr
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

// fakeWriter records written messages. Keys listed in failKeys are rejected.
type fakeWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	failKeys map[string]bool
	closed   bool
}

var errWriteRejected = errors.New("write rejected")

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if w.failKeys[string(m.Key)] {
			return errWriteRejected
		}
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.written...)
}
