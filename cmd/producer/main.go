package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sanspareilsmyn/vo2lens/internal/message"
)

var (
	kafkaBroker = flag.String("broker", "localhost:9092", "Kafka broker address")
	topic       = flag.String("topic", "vo2-sessions", "Topic to publish sessions to")
	inputFile   = flag.String("file", "", "CSV recording to replay; a synthetic ramp test is generated when empty")
	weightKg    = flag.Float64("weight", 72, "Body mass in kg attached to every session")
	profile     = flag.String("profile", "demo", "Profile name attached to every session")
	interval    = flag.Duration("interval", 5*time.Second, "Delay between sessions")
	count       = flag.Int("count", 0, "Number of sessions to send (0 = until interrupted)")
)

const (
	sampleStepMs   = 200
	rampDurationMs = 6 * 60 * 1000
)

func main() {
	flag.Parse()

	var recording []message.ReadingPayload
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			log.Fatalf("Error opening recording: %v", err)
		}
		recording, err = message.ReadCSV(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Error reading recording: %v", err)
		}
		log.Printf("Loaded %d readings from %s", len(recording), *inputFile)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(*kafkaBroker),
		Topic:    *topic,
		Balancer: &kafka.Hash{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Fatalf("Error closing kafka writer: %v", err)
		}
	}()
	log.Printf("Starting session producer for topic: %s on broker: %s", *topic, *kafkaBroker)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Println("Shutdown signal received, stopping producer...")
		cancel()
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sent := 0

	for {
		readings := recording
		if readings == nil {
			readings = generateRampTest(rng)
		}
		session := message.Session{
			SessionID:    uuid.NewString(),
			Profile:      *profile,
			WeightKg:     *weightKg,
			ExerciseType: "ramp",
			RecordedAt:   time.Now().UTC(),
			Readings:     readings,
		}

		msgBytes, err := message.EncodeSession(session)
		if err != nil {
			log.Printf("Error encoding session: %v", err)
		} else if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(session.SessionID), Value: msgBytes}); err != nil {
			if ctx.Err() != nil { // Check if context was cancelled (shutdown)
				log.Println("Context cancelled, exiting message loop.")
				return
			}
			log.Printf("Error writing session: %v", err)
		} else {
			sent++
			log.Printf("Produced %s (%s, %d bytes)", session, session.Duration(), len(msgBytes))
		}

		if *count > 0 && sent >= *count {
			log.Printf("Sent %d sessions, exiting.", sent)
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Println("Producer loop stopped.")
			return
		}
	}
}

// generateRampTest simulates an incremental test: ventilation rises and expired
// O2 falls as the load increases. Breathing follows a sine at ~0.5 Hz with pauses
// between breaths, and a few sensor glitches are mixed in.
func generateRampTest(rng *rand.Rand) []message.ReadingPayload {
	const (
		areaWide   = 0.0008
		areaNarrow = 0.0003
	)
	payloads := make([]message.ReadingPayload, 0, rampDurationMs/sampleStepMs+1)

	for ts := uint64(0); ts <= rampDurationMs; ts += sampleStepMs {
		progress := float64(ts) / rampDurationMs

		// Peak pressure grows from ~15 Pa at rest to ~120 Pa at exhaustion
		peak := 15 + 105*progress
		phase := float64(ts%2000) / 2000
		dp := 0.0
		if phase < 0.8 {
			dp = peak * (0.6 + 0.4*rng.Float64())
		}

		o2 := 17.5 - 2.0*progress + rng.NormFloat64()*0.05

		p := message.ReadingPayload{
			VenturiAreaRegular:     areaWide,
			VenturiAreaConstricted: areaNarrow,
			O2:                     o2,
			DifferentialPressure:   dp,
			TimeStamp:              ts,
		}
		if rng.Float64() < 0.002 { // pressure sensor spike
			p.DifferentialPressure = 5000
		}
		payloads = append(payloads, p)

		if rng.Float64() < 0.001 { // duplicated sample
			payloads = append(payloads, p)
		}
	}
	return payloads
}
