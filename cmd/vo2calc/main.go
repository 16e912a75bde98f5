package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/config"
	"github.com/sanspareilsmyn/vo2lens/internal/logging"
	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/pipeline"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

var (
	configFile = flag.String("config", "", "Path to the configuration file (optional)")
	inputFile  = flag.String("file", "", "Recording to analyze: a CSV recording or a JSON session document")
	weightKg   = flag.Float64("weight", 0, "Body mass in kg (required for CSV, overrides the session document)")
	profile    = flag.String("profile", "", "Profile name stored with the result")
	exercise   = flag.String("exercise", "", "Exercise type stored with the result")
	window     = flag.Duration("window", 0, "Override the averaging window (e.g. 15s)")
	verbose    = flag.Bool("v", false, "Log calculator diagnostics to the console")
)

func main() {
	flag.Parse()
	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "usage: vo2calc -file recording.csv -weight 70 [-profile name] [-exercise type] [-window 30s]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *window > 0 {
		cfg.Calculator.Window = *window
	}

	// The result goes to stdout; keep the console quiet unless asked.
	cfg.Log.Level = "error"
	if *verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()

	session, err := loadSession(*inputFile)
	if err != nil {
		sugar.Fatalw("Failed to read recording", "file", *inputFile, "error", err)
	}
	if *weightKg > 0 {
		session.WeightKg = *weightKg
	}
	if *profile != "" {
		session.Profile = *profile
	}
	if *exercise != "" {
		session.ExerciseType = *exercise
	}

	core, err := vo2max.NewCalculator(cfg.Calculator.Core(), logger.Named("vo2max"))
	if err != nil {
		sugar.Fatalw("Failed to initialize calculator", "error", err)
	}
	calc := pipeline.NewCalculator(core, cfg.Ingestion.Limits(), nil, nil, logger.Named("calculator"))
	alerter := pipeline.NewAlerter(cfg.Alerts, nil, nil, logger.Named("alerter"))

	result := calc.Analyze(session)
	alerter.Evaluate(&result)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		sugar.Fatalw("Failed to write result", zap.Error(err))
	}
	if result.Status != pipeline.StatusOK {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// loadSession reads a JSON session document or a CSV recording, chosen by extension.
func loadSession(path string) (message.Session, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return message.Session{}, err
		}
		return message.ParseSession(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return message.Session{}, err
	}
	defer f.Close()

	readings, err := message.ReadCSV(f)
	if err != nil {
		return message.Session{}, err
	}
	recordedAt := time.Now().UTC()
	if info, err := f.Stat(); err == nil {
		recordedAt = info.ModTime().UTC()
	}
	return message.Session{
		SessionID:  uuid.NewString(),
		RecordedAt: recordedAt,
		Readings:   readings,
	}, nil
}
