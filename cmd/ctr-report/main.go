package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/config"
	"github.com/searchlens/ctrpipeline/internal/input"
	"github.com/searchlens/ctrpipeline/internal/processor"
	"github.com/searchlens/ctrpipeline/internal/storage"
)

func main() {
	// Load .env before anything reads the environment
	_ = godotenv.Load()

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/ctr.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	// Setup logging: console plus the run log file
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = log.Output(console)
		log.Warn().Err(err).Str("path", cfg.Log.File).Msg("Failed to open log file, logging to console only")
	} else {
		defer logFile.Close()
		log.Logger = log.Output(zerolog.MultiLevelWriter(console, logFile))
	}

	log.Info().
		Str("click_activity", cfg.Pipeline.ClickActivity).
		Str("product_facet", cfg.Pipeline.ProductFacet).
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Msg("Configuration loaded")

	// Resolve the input file: argument, config, then interactive prompt
	inputPath, err := input.Resolve(os.Args[1:], cfg.Input.Path, os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("No input file selected")
	}
	log.Info().Str("path", inputPath).Msg("Selected input file")

	// Optional analytics export
	var exporter processor.Exporter
	if cfg.ClickHouse.Addr != "" {
		ch, err := storage.NewClickHouse(cfg.ClickHouse)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
		}
		defer ch.Close()
		log.Info().Msg("Connected to ClickHouse")
		exporter = ch
	}

	pipeline := processor.New(cfg, exporter)
	summary, err := pipeline.Run(context.Background(), inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("CTR calculation failed")
	}

	if summary.ErrorReportPath != "" {
		log.Warn().
			Int("unattributed_clicks", summary.UnattributedClicks).
			Str("error_report", summary.ErrorReportPath).
			Msg("Some click events could not be attributed")
	}
}
