package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"level-engine/config"
	"level-engine/internal/ai"
	"level-engine/internal/api"
	"level-engine/internal/confluence"
	"level-engine/internal/database"
	"level-engine/internal/events"
	"level-engine/internal/levels"
	"level-engine/internal/lines"
	"level-engine/internal/logging"
	"level-engine/internal/market"
	"level-engine/internal/pipeline"
	"level-engine/internal/queue"
	"level-engine/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LoggingConfig.Level,
		Console: cfg.LoggingConfig.Console,
	})

	logger.Info().
		Strs("symbols", cfg.MarketConfig.Symbols).
		Bool("mock_mode", cfg.MarketConfig.MockMode).
		Msg("Starting level engine")

	// Market data source
	var provider market.Provider
	if cfg.MarketConfig.MockMode {
		provider = market.NewMockProvider()
		logger.Warn().Msg("Mock market data enabled")
	} else {
		provider = market.NewClient(cfg.MarketConfig.BaseURL)
	}

	engine := levels.NewEngine(logger)
	drawer := lines.NewDrawer(lines.DefaultLookback, logger)

	// Cooldown store: Redis when enabled, otherwise in-process memory
	var cooldowns confluence.CooldownStore
	var redisStore *store.RedisCooldownStore
	if cfg.RedisConfig.Enabled {
		redisStore, err = store.NewRedisCooldownStore(
			cfg.RedisConfig.Address,
			cfg.RedisConfig.Password,
			cfg.RedisConfig.DB,
			24*time.Hour,
			logger,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		cooldowns = redisStore
	} else {
		cooldowns = confluence.NewMemoryCooldownStore()
	}

	tracker := confluence.NewTracker(confluence.Config{
		WindowSeconds:   cfg.ConfluenceConfig.WindowSeconds,
		CooldownSeconds: cfg.ConfluenceConfig.CooldownSeconds,
		RequiredKinds:   [2]confluence.Kind{confluence.KindAlpha, confluence.KindFOMO},
	}, cooldowns, logger)

	// AI collaborator
	var analyzer ai.Analyzer
	if cfg.AIConfig.Enabled && cfg.AIConfig.APIKey != "" {
		analyzer = ai.NewClient(&ai.ClientConfig{
			BaseURL:     cfg.AIConfig.BaseURL,
			APIKey:      cfg.AIConfig.APIKey,
			Model:       cfg.AIConfig.Model,
			MaxTokens:   cfg.AIConfig.MaxTokens,
			Temperature: cfg.AIConfig.Temperature,
			Timeout:     60 * time.Second,
		}, logger)
	} else if cfg.AIConfig.Enabled {
		analyzer = ai.NewMockAnalyzer()
		logger.Warn().Msg("AI enabled without API key, using mock analyzer")
	}

	// Analysis queue: one worker, strict FIFO
	queueCfg := queue.Config{
		TTL:         time.Duration(cfg.QueueConfig.TTLSeconds) * time.Second,
		ExpiryKinds: cfg.QueueConfig.ExpiryKinds,
		TaskTimeout: 2 * time.Minute,
		StopTimeout: time.Duration(cfg.QueueConfig.StopTimeoutSeconds) * time.Second,
	}
	analysisQueue := queue.New(queueCfg, analyzeFunc(analyzer), logger)
	analysisQueue.Start()

	// Optional persistence
	var repo *database.Repository
	var db *database.DB
	if cfg.DatabaseConfig.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err = database.NewDB(ctx, cfg.DatabaseConfig.DSN, logger)
		if err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := db.Migrate(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		cancel()
		repo = database.NewRepository(db)
	}

	bus := events.NewBus()
	pipe := pipeline.New(tracker, analysisQueue, repo, bus, logger)

	// Optional live candle stream feeding the event bus
	var stream *market.KlineStream
	if cfg.MarketConfig.StreamEnabled && !cfg.MarketConfig.MockMode {
		stream = market.NewKlineStream(cfg.MarketConfig.WSBaseURL, cfg.MarketConfig.Interval, logger)
		err := stream.Start(cfg.MarketConfig.Symbols, func(symbol string, candle market.Candle) {
			bus.PublishCandleClosed(symbol, candle.Close, candle.Volume, candle.CloseTime)
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to start kline stream")
			stream = nil
		}
	}

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		ProductionMode: !cfg.LoggingConfig.Console,
		CandleLimit:    cfg.MarketConfig.CandleLimit,
		Depth:          cfg.MarketConfig.Depth,
		Interval:       cfg.MarketConfig.Interval,
	}, provider, engine, drawer, pipe, analyzer, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	waitForShutdown(logger, server, analysisQueue, stream, redisStore, db)
}

// analyzeFunc adapts the AI collaborator to the queue's task interface.
// Without an analyzer the queue still runs and produces placeholder output.
func analyzeFunc(analyzer ai.Analyzer) queue.AnalyzeFunc {
	return func(ctx context.Context, symbol string, payload queue.SignalPayload) (string, error) {
		if analyzer == nil {
			return "analysis disabled", nil
		}
		description := payload.Text
		if description == "" {
			description = payload.Kind + " signal"
		}
		return analyzer.AnalyzeSignal(ctx, symbol, description)
	}
}

func waitForShutdown(
	logger zerolog.Logger,
	server *api.Server,
	analysisQueue *queue.AnalysisQueue,
	stream *market.KlineStream,
	redisStore *store.RedisCooldownStore,
	db *database.DB,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	if stream != nil {
		stream.Stop()
	}

	if err := analysisQueue.Stop(); err != nil {
		logger.Warn().Err(err).Msg("Queue did not stop cleanly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Server shutdown error")
	}

	if redisStore != nil {
		_ = redisStore.Close()
	}
	if db != nil {
		db.Close()
	}

	logger.Info().Msg("Shutdown complete")
}
