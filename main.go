package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-trading-bot/config"
	"solana-trading-bot/internal/api"
	"solana-trading-bot/internal/circuit"
	"solana-trading-bot/internal/database"
	"solana-trading-bot/internal/engine"
	"solana-trading-bot/internal/errs"
	"solana-trading-bot/internal/events"
	"solana-trading-bot/internal/fees"
	"solana-trading-bot/internal/logging"
	"solana-trading-bot/internal/monitoring"
	"solana-trading-bot/internal/ratelimit"
	"solana-trading-bot/internal/retry"
	"solana-trading-bot/internal/risk"
	"solana-trading-bot/internal/strategy"
	"solana-trading-bot/internal/supervisor"
	"solana-trading-bot/internal/venue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger := logging.Component("main")
	logger.Info().Str("mode", cfg.TradingConfig.Mode).Msg("starting trading bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	hub := events.NewHub(bus, logging.Component("events"))
	go hub.Run(ctx)

	riskMgr := risk.NewManager(risk.Config{
		InitialCapital:      cfg.RiskConfig.InitialCapital,
		MaxDrawdown:         cfg.RiskConfig.MaxDrawdown,
		MaxPositionFraction: cfg.RiskConfig.MaxPositionFraction,
		MinConfidence:       cfg.RiskConfig.MinConfidence,
	}, logging.Component("risk"))

	breaker := circuit.New("venue", circuit.Config{
		FailureThreshold: cfg.CircuitConfig.FailureThreshold,
		SuccessThreshold: cfg.CircuitConfig.SuccessThreshold,
		Timeout:          cfg.CircuitConfig.CircuitTimeout(),
	}, logging.Component("circuit"))
	breaker.OnTrip(func(name string) {
		monitoring.SetCircuitState(name, string(circuit.StateOpen))
		bus.PublishCircuitChanged(name, string(circuit.StateClosed), string(circuit.StateOpen))
	})
	breaker.OnReset(func(name string) {
		monitoring.SetCircuitState(name, string(circuit.StateClosed))
		bus.PublishCircuitChanged(name, string(circuit.StateHalfOpen), string(circuit.StateClosed))
	})
	breaker.OnHalfOpen(func(name string) {
		monitoring.SetCircuitState(name, string(circuit.StateHalfOpen))
		bus.PublishCircuitChanged(name, string(circuit.StateOpen), string(circuit.StateHalfOpen))
	})

	limiters := ratelimit.NewRegistry(ratelimit.Config{
		MaxRequests: cfg.RateLimitConfig.MaxRequests,
		Window:      cfg.RateLimitConfig.Window(),
	}, logging.Component("ratelimit"))
	venueLimiter := limiters.Get("venue")

	estimator := fees.NewEstimator(cfg.FeesConfig.BaseFee)

	var client venue.ExecutionClient
	if cfg.VenueConfig.MockMode {
		client = venue.NewMockClient(cfg.RiskConfig.InitialCapital)
		logger.Info().Msg("using mock venue")
	} else {
		client = venue.NewHTTPClient(venue.HTTPConfig{
			BaseURL: cfg.VenueConfig.BaseURL,
			APIKey:  cfg.VenueConfig.APIKey,
			Timeout: time.Duration(cfg.VenueConfig.Timeout) * time.Second,
		}, logging.Component("venue"))
	}

	var store *database.TradeStore
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logging.Component("database"))
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		store = database.NewTradeStore(db)
	}

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		defer redisClient.Close()
	}
	journal := database.NewRedisJournal(redisClient, logging.Component("journal"))

	retryCfg := retry.DefaultConfig()
	switch cfg.RetryConfig.Preset {
	case "aggressive":
		retryCfg = retry.AggressiveConfig()
	case "conservative":
		retryCfg = retry.ConservativeConfig()
	}

	mode := engine.ModePaper
	if cfg.TradingConfig.Mode == "live" {
		mode = engine.ModeLive
	}

	var recorder engine.Recorder
	if store != nil {
		recorder = store
	}

	eng := engine.New(engine.Deps{
		Risk:      riskMgr,
		Portfolio: engine.NewPortfolio(cfg.RiskConfig.InitialCapital),
		Client:    client,
		Breaker:   breaker,
		Limiter:   venueLimiter,
		Fees:      estimator,
		Bus:       bus,
		Journal:   journal,
		Store:     recorder,
		Retry:     retryCfg,
		Mode:      mode,
		Logger:    logging.Component("engine"),
	})

	if pending, err := eng.RestorePending(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not load pending journal")
	} else if len(pending) > 0 {
		logger.Warn().Int("count", len(pending)).Msg("unresolved pending updates from previous run")
	}

	monitoring.Equity.Set(riskMgr.Capital())
	monitoring.SetCircuitState("venue", string(circuit.StateClosed))

	workerCfg := supervisor.DefaultConfig()
	workerCfg.Interval = time.Duration(cfg.TradingConfig.SignalInterval) * time.Second
	workerCfg.CooldownAfter = cfg.WorkerConfig.CooldownAfter
	workerCfg.Cooldown = time.Duration(cfg.WorkerConfig.CooldownSeconds) * time.Second
	workerCfg.MaxBackoff = time.Duration(cfg.WorkerConfig.MaxBackoffSecond) * time.Second

	for _, symbol := range cfg.TradingConfig.Symbols {
		producer := strategy.NewSMACrossover(strategy.SMACrossoverConfig{
			Symbol:     symbol,
			FastPeriod: cfg.TradingConfig.FastPeriod,
			SlowPeriod: cfg.TradingConfig.SlowPeriod,
			StopLoss:   0.03,
			TakeProfit: 0.06,
			SignalTTL:  time.Duration(cfg.TradingConfig.SignalTTL) * time.Second,
		}, logging.Component("strategy"))

		feed := strategy.NewRandomWalkFeed(symbol, 100, time.Second)

		worker := supervisor.NewWorker("trader-"+symbol, workerCfg, func(ctx context.Context) error {
			tick, err := feed.Next(ctx)
			if err != nil {
				return err
			}
			sig := producer.Observe(tick)
			if sig == nil {
				return nil
			}
			bus.PublishSignal(producer.Name(), sig.Symbol, string(sig.Side), sig.Price, sig.Confidence)
			if _, err := eng.Execute(ctx, *sig); err != nil {
				// Risk rejections are routine, only upstream failures
				// count against the worker.
				if errs.KindOf(err) == errs.KindValidation || errs.KindOf(err) == errs.KindInsufficientFunds {
					return nil
				}
				return err
			}
			return nil
		}, logging.Component("supervisor"), bus)

		go worker.Run(ctx)
	}

	server := api.NewServer(api.ServerConfig{
		Host:            cfg.ServerConfig.Host,
		Port:            cfg.ServerConfig.Port,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		ProductionMode:  true,
		ReadTimeout:     time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		ShutdownTimeout: time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second,
	}, eng, riskMgr, breaker, venueLimiter, estimator, store, hub, logging.Component("api"))

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{
		"mode":    string(mode),
		"symbols": cfg.TradingConfig.Symbols,
	}})

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	bus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{}})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	if n := eng.PendingCount(); n > 0 {
		logger.Warn().Int("pending", n).Msg("exiting with unresolved pending updates")
	}
	logger.Info().Msg("trading bot stopped")
}
