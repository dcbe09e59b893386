package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/citymate-bot/citymate/internal/bot"
	"github.com/citymate-bot/citymate/internal/catalog"
	"github.com/citymate-bot/citymate/internal/conversation"
	"github.com/citymate-bot/citymate/internal/database"
	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/internal/gateway"
	"github.com/citymate-bot/citymate/internal/health"
	"github.com/citymate-bot/citymate/internal/profilecache"
	"github.com/citymate-bot/citymate/internal/provider"
	"github.com/citymate-bot/citymate/internal/ratelimit"
	"github.com/citymate-bot/citymate/internal/repository"
	"github.com/citymate-bot/citymate/internal/state"
	"github.com/citymate-bot/citymate/pkg/config"
	"github.com/citymate-bot/citymate/pkg/graceful"
	"github.com/citymate-bot/citymate/pkg/logger"
	"github.com/citymate-bot/citymate/pkg/metrics"

	_ "github.com/lib/pq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:         cfg.Logger.Level,
		Format:        cfg.Logger.Format,
		FilePath:      cfg.Logger.FilePath,
		MaxSizeMB:     cfg.Logger.MaxSizeMB,
		MaxBackups:    cfg.Logger.MaxBackups,
		MaxAgeDays:    cfg.Logger.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled,
	})
	config.Watch(v, logger.LevelVar, log)

	log.Info("starting bot",
		slog.String("app", cfg.App.Name), slog.String("env", cfg.AppEnv))

	if cfg.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		})
		if err != nil {
			log.Error("failed to init sentry", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				log.Error("error closing redis", slog.Any("error", cerr))
			}
		}()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to ping redis", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var profiles repository.ProfileRepository = repository.NewProfileRepository(db, log)
	if redisClient != nil {
		profiles = profilecache.Wrap(profiles, profilecache.NewCache(redisClient), cfg.Redis.ProfileCacheTTL, log)
	}

	var convStorage state.Storage
	if redisClient != nil {
		convStorage = state.NewRedisStorage(redisClient, cfg.Redis.ContextTTL, log)
	} else {
		convStorage = state.NewMemoryStorage()
	}

	httpClient := provider.NewHTTPClient(cfg.Providers.Timeout)
	geocoder := provider.NewGeocoder(httpClient, cfg.Providers.Weather.BaseURL, cfg.Providers.Weather.APIKey, log)
	weather := provider.NewWeather(httpClient, cfg.Providers.Weather.BaseURL, cfg.Providers.Weather.APIKey, log)
	traffic := provider.NewTraffic(httpClient, cfg.Providers.Traffic.BaseURL, cfg.Providers.Traffic.APIKey, log)
	currency := provider.NewCurrency(httpClient, cfg.Providers.Currency.BaseURL, cfg.Providers.Currency.APIKey, log)
	events := provider.NewEvents(httpClient, cfg.Providers.Events.BaseURL, log)

	cityCatalog := catalog.New(events, log)
	if err := cityCatalog.Load(ctx); err != nil {
		log.Error("failed to load city catalog", slog.Any("error", err))
		os.Exit(1)
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.RateLimit.Enabled {
		memLimiter = ratelimit.NewMemoryLimiter(log)
		limiter = memLimiter
	}

	tgBot, err := bot.New(bot.Options{
		Token:       cfg.Bot.Token,
		PollTimeout: cfg.Bot.PollTimeout,
		RateLimit:   cfg.RateLimit.Limit,
		RateWindow:  cfg.RateLimit.Window,
	}, limiter, errHandler, log)
	if err != nil {
		log.Error("failed to create bot", slog.Any("error", err))
		os.Exit(1)
	}

	engine := conversation.NewEngine(conversation.Deps{
		Storage:     convStorage,
		Profiles:    profiles,
		Resolver:    gateway.NewTelegramProfileResolver(log),
		Geocoder:    geocoder,
		Weather:     weather,
		Traffic:     traffic,
		Currency:    currency,
		Events:      events,
		Catalog:     cityCatalog,
		Sender:      bot.NewTelebotSender(tgBot.Telebot()),
		Errors:      errHandler,
		Log:         log,
		CallTimeout: cfg.Conversation.CallTimeout,
	})
	tgBot.SetEngine(engine)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))
	checker.AddCheck("catalog", health.NewCatalogChecker(cityCatalog))
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", logger.Middleware(checker.Handler()))
	mux.Handle("/metrics", promhttp.Handler())
	server := graceful.NewServer(":"+cfg.Server.Port, mux, cfg.Server.ShutdownTimeout, log)

	var wg sync.WaitGroup

	runBackground := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			log.Info("background task stopped", slog.String("task", name))
		}()
	}

	cleaner := state.NewCleaner(convStorage, log, cfg.Conversation.IdleTTL, cfg.Conversation.CleanInterval)
	runBackground("context-cleaner", cleaner.Run)
	runBackground("catalog-refresh", func(ctx context.Context) {
		cityCatalog.Refresh(ctx, cfg.Providers.Events.RefreshInterval)
	})
	runBackground("state-metrics", metrics.NewStateCollector(convStorage).Run)
	if memLimiter != nil {
		runBackground("ratelimit-cleanup", func(ctx context.Context) {
			memLimiter.RunCleanup(ctx, time.Minute, 10*time.Minute)
		})
	}
	runBackground("http-server", func(ctx context.Context) {
		if err := server.ListenAndServe(ctx); err != nil {
			log.Error("http server exited", slog.Any("error", err))
		}
	})

	tgBot.Start(ctx)

	wg.Wait()
	log.Info("bot shut down cleanly")
}
