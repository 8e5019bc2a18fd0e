package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"wastewatch/backend/internal/api/handler"
	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/hub"
	"wastewatch/backend/internal/imagestore"
	"wastewatch/backend/internal/localization"
	"wastewatch/backend/internal/metrics"
	"wastewatch/backend/internal/rabbitmq"
	"wastewatch/backend/internal/segmentation"
	"wastewatch/backend/internal/storage"
	"wastewatch/backend/internal/telegram"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.Log.Setup(); err != nil {
		log.WithError(err).Fatal("failed to set up logging")
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("wastewatch stopped")
	}
	log.Info("wastewatch exited")
}

func run(cfg *config.Config) error {
	log.Info("starting wastewatch backend")
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Record and image stores
	store, err := storage.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()

	images, err := imagestore.New(ctx, cfg.Images)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}

	localizer, err := localization.NewLocalizer()
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	// 2. Event fan-out: dashboards, then the optional broker and bot
	var broker hub.Broker
	if cfg.Redis.Addr != "" {
		rdb, err := setupRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		broker = hub.NewRedisBroker(rdb)
	}
	dashboards := hub.NewManagerService(broker)

	sink := complaint.NewMultiSink()
	sink.Add("hub", dashboards)

	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer publisher.Close()
		sink.Add("rabbitmq", publisher)
	}

	segURL, segTimeout := cfg.Segmentation.URL, cfg.Segmentation.Timeout
	seg := segmentation.NewLazy(func() (segmentation.Segmenter, error) {
		if segURL == "" {
			return nil, errors.New("SEGMENTATION_URL is not set")
		}
		return segmentation.NewHTTPSegmenter(segURL, segTimeout), nil
	})

	complaints := complaint.NewService(store, seg, images, sink, complaint.Options{
		RadiusMeters:        cfg.Dedup.RadiusMeters,
		IncludeResolved:     cfg.Dedup.IncludeResolved,
		SegmentationTimeout: cfg.Segmentation.Timeout,
	})

	var runBot func(ctx context.Context)
	if cfg.Telegram.BotToken != "" {
		api, err := telegram.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		defer api.StopReceivingUpdates()
		bot := telegram.NewBotService(api, complaints, images, localizer, cfg.Telegram.AuthorityChatID)
		sink.Add("telegram", bot)
		runBot = func(ctx context.Context) { bot.Run(ctx, telegram.Updates(api)) }
	}

	h := handler.NewHandler(complaints, dashboards, images, localizer, cfg.HTTP.MaxUploadBytes)
	return serve(ctx, cfg, handler.NewRouter(h, cfg), dashboards, runBot)
}

func setupRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.WithField("addr", cfg.Addr).Info("connected to redis")
	return rdb, nil
}

// serve runs the hub, the optional bot loop and the HTTP server until ctx is
// cancelled or one of them fails, then shuts the server down gracefully.
func serve(ctx context.Context, cfg *config.Config, router http.Handler, dashboards *hub.ManagerService, runBot func(ctx context.Context)) error {
	server := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dashboards.Run(ctx)
		return nil
	})
	if runBot != nil {
		g.Go(func() error {
			runBot(ctx)
			return nil
		})
	}
	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
