package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ChumRoom/internal/domain/repository"
	"ChumRoom/internal/handler/api"
	"ChumRoom/internal/service/stream"
	"ChumRoom/internal/usecase"
	pkgch "ChumRoom/pkg/clickhouse"
	"ChumRoom/pkg/config"
	xhttp "ChumRoom/pkg/http"
	pkgkafka "ChumRoom/pkg/kafka"
	applogger "ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	scanner    *usecase.RoomScanner
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	publisher  repository.Publisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	scanner *usecase.RoomScanner,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	publisher repository.Publisher,
) *App {
	return &App{
		cfg:       cfg,
		scanner:   scanner,
		chClient:  chClient,
		producer:  producer,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := applogger.New(&applogger.Config{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: a.cfg.Logging.Output,
	})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}

	if a.cfg.Logging.Collector.Enabled && a.producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Logging.Collector.Interval,
			CountThreshold: a.cfg.Logging.Collector.Threshold,
			Topic:          a.cfg.Logging.Collector.Topic,
			Publisher:      a.producer,
		})
	}

	handler := api.NewRoomEchoHandler(l, a.scanner)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Warm the window cache so the first HTTP read is served hot.
	go a.scanner.Refresh(ctx)

	if a.cfg.Room.WatchLogs {
		room, err := solana.PublicKeyFromBase58(a.cfg.Room.Address)
		if err != nil {
			l.Error("invalid room address", applogger.Error(err))
			return err
		}
		watcher := stream.New(a.cfg.Solana.WSURL, room,
			a.cfg.Solana.ReconnectDelay, a.cfg.Solana.PingInterval,
			l, a.scanner.Refresh)
		go watcher.Run(ctx)
		l.Info("room watcher started", applogger.String("ws", a.cfg.Solana.WSURL))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("room service started",
		applogger.String("room", a.cfg.Room.Address),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Flushes any aggregated logs before the producer goes away.
	l.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
