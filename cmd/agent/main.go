package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChumRoom/internal/agent"
	"ChumRoom/internal/di"
	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/service/memo"
	"ChumRoom/pkg/config"
	applogger "ChumRoom/pkg/logger"
	"ChumRoom/pkg/metrics"
	"ChumRoom/pkg/solana"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	behavior := flag.String("behavior", "", "agent behavior: whale, volume, or momentum (overrides config)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *behavior != "" {
		cfg.Agent.Behavior = *behavior
	}
	if cfg.Agent.ID == 0 {
		log.Fatalf("agent.id is required")
	}
	if cfg.Agent.KeyEnv == "" {
		log.Fatalf("agent.key_env is required")
	}

	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	key, err := solana.PrivateKeyFromBase58(os.Getenv(cfg.Agent.KeyEnv))
	if err != nil {
		log.Fatalf("agent key from %s: %v", cfg.Agent.KeyEnv, err)
	}
	room, err := solana.PublicKeyFromBase58(cfg.Room.Address)
	if err != nil {
		log.Fatalf("room address: %v", err)
	}

	ledger := solana.NewClient(cfg.Solana.RPCURL,
		solana.WithCommitment(cfg.Solana.Commitment),
		solana.WithHTTPTimeout(cfg.Solana.RequestTimeout),
	)

	name := models.AgentLabel(cfg.Agent.ID)
	poster := agent.NewPoster(ledger, key, room, name, metrics.New(), l)

	seed := cfg.Agent.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l.Info("agent starting",
		applogger.String("behavior", cfg.Agent.Behavior),
		applogger.String("agent", name),
		applogger.String("address", key.PublicKey().String()))

	switch cfg.Agent.Behavior {
	case "whale":
		agent.NewWhaleAgent(poster, cfg.Agent.ID, seed, cfg.Agent.WhaleMinSol, l).Run(ctx, cfg.Agent.TickInterval)
	case "volume":
		agent.NewVolumeAgent(poster, cfg.Agent.ID, seed, l).Run(ctx, cfg.Agent.TickInterval)
	case "momentum":
		a := agent.NewMomentumAgent(poster, cfg.Agent.ID, seed, l)
		if cfg.Kafka.Enabled {
			consumer, err := di.ProvideKafkaConsumer(cfg)
			if err != nil {
				log.Fatalf("kafka consumer: %v", err)
			}
			consumer.RegisterHandler(agent.NewRallyFeed(a, cfg.Kafka.Topic))
			go func() {
				if err := consumer.Start(); err != nil {
					l.Error("kafka consumer error", applogger.Error(err))
				}
			}()
			defer func() { _ = consumer.Stop(context.Background()) }()
		} else {
			// Without Kafka, seed rally tracking from direct room scans.
			go seedFromScans(ctx, cfg, a, l)
		}
		a.Run(ctx, cfg.Agent.TickInterval)
	default:
		log.Fatalf("unknown behavior %q (want whale, volume, or momentum)", cfg.Agent.Behavior)
	}
}

func seedFromScans(ctx context.Context, cfg *config.Config, a *agent.MomentumAgent, l *applogger.Logger) {
	ledger := solana.NewClient(cfg.Solana.RPCURL, solana.WithCommitment(cfg.Solana.Commitment))
	room, err := solana.PublicKeyFromBase58(cfg.Room.Address)
	if err != nil {
		return
	}
	scan := func() {
		sigs, err := ledger.GetSignaturesForAddress(ctx, room, 50)
		if err != nil {
			l.Warn("rally seed scan failed", applogger.Error(err))
			return
		}
		msgs := make([]*models.ProtocolMessage, 0, len(sigs))
		for i := range sigs {
			if sigs[i].Failed() {
				continue
			}
			tx, err := ledger.GetTransaction(ctx, sigs[i].Signature)
			if err != nil || tx == nil {
				continue
			}
			if msg, ok := memo.Extract(tx); ok {
				msgs = append(msgs, msg)
			}
		}
		a.ObserveWindow(msgs)
	}

	scan()
	ticker := time.NewTicker(cfg.Room.CacheTTL * 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}
