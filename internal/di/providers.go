package di

import (
	"context"
	"fmt"
	"time"

	"ChumRoom/internal/domain/repository"
	internalrepo "ChumRoom/internal/repository"
	"ChumRoom/internal/service/cache"
	"ChumRoom/internal/usecase"
	pkgch "ChumRoom/pkg/clickhouse"
	"ChumRoom/pkg/config"
	pkgkafka "ChumRoom/pkg/kafka"
	applogger "ChumRoom/pkg/logger"
	"ChumRoom/pkg/metrics"
	"ChumRoom/pkg/server"
	"ChumRoom/pkg/solana"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideLedgerClient creates the Solana RPC client.
func ProvideLedgerClient(cfg *config.Config) repository.LedgerClient {
	return solana.NewClient(cfg.Solana.RPCURL,
		solana.WithCommitment(cfg.Solana.Commitment),
		solana.WithHTTPTimeout(cfg.Solana.RequestTimeout),
	)
}

// ProvideWindowCache creates the scan window cache, Redis-backed when
// configured so reader replicas share one window.
func ProvideWindowCache(cfg *config.Config) repository.WindowCache {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisWindow(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Key:      cfg.Cache.Redis.Key,
		}, cfg.Room.CacheTTL, nil)
	}
	return cache.NewWindow(cfg.Room.CacheTTL, nil)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := archiveTable(cfg)
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			signature String,
			block_time DateTime,
			sender String,
			agent_id UInt16,
			agent_name String,
			msg_type String,
			raw_hex String,
			decoded String
		) ENGINE=ReplacingMergeTree ORDER BY (signature)`, table),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func archiveTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "room_messages"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideArchive creates the message archive, nil without ClickHouse.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), archiveTable(cfg))
}

// ProvideKafkaProducer creates a Kafka producer, nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvidePublisher creates the Kafka message publisher, nil without Kafka.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRoomScanner creates the room scanner use case.
func ProvideRoomScanner(
	ledger repository.LedgerClient,
	winCache repository.WindowCache,
	pub repository.Publisher,
	archive repository.Archive,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) (*usecase.RoomScanner, error) {
	room, err := solana.PublicKeyFromBase58(cfg.Room.Address)
	if err != nil {
		return nil, fmt.Errorf("room address: %w", err)
	}

	opts := []usecase.ScannerOption{
		usecase.WithFetchRate(cfg.Room.FetchBurst, cfg.Room.FetchRate),
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	return usecase.NewRoomScanner(ledger, winCache, m, l, room, opts...), nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	scanner *usecase.RoomScanner,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
) *server.App {
	return server.New(cfg, scanner, chClient, producer, pub)
}
