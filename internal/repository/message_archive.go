package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/domain/repository"
	pkgkafka "ChumRoom/pkg/kafka"
)

// ClickHouseArchive implements Archive on top of ClickHouse. Rows are
// keyed by signature; the table's ReplacingMergeTree engine deduplicates
// re-scans of the same window.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates a message archive over an existing
// ClickHouse connection.
func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) StoreBatch(ctx context.Context, msgs []*models.ProtocolMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]string, 0, len(msgs))
	args := make([]interface{}, 0, len(msgs)*8)
	for _, m := range msgs {
		if m == nil || m.Signature == "" {
			continue
		}
		decoded := "{}"
		if m.Payload != nil {
			if b, err := json.Marshal(m.Payload); err == nil {
				decoded = string(b)
			}
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			m.Signature,
			time.Unix(m.BlockTime, 0),
			m.Sender,
			uint16(m.AgentID),
			m.AgentName,
			m.MsgTypeName,
			m.RawHex,
			decoded,
		)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (signature, block_time, sender, agent_id, agent_name, msg_type, raw_hex, decoded) VALUES %s",
		a.table, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // connection owned by pkg/clickhouse
}

// KafkaPublisher implements Publisher for Kafka. Messages are keyed by
// sender so each agent's stream lands on one partition in order.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka-backed message publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, msgs []*models.ProtocolMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]pkgkafka.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, pkgkafka.Message{Key: []byte(m.Sender), Value: m})
	}
	return p.producer.PublishBatch(ctx, p.topic, out)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
