package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/shared/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka mantém um writer por tópico, criado sob demanda
type Kafka struct {
	newWriter func(topic string) messageWriter
	log       *zap.Logger
	metrics   *metrics.Collectors

	mu      sync.Mutex
	writers map[string]messageWriter
}

// NewKafka recebe a fábrica de writers (ex: shared/kafka.NewWriter com os brokers)
func NewKafka(newWriter func(topic string) *kafka.Writer, log *zap.Logger, m *metrics.Collectors) *Kafka {
	return newKafka(func(topic string) messageWriter { return newWriter(topic) }, log, m)
}

func newKafka(newWriter func(topic string) messageWriter, log *zap.Logger, m *metrics.Collectors) *Kafka {
	return &Kafka{newWriter: newWriter, log: log, metrics: m, writers: map[string]messageWriter{}}
}

func (k *Kafka) writer(topic string) messageWriter {
	k.mu.Lock()
	defer k.mu.Unlock()
	w, ok := k.writers[topic]
	if !ok {
		w = k.newWriter(topic)
		k.writers[topic] = w
	}
	return w
}

func (k *Kafka) Publish(ctx context.Context, topic, key string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		failed(k.log, k.metrics, "kafka", topic, err)
		return
	}

	ctx, cancel := detach(ctx)
	defer cancel()
	msg := kafka.Message{Key: []byte(key), Value: b, Time: time.Now()}
	if err := k.writer(topic).WriteMessages(ctx, msg); err != nil {
		failed(k.log, k.metrics, "kafka", topic, err)
	}
}

// Close fecha todos os writers abertos
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var first error
	for t, w := range k.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
		delete(k.writers, t)
	}
	return first
}
