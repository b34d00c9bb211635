// Package broadcast publica notificações de domínio (lutas, apostas, caixa).
// É um canal lateral: falhas são logadas e contadas, nunca devolvidas ao
// chamador, e nenhum invariante depende de uma mensagem chegar.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/shared/metrics"
)

const publishTimeout = 500 * time.Millisecond

// Publisher publica payload no tópico; key agrupa mensagens (id do evento)
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any)
}

// Envelope é o formato que trafega no Redis Pub/Sub até o ws-gateway
type Envelope struct {
	Topic   string          `json:"topic"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// detach isola a publicação do cancelamento da requisição que a originou
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
}

// Nop descarta tudo
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}

// Multi repassa para todos os publishers
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic, key string, payload any) {
	for _, p := range m {
		p.Publish(ctx, topic, key, payload)
	}
}

// Message é uma publicação capturada pelo Recorder
type Message struct {
	Topic   string
	Key     string
	Payload any
}

// Recorder guarda as publicações em memória; usado em testes e no modo local
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Publish(_ context.Context, topic, key string, payload any) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Topic: topic, Key: key, Payload: payload})
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Topic filtra as mensagens de um tópico
func (r *Recorder) Topic(topic string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func failed(log *zap.Logger, m *metrics.Collectors, sink, topic string, err error) {
	log.Warn("broadcast publish failed", zap.String("sink", sink), zap.String("topic", topic), zap.Error(err))
	m.BroadcastFailed(sink)
}
