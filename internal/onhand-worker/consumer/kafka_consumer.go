package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type pairRefresher interface {
	RefreshPair(ctx context.Context, pair store.TellerPair) (int, error)
}

// Processor consome cash_movements e bets_settled e recalcula o on-hand dos
// caixas afetados. Callbacks de métricas podem ser usadas para monitoramento.
type Processor struct {
	Log       *zap.Logger
	Reader    messageReader
	Refresher pairRefresher

	TopicCashMovements string
	TopicBetsSettled   string

	OnConsumed func()       // métricas (counter++)
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		pairs, err := p.pairs(m)
		if err != nil {
			p.Log.Warn("invalid message", zap.String("topic", m.Topic), zap.Error(err))
			p.fail("decode")
			continue
		}
		for _, pair := range pairs {
			n, err := p.Refresher.RefreshPair(ctx, pair)
			if err != nil {
				p.Log.Warn("onhand refresh failed",
					zap.String("event_id", pair.EventID), zap.Int("teller_no", pair.TellerNo), zap.Error(err))
				p.fail("refresh")
				continue
			}
			p.Log.Debug("onhand refreshed",
				zap.String("event_id", pair.EventID), zap.Int("teller_no", pair.TellerNo), zap.Int("movements", n))
		}
	}
}

// pairs extrai os caixas afetados pela mensagem
func (p *Processor) pairs(m kafka.Message) ([]store.TellerPair, error) {
	switch m.Topic {
	case p.TopicCashMovements:
		var ev events.CashMovement
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			return nil, err
		}
		if ev.EventID == "" {
			return nil, nil // movimentação fora de evento não tem on-hand
		}
		return []store.TellerPair{{EventID: ev.EventID, TellerNo: ev.TellerNo}}, nil
	case p.TopicBetsSettled:
		var ev events.BetsSettled
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			return nil, err
		}
		out := make([]store.TellerPair, 0, len(ev.TellerNos))
		for _, no := range ev.TellerNos {
			out = append(out, store.TellerPair{EventID: ev.EventID, TellerNo: no})
		}
		return out, nil
	}
	return nil, nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
