package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

// fakeReader entrega as mensagens e depois cancela o contexto
type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	pairs []store.TellerPair
	fail  map[int]bool
}

func (f *fakeRefresher) RefreshPair(_ context.Context, p store.TellerPair) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[p.TellerNo] {
		return 0, errors.New("boom")
	}
	f.pairs = append(f.pairs, p)
	return 1, nil
}

func msg(t *testing.T, topic string, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Value: b}
}

func TestRunRefreshesAffectedPairs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ref := &fakeRefresher{fail: map[int]bool{4: true}}
	stages := map[string]int{}
	consumed := 0
	p := &Processor{
		Log: zap.NewNop(),
		Reader: &fakeReader{cancel: cancel, msgs: []kafka.Message{
			msg(t, topics.CashMovements, events.CashMovement{EventID: "ev", TellerNo: 2}),
			msg(t, topics.CashMovements, events.CashMovement{TellerNo: 3}),
			{Topic: topics.BetsSettled, Value: []byte("{bad")},
			msg(t, topics.BetsSettled, events.BetsSettled{EventID: "ev", TellerNos: []int{1, 4, 5}}),
			msg(t, "unrelated", map[string]string{}),
		}},
		Refresher:          ref,
		TopicCashMovements: topics.CashMovements,
		TopicBetsSettled:   topics.BetsSettled,
		OnConsumed:         func() { consumed++ },
		OnError:            func(s string) { stages[s]++ },
	}

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, consumed)
	assert.Equal(t, []store.TellerPair{
		{EventID: "ev", TellerNo: 2},
		{EventID: "ev", TellerNo: 1},
		{EventID: "ev", TellerNo: 5},
	}, ref.pairs)
	assert.Equal(t, map[string]int{"decode": 1, "refresh": 1}, stages)
}
