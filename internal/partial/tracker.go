// Package partial guarda, em memória, quais lados da luta corrente estão
// temporariamente fechados para apostas. Não é fonte de verdade: o estado
// começa vazio a cada subida do processo e pode ser perdido sem prejuízo.
package partial

import (
	"sync"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

// State indica se cada lado está suspenso
type State struct {
	Meron bool `json:"meron"`
	Wala  bool `json:"wala"`
}

// Closed informa se o lado está suspenso
func (s State) Closed(side store.Side) bool {
	switch side {
	case store.SideMeron:
		return s.Meron
	case store.SideWala:
		return s.Wala
	}
	return false
}

// Snapshot é a listagem completa para painéis de operação
type Snapshot struct {
	Total  int           `json:"total"`
	States map[int]State `json:"states"`
}

// Tracker mapeia número da luta -> State
type Tracker struct {
	mu     sync.RWMutex
	states map[int]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[int]State)}
}

// Get devolve o estado da luta; lutas sem registro estão abertas nos dois lados
func (t *Tracker) Get(fightNo int) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[fightNo]
}

// Set suspende (closed=true) ou reabre um lado
func (t *Tracker) Set(fightNo int, side store.Side, closed bool) (State, error) {
	if !side.Valid() {
		return State{}, apperr.Validation("partial.Set", "side must be meron or wala")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.states[fightNo]
	if side == store.SideMeron {
		s.Meron = closed
	} else {
		s.Wala = closed
	}
	t.states[fightNo] = s
	return s, nil
}

// Clear remove o registro da luta (chamado no fechamento)
func (t *Tracker) Clear(fightNo int) {
	t.mu.Lock()
	delete(t.states, fightNo)
	t.mu.Unlock()
}

// Reset descarta todos os registros (troca de evento)
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.states = make(map[int]State)
	t.mu.Unlock()
}

func (t *Tracker) All() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int]State, len(t.states))
	for k, v := range t.states {
		out[k] = v
	}
	return Snapshot{Total: len(out), States: out}
}
