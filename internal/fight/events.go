package fight

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

// NewEvent são os dados de criação de um evento
type NewEvent struct {
	Name      string
	Location  string
	EventDate time.Time // zero = agora
	CreatedBy string
}

func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (store.GameEvent, error) {
	if in.Name == "" {
		return store.GameEvent{}, apperr.Validation("fight.CreateEvent", "event name is required")
	}
	now := s.now().UTC()
	ev := store.GameEvent{
		Name:      in.Name,
		Location:  in.Location,
		EventDate: in.EventDate,
		Status:    store.EventUpcoming,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
	}
	if ev.EventDate.IsZero() {
		ev.EventDate = now
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateEvent(ctx, &ev)
	})
	if err != nil {
		return store.GameEvent{}, err
	}
	s.log.Info("event created", zap.String("event_id", ev.ID), zap.String("name", ev.Name))
	return ev, nil
}

// ListEvents devolve os eventos, mais recentes primeiro
func (s *Service) ListEvents(ctx context.Context) ([]store.GameEvent, error) {
	var out []store.GameEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListEvents(ctx)
		return err
	})
	return out, err
}

// ActiveEvent devolve o evento em andamento
func (s *Service) ActiveEvent(ctx context.Context) (store.GameEvent, error) {
	var ev store.GameEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		ev, err = tx.ActiveEvent(ctx)
		return err
	})
	return ev, err
}

// ActivateEvent coloca o evento em andamento e encerra o anterior
func (s *Service) ActivateEvent(ctx context.Context, id string) (store.GameEvent, error) {
	var ev store.GameEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		ev, err = tx.ActivateEvent(ctx, id)
		return err
	})
	if err != nil {
		return store.GameEvent{}, err
	}
	s.tracker.Reset()
	s.log.Info("event activated", zap.String("event_id", ev.ID))
	return ev, nil
}
