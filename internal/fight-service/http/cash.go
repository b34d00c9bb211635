package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/fight-ledger/internal/cashier"
	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
)

type cashFn func(ctx context.Context, tellerID, runnerID string, amount int64) (cashier.Result, error)

func (s *Server) topup(w http.ResponseWriter, r *http.Request) { s.syncMovement(w, r, s.cash.Topup) }

func (s *Server) remit(w http.ResponseWriter, r *http.Request) { s.syncMovement(w, r, s.cash.Remit) }

// syncMovement grava topup/remit já concluído; o runner é o ator autenticado
func (s *Server) syncMovement(w http.ResponseWriter, r *http.Request, fn cashFn) {
	var req dto.CashRequest
	if !s.decode(w, r, &req) {
		return
	}
	amt, err := amount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := fn(r.Context(), req.TellerID, IdentityFrom(r.Context()).UserID, amt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CashResponse{Movement: toMovement(res.Movement), Credits: money.Format(res.Credits)})
}

func (s *Server) requestMovement(w http.ResponseWriter, r *http.Request) {
	var req dto.MovementRequest
	if !s.decode(w, r, &req) {
		return
	}
	amt, err := amount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.cash.Request(r.Context(), IdentityFrom(r.Context()).UserID, store.MovementKind(req.Kind), amt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovement(m))
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	runner := req.RunnerID
	if runner == "" {
		runner = IdentityFrom(r.Context()).UserID
	}
	m, err := s.cash.Assign(r.Context(), chi.URLParam(r, "id"), runner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovement(m))
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	m, err := s.cash.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovement(m))
}

func (s *Server) void(w http.ResponseWriter, r *http.Request) {
	m, err := s.cash.Void(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovement(m))
}

func (s *Server) getMovement(w http.ResponseWriter, r *http.Request) {
	m, err := s.cash.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovement(m))
}

// listMovements aceita ?eventId=&tellerId=&runnerId=&kind=&status=
func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ms, err := s.cash.List(r.Context(), store.MovementFilter{
		EventID:  q.Get("eventId"),
		TellerID: q.Get("tellerId"),
		RunnerID: q.Get("runnerId"),
		Kind:     store.MovementKind(q.Get("kind")),
		Status:   store.MovementStatus(q.Get("status")),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]dto.MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMovement(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runnerStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cash.RunnerStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(st))
}
