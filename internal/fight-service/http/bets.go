package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/internal/wager"
)

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if !s.limits.Allow(id.UserID) {
		writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{Error: "rate_limited", Message: "too many bets", Retryable: true})
		return
	}

	var req dto.PlaceBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	amt, err := amount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.wagers.Place(r.Context(), wager.Request{
		FightID: req.FightID,
		UserID:  id.UserID,
		Side:    store.Side(req.Side),
		Amount:  amt,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{Bet: toBet(rec.Bet), Credits: money.Format(rec.Credits)})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := s.wagers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBet(b))
}

func (s *Server) fightBets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.wagers.ByFight(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBets(bs))
}

func (s *Server) userBets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.wagers.ByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBets(bs))
}
