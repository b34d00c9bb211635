package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/fight-ledger/internal/fight"
	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/store"
)

// --- eventos ---

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.fights.ListEvents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]dto.EventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, toEvent(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) activeEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.fights.ActiveEvent(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(ev))
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEventRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := fight.NewEvent{Name: req.Name, Location: req.Location, CreatedBy: IdentityFrom(r.Context()).UserID}
	if req.EventDate != nil {
		in.EventDate = *req.EventDate
	}
	ev, err := s.fights.CreateEvent(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEvent(ev))
}

func (s *Server) activateEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.fights.ActivateEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(ev))
}

// --- lutas ---

func (s *Server) listFights(w http.ResponseWriter, r *http.Request) {
	fs, err := s.fights.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]dto.FightResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, s.toFight(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) currentFight(w http.ResponseWriter, r *http.Request) {
	f, err := s.fights.Current(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toFight(f))
}

func (s *Server) getFight(w http.ResponseWriter, r *http.Request) {
	f, err := s.fights.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toFight(f))
}

func (s *Server) createFight(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateFightRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.fights.Create(r.Context(), req.EventID, IdentityFrom(r.Context()).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toFight(f))
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.SetStatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.fights.SetStatus(r.Context(), chi.URLParam(r, "id"), store.FightStatus(req.Status), IdentityFrom(r.Context()).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toFight(f))
}

func (s *Server) declareWinner(w http.ResponseWriter, r *http.Request) {
	var req dto.DeclareWinnerRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.fights.DeclareWinner(r.Context(), fight.DeclareInput{
		FightID:    chi.URLParam(r, "id"),
		Winner:     store.Winner(req.Winner),
		Status:     store.FightStatus(req.Status),
		DeclaredBy: IdentityFrom(r.Context()).UserID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toResolution(res))
}

// settle refaz a liquidação de uma luta já resolvida
func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	sum, err := s.fights.Settle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlement(sum))
}

func (s *Server) partialClose(w http.ResponseWriter, r *http.Request) {
	var req dto.PartialCloseRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.fights.PartialClose(r.Context(), id, store.Side(req.Side), req.Closed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.fights.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartial(f.FightNumber, st))
}

func (s *Server) partialStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fights.PartialStates())
}

// --- on-hand ---

// onHand calcula a posição do caixa; ?at=RFC3339 define o corte (padrão: agora)
func (s *Server) onHand(w http.ResponseWriter, r *http.Request) {
	tellerNo, err := tellerNoParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var cutoff time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		if cutoff, err = time.Parse(time.RFC3339, raw); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "validation_error", Message: "at must be RFC3339"})
			return
		}
	}
	p, err := s.rec.Position(r.Context(), chi.URLParam(r, "id"), tellerNo, cutoff)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPosition(p))
}

func (s *Server) checkpoints(w http.ResponseWriter, r *http.Request) {
	tellerNo, err := tellerNoParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cps, err := s.rec.Checkpoints(r.Context(), chi.URLParam(r, "id"), tellerNo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]dto.PositionResponse, 0, len(cps))
	for _, cp := range cps {
		p := toPosition(cp.Position)
		p.MovementID = cp.MovementID
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}
