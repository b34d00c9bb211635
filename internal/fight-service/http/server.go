package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/fight-ledger/internal/cashier"
	"github.com/radieske/fight-ledger/internal/fight"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/internal/wager"
)

// Deps são os serviços de domínio expostos pela API
type Deps struct {
	Fights     *fight.Service
	Wagers     *wager.Service
	Cash       *cashier.Service
	Reconciler *reconcile.Reconciler
}

// Server expõe a API REST do fight-service
type Server struct {
	log      *zap.Logger
	fights   *fight.Service
	wagers   *wager.Service
	cash     *cashier.Service
	rec      *reconcile.Reconciler
	validate *validator.Validate
	limits   *limiter
}

// NewServer monta o servidor; betRate/betBurst limitam apostas por conta
func NewServer(log *zap.Logger, d Deps, betRate rate.Limit, betBurst int) *Server {
	return &Server{
		log:      log,
		fights:   d.Fights,
		wagers:   d.Wagers,
		cash:     d.Cash,
		rec:      d.Reconciler,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limits:   newLimiter(betRate, betBurst),
	}
}

var (
	operators = []store.Role{store.RoleAdmin, store.RoleController}
	runners   = []store.Role{store.RoleAdmin, store.RoleRunner}
	tellers   = []store.Role{store.RoleAdmin, store.RoleCashinTeller, store.RoleCashoutTeller}
)

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(identify)

	r.Route("/v1", func(r chi.Router) {
		// consultas
		r.Get("/events", s.listEvents)
		r.Get("/events/active", s.activeEvent)
		r.Get("/events/{id}/fights", s.listFights)
		r.Get("/events/{id}/fights/current", s.currentFight)
		r.Get("/events/{id}/tellers/{tellerNo}/onhand", s.onHand)
		r.Get("/events/{id}/tellers/{tellerNo}/checkpoints", s.checkpoints)
		r.Get("/fights/partial-states", s.partialStates)
		r.Get("/fights/{id}", s.getFight)
		r.Get("/fights/{id}/bets", s.fightBets)
		r.Get("/bets/{id}", s.getBet)
		r.Get("/users/{id}/bets", s.userBets)
		r.Get("/cash", s.listMovements)
		r.Get("/cash/{id}", s.getMovement)
		r.Get("/runners/{id}/stats", s.runnerStats)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			r.Post("/bets", s.placeBet)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(operators...))
				r.Post("/events", s.createEvent)
				r.Post("/events/{id}/activate", s.activateEvent)
				r.Post("/fights", s.createFight)
				r.Patch("/fights/{id}/status", s.setStatus)
				r.Post("/fights/{id}/declare-winner", s.declareWinner)
				r.Post("/fights/{id}/settle", s.settle)
				r.Post("/fights/{id}/partial", s.partialClose)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(runners...))
				r.Post("/cash/topup", s.topup)
				r.Post("/cash/remit", s.remit)
				r.Post("/cash/{id}/assign", s.assign)
				r.Post("/cash/{id}/confirm", s.confirm)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(tellers...))
				r.Post("/cash/requests", s.requestMovement)
				r.Post("/cash/{id}/void", s.void)
			})
		})
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode lê o corpo e aplica as tags de validação; responde 400 se falhar
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, r, apperr.Validation("http.decode", "bad json"))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.fail(w, r, apperr.Validation("http.decode", err.Error()))
		return false
	}
	return true
}

func amount(raw string) (int64, error) {
	v, err := money.Parse(raw)
	if err != nil {
		return 0, apperr.Validation("http.amount", err.Error())
	}
	return v, nil
}

func tellerNoParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "tellerNo"))
	if err != nil || n < 0 {
		return 0, apperr.Validation("http.tellerNo", "teller number must be a non-negative integer")
	}
	return n, nil
}
