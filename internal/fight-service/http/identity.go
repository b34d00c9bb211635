package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strconv"

	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

// Cabeçalhos preenchidos pelo gateway de autenticação; a API confia neles
const (
	HeaderUserID   = "X-User-Id"
	HeaderTellerNo = "X-Teller-No"
	HeaderRole     = "X-Role"
)

// Identity é o ator autenticado da requisição
type Identity struct {
	UserID   string
	TellerNo int
	Role     store.Role
}

type identityKey struct{}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{UserID: r.Header.Get(HeaderUserID), Role: store.Role(r.Header.Get(HeaderRole))}
		if raw := r.Header.Get(HeaderTellerNo); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody(apperr.Validation("http.identify", "X-Teller-No must be an integer")))
				return
			}
			id.TellerNo = n
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).UserID == "" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthenticated", Message: HeaderUserID + " header is required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, IdentityFrom(r.Context()).Role) {
				writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "forbidden", Message: "role not allowed"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
