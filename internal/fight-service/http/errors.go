package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
)

func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrInsufficientFunds:
		return http.StatusUnprocessableEntity
	case apperr.ErrInvalidState, apperr.ErrAlreadySettled, apperr.ErrConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) dto.ErrorResponse {
	kind := apperr.Kind(err)
	if kind == nil {
		return dto.ErrorResponse{Error: "internal", Message: "internal error"}
	}
	body := dto.ErrorResponse{Error: kind.Error(), Message: err.Error(), Retryable: apperr.Retryable(err)}
	var e *apperr.Error
	if errors.As(err, &e) {
		body.Entity, body.ID = e.Entity, e.ID
		if e.Msg != "" {
			body.Message = e.Msg
		}
	}
	return body
}

// fail traduz o erro de domínio para status e corpo JSON
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody(err))
}
