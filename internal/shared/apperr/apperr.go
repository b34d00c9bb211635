// Package apperr define a taxonomia de erros do domínio. Todos são
// recuperáveis na borda da API; nenhum deve derrubar o processo.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidState        = errors.New("invalid_state")
	ErrValidation          = errors.New("validation_error")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrAlreadySettled      = errors.New("already_settled")
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
)

// Error carrega o tipo do erro e os identificadores envolvidos, para que o
// cliente consiga reagir sem interpretar a mensagem.
type Error struct {
	Kind   error  // um dos Err* acima
	Op     string // ex: "fight.DeclareWinner"
	Entity string // ex: "fight", "bet", "account"
	ID     string
	Msg    string
}

func (e *Error) Error() string {
	s := e.Kind.Error()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Entity != "" {
		s += fmt.Sprintf(" (%s %s)", e.Entity, e.ID)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *Error) Unwrap() error { return e.Kind }

// E monta um *Error
func E(kind error, op, entity, id, msg string) *Error {
	return &Error{Kind: kind, Op: op, Entity: entity, ID: id, Msg: msg}
}

func NotFound(op, entity, id string) *Error {
	return E(ErrNotFound, op, entity, id, "")
}

func InvalidState(op, entity, id, msg string) *Error {
	return E(ErrInvalidState, op, entity, id, msg)
}

func Validation(op, msg string) *Error {
	return E(ErrValidation, op, "", "", msg)
}

// Kind devolve o tipo do erro, ou nil se não for da taxonomia
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrInvalidState, ErrValidation,
		ErrInsufficientFunds, ErrAlreadySettled, ErrConcurrencyConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable indica se o chamador deve repetir a operação
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
