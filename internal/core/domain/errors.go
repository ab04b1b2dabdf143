package domain

import (
	"errors"
	"fmt"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrValidation         = errors.New("validation failed")
	ErrTransport          = errors.New("backend unavailable")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not allowed to modify this resource")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrSuperseded         = errors.New("request superseded by a newer one")
	ErrFollowInFlight     = errors.New("follow change already in progress")
	ErrAccountExists      = errors.New("account already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidToken       = errors.New("invalid token")
)

// ValidationError porte le champ fautif. errors.Is(err, ErrValidation) reste vrai.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportError enveloppe une erreur du backend (réseau, rejet PostgREST, driver).
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
