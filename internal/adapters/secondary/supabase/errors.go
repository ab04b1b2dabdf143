package supabase

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

const (
	uniqueViolation    = "23505"
	insufficientRights = "42501"
	fkViolation        = "23503"
)

// postgrest-go formate ses erreurs en "(CODE) message".
var pgrstCode = regexp.MustCompile(`^\(([0-9A-Z]+)\)`)

func code(err error) string {
	if err == nil {
		return ""
	}
	m := pgrstCode.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func mapError(op string, err error) error {
	switch code(err) {
	case insufficientRights:
		return domain.ErrForbidden
	case fkViolation:
		return domain.NewValidationError("", "referenced record does not exist")
	}
	return domain.NewTransportError(op, err)
}

// mapAuthError traduit les messages GoTrue en erreurs du domaine.
func mapAuthError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already been registered"):
		return domain.ErrAccountExists
	case strings.Contains(msg, "invalid login credentials"):
		return domain.ErrInvalidCredentials
	case strings.Contains(msg, "email not confirmed"):
		return domain.ErrEmailNotConfirmed
	case strings.Contains(msg, "status code 401"), strings.Contains(msg, "status code 403"):
		return domain.ErrInvalidToken
	case strings.Contains(msg, "status code 422"), strings.Contains(msg, "status code 400"):
		return domain.NewValidationError("", "request rejected by auth provider")
	}
	return domain.NewTransportError(op, err)
}

var errEmptyUser = errors.New("auth provider returned no user id")
