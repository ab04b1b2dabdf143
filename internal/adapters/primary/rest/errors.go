package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// statusClientClosed : le client a abandonné la requête (convention nginx).
const statusClientClosed = 499

// Notice : corps d'erreur JSON, affiché tel quel par le client.
type Notice struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorBody struct {
	Error Notice `json:"error"`
}

// mapDomainError traduit les erreurs du cœur en statut HTTP + notice.
// Les erreurs brutes du backend ne sortent jamais telles quelles.
func mapDomainError(err error) (int, Notice) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, Notice{Kind: "validation", Title: "Missing fields", Message: verr.Message, Field: verr.Field}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, Notice{Kind: "validation", Title: "Missing fields", Message: err.Error()}
	case errors.Is(err, domain.ErrSelfFollow):
		return http.StatusBadRequest, Notice{Kind: "self_follow", Title: "Not allowed", Message: err.Error()}
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized, Notice{Kind: "auth_required", Title: "Authentication Error", Message: "Please sign in to continue"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, Notice{Kind: "invalid_token", Title: "Authentication Error", Message: "Your session has expired, please sign in again"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, Notice{Kind: "invalid_credentials", Title: "Invalid credentials", Message: "Please check your email and password and try again"}
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return http.StatusForbidden, Notice{Kind: "email_not_confirmed", Title: "Email not verified", Message: "Please check your email and click the verification link"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, Notice{Kind: "forbidden", Title: "Not allowed", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, Notice{Kind: "not_found", Title: "Not found", Message: err.Error()}
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, Notice{Kind: "account_exists", Title: "Account exists", Message: "This email is already registered. Try signing in instead."}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, Notice{Kind: "username_taken", Title: "Username taken", Message: err.Error()}
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, Notice{Kind: "superseded", Title: "Outdated", Message: err.Error()}
	case errors.Is(err, domain.ErrFollowInFlight):
		return http.StatusConflict, Notice{Kind: "follow_in_flight", Title: "Please wait", Message: err.Error()}
	case errors.Is(err, domain.ErrTransport):
		return http.StatusServiceUnavailable, Notice{Kind: "transport", Title: "Error", Message: "Something went wrong. Please try again."}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, Notice{Kind: "timeout", Title: "Error", Message: "Please try again"}
	case errors.Is(err, context.Canceled):
		return statusClientClosed, Notice{Kind: "canceled", Title: "Canceled", Message: "request canceled"}
	default:
		return http.StatusInternalServerError, Notice{Kind: "internal", Title: "Error", Message: "Something went wrong. Please try again."}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, notice := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "❌ request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: notice})
}
