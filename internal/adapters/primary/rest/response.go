package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/validation"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// decode lit le corps JSON puis valide les tags `validate`.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("", "invalid JSON body")
	}
	if err := validation.Struct(dst); err != nil {
		var ferr *validation.FieldError
		if errors.As(err, &ferr) {
			return domain.NewValidationError(ferr.Field, ferr.Message)
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}

// pageParam : ?page= absent = 0. Négatif ou non numérique = erreur.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, domain.NewValidationError("page", "page must be a non-negative integer")
	}
	return page, nil
}
