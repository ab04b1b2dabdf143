package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// transport : toute erreur backend non classée devient une TransportFailure.
// Les erreurs déjà typées du domaine passent telles quelles.
func transport(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrTransport,
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrAuthRequired,
		domain.ErrForbidden,
		domain.ErrSuperseded,
		domain.ErrUsernameTaken,
		context.Canceled,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.NewTransportError(op, err)
}

// failFetch distingue une requête remplacée (ErrSuperseded) ou annulée
// d'une vraie panne backend, seule journalisée.
func failFetch(ctx context.Context, gen *Latest, seq uint64, op string, err error) error {
	if !gen.IsCurrent(seq) {
		return domain.ErrSuperseded
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	slog.Error("❌ fetch failed", "op", op, "error", err)
	return transport(op, err)
}
