package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var viewerCtxKey = &contextKey{"viewer"}

// Authenticate décode le header Authorization et résout le viewer.
// Sans header, la requête continue en anonyme : les services refusent
// eux-mêmes ce qui exige une identité.
func Authenticate(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, r, domain.ErrInvalidToken)
				return
			}

			viewer, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			viewer.Location = location(r)

			ctx := context.WithValue(r.Context(), viewerCtxKey, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForContext renvoie le viewer résolu par Authenticate, anonyme sinon.
func ForContext(ctx context.Context) domain.Viewer {
	v, ok := ctx.Value(viewerCtxKey).(domain.Viewer)
	if !ok {
		return domain.Anonymous()
	}
	return v
}

// location : fuseau du client (X-Timezone, nom IANA) pour les dates affichées.
func location(r *http.Request) *time.Location {
	name := strings.TrimSpace(r.Header.Get("X-Timezone"))
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	return loc
}

// Instrument compte les requêtes par route (pattern chi, pas le chemin brut).
func Instrument(m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
