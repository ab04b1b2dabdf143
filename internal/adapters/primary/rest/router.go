package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
)

// Pinger : sonde du backend pour /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services : ports primaires exposés en HTTP.
type Services struct {
	Auth     ports.AuthService
	Feed     ports.FeedService
	Search   ports.SearchService
	Poems    ports.PoemService
	Profiles ports.ProfileService
}

// Handler adapte l'API HTTP /v1 vers les ports primaires du domaine.
type Handler struct {
	auth     ports.AuthService
	feeds    ports.FeedService
	search   ports.SearchService
	poems    ports.PoemService
	profiles ports.ProfileService
	health   Pinger
	metrics  *metrics.Collector
}

// NewHandler : health et m peuvent être nil.
func NewHandler(svc Services, health Pinger, m *metrics.Collector) *Handler {
	return &Handler{
		auth:     svc.Auth,
		feeds:    svc.Feed,
		search:   svc.Search,
		poems:    svc.Poems,
		profiles: svc.Profiles,
		health:   health,
		metrics:  m,
	}
}

// Router monte les routes sur chi, sans CORS ni tracing (voir Wrap).
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(Instrument(h.metrics))
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Get("/healthz", h.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(Authenticate(h.auth))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signUp)
			r.Post("/signin", h.signIn)
			r.Post("/signout", h.signOut)
		})

		r.Get("/feed", h.feed)
		r.Get("/explore/poems", h.explorePoems)
		r.Get("/explore/users", h.searchUsers)

		r.Get("/me/following", h.following)
		r.Patch("/me", h.updateProfile)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", h.profile)
			r.Get("/poems", h.authorPoems)
			r.Post("/follow", h.toggleFollow)
		})

		r.Route("/poems", func(r chi.Router) {
			r.Post("/", h.publish)
			r.Post("/preview", h.preview)
			r.Get("/{id}", h.getPoem)
			r.Patch("/{id}", h.updatePoem)
			r.Delete("/{id}", h.deletePoem)
		})
	})
	return r
}

// Wrap ajoute CORS puis la racine OTEL autour du routeur.
func Wrap(h http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Timezone", "baggage", "sentry-trace"},
		AllowCredentials: true,
	})
	h = c.Handler(h)

	return otelhttp.NewHandler(h, "alfaaz-http", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
}
