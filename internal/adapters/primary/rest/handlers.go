package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

// --- AUTH ---

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.SignUp(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session, PendingConfirmation: session.PendingConfirmation()})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.SignIn(r.Context(), domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), ForContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- FEED / EXPLORE ---

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.feeds.Feed(r.Context(), ForContext(r.Context()), page)
	if err != nil {
		h.superseded(err, "feed")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) explorePoems(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.FilterTrending
	if raw := r.URL.Query().Get("filter"); raw != "" {
		if filter, err = domain.ParseFilter(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res, err := h.feeds.Explore(r.Context(), ForContext(r.Context()), ports.ExploreCmd{Filter: filter, Page: page})
	if err != nil {
		h.superseded(err, "explore")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.search.SearchUsers(r.Context(), ForContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.superseded(err, "search")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- FOLLOW ---

func (h *Handler) toggleFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cmd := ports.ToggleFollowCmd{CandidateID: chi.URLParam(r, "id"), CurrentState: *req.CurrentState}

	candidate, err := h.search.ToggleFollow(r.Context(), ForContext(r.Context()), cmd)
	h.countToggle(err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (h *Handler) following(w http.ResponseWriter, r *http.Request) {
	res, err := h.search.Following(r.Context(), ForContext(r.Context()))
	if err != nil {
		h.superseded(err, "following")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- PROFILE ---

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	res, err := h.profiles.Get(r.Context(), ForContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.superseded(err, "profile")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) authorPoems(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.feeds.AuthorPoems(r.Context(), ForContext(r.Context()), chi.URLParam(r, "id"), page)
	if err != nil {
		h.superseded(err, "author_poems")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profilePatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.profiles.Update(r.Context(), ForContext(r.Context()), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POEMS ---

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.poems.Publish(r.Context(), ForContext(r.Context()), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PoemsPublished.Inc()
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.poems.Preview(r.Context(), ForContext(r.Context()), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getPoem(w http.ResponseWriter, r *http.Request) {
	res, err := h.poems.Get(r.Context(), ForContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) updatePoem(w http.ResponseWriter, r *http.Request) {
	var req poemPatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cmd := ports.UpdatePoemCmd{PoemID: chi.URLParam(r, "id"), Patch: req.toDomain()}
	res, err := h.poems.Update(r.Context(), ForContext(r.Context()), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deletePoem(w http.ResponseWriter, r *http.Request) {
	if err := h.poems.Delete(r.Context(), ForContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- HEALTH ---

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := h.health.Ping(r.Context()); err != nil {
		slog.Warn("⚠️ health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- METRICS HELPERS ---

func (h *Handler) superseded(err error, view string) {
	if h.metrics != nil && errors.Is(err, domain.ErrSuperseded) {
		h.metrics.Superseded.WithLabelValues(view).Inc()
	}
}

// countToggle : confirmed, rejected (refus local, aucune écriture) ou reverted.
func (h *Handler) countToggle(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "confirmed"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrSelfFollow),
		errors.Is(err, domain.ErrAuthRequired),
		errors.Is(err, domain.ErrFollowInFlight):
		outcome = "rejected"
	default:
		outcome = "reverted"
	}
	h.metrics.FollowToggles.WithLabelValues(outcome).Inc()
}
