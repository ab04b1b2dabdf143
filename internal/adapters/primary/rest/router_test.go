package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/memory"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/security"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/services"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
)

type fixture struct {
	gw      *memory.Gateway
	metrics *metrics.Collector
	router  http.Handler
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := memory.NewGateway()

	verifier, err := security.NewJWTVerifier("test-secret")
	require.NoError(t, err)
	token, err := verifier.Issue("me", "me@example.com", time.Hour)
	require.NoError(t, err)

	views, err := services.NewViewRegistry(16)
	require.NoError(t, err)
	followees := services.NewFolloweeDirectory(gw, nil)
	reconciler := services.NewReconciler(gw, nil, followees)
	t.Cleanup(reconciler.Wait)

	m := metrics.NewCollector("test")
	h := NewHandler(Services{
		Auth:     services.NewAuthService(nil, verifier, gw),
		Feed:     services.NewFeedService(gw, views, time.Now),
		Search:   services.NewSearchService(gw, reconciler, views),
		Poems:    services.NewPoemService(gw, nil, time.Now),
		Profiles: services.NewProfileService(gw, followees, views, time.Now),
	}, gw, m)

	gw.PutUser(domain.User{ID: "me", Username: "me", FullName: domain.Some("Me Myself")})
	return &fixture{gw: gw, metrics: m, router: h.Router(), token: token}
}

func (f *fixture) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeNotice(t *testing.T, rec *httptest.ResponseRecorder) Notice {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

// Feed vide : 200 + "No poems yet".
func TestFeed_EmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/feed", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.PoemPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Items)
	assert.Equal(t, "No poems yet", page.Empty)
}

func TestFeed_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/feed", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "auth_required", decodeNotice(t, rec).Kind)
	assert.Zero(t, f.gw.Calls(""))
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)

	for _, header := range []string{"Bearer garbage", "Token " + f.token} {
		req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "invalid_token", decodeNotice(t, rec).Kind, header)
	}
}

func TestForContext_DefaultsToAnonymous(t *testing.T) {
	assert.False(t, ForContext(context.Background()).IsAuthenticated())
}

// Recherche puis follow : le bouton bascule sans nouvelle recherche.
func TestSearchThenFollow(t *testing.T) {
	f := newFixture(t)
	f.gw.PutUser(domain.User{ID: "anna", Username: "anna99", FullName: domain.Some("Anna Lee")})

	rec := f.do(t, http.MethodGet, "/v1/explore/users?q=ann", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.CandidatePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "anna", page.Items[0].User.ID)
	assert.False(t, page.Items[0].IsFollowing)

	searches := f.gw.Calls("SelectUsers")
	rec = f.do(t, http.MethodPost, "/v1/users/anna/follow", `{"current_state":false}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var candidate domain.SearchCandidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidate))
	assert.True(t, candidate.IsFollowing)
	assert.Equal(t, 1, f.gw.FollowCount())
	assert.Equal(t, searches, f.gw.Calls("SelectUsers"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FollowToggles.WithLabelValues("confirmed")))
}

func TestFollow_Rejections(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/users/me/follow", `{"current_state":false}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "self_follow", decodeNotice(t, rec).Kind)

	rec = f.do(t, http.MethodPost, "/v1/users/anna/follow", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "current_state", decodeNotice(t, rec).Field)

	assert.Zero(t, f.gw.Calls("InsertFollow"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FollowToggles.WithLabelValues("rejected")))
}

func TestFollow_TransportFailureIsRedacted(t *testing.T) {
	f := newFixture(t)
	f.gw.Fail("InsertFollow", errors.New("pq: connection reset by peer"))

	rec := f.do(t, http.MethodPost, "/v1/users/anna/follow", `{"current_state":false}`, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	notice := decodeNotice(t, rec)
	assert.Equal(t, "transport", notice.Kind)
	assert.NotContains(t, notice.Message, "connection reset")
	assert.Zero(t, f.gw.FollowCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FollowToggles.WithLabelValues("reverted")))
}

// Contenu vide : 400, aucun appel backend.
func TestPublish_EmptyContent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/poems", `{"title":"Dawn","content":"   "}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	notice := decodeNotice(t, rec)
	assert.Equal(t, "validation", notice.Kind)
	assert.Equal(t, "content", notice.Field)
	assert.Zero(t, f.gw.Calls(""))
}

// Les retours multiples sont réduits, le poème est créé.
func TestPublish_Created(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/poems", `{"title":"Dawn","content":"a\n\n\n\nb","style":"haiku"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var vm domain.PoemViewModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vm))
	assert.Equal(t, "a\n\nb", vm.Content)
	assert.Equal(t, "Me Myself", vm.Author.DisplayName)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PoemsPublished))

	rec = f.do(t, http.MethodGet, "/v1/poems/"+vm.ID, "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	calls := f.gw.Calls("")
	rec = f.do(t, http.MethodGet, "/v1/poems/"+vm.ID, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, calls, f.gw.Calls(""), "anonymous read reaches no backend")

	rec = f.do(t, http.MethodDelete, "/v1/poems/"+vm.ID, "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/poems/"+vm.ID, "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadInput(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"unknown filter", http.MethodGet, "/v1/explore/poems?filter=limerick", ""},
		{"negative page", http.MethodGet, "/v1/feed?page=-1", ""},
		{"non numeric page", http.MethodGet, "/v1/explore/poems?page=two", ""},
		{"unknown field", http.MethodPost, "/v1/poems", `{"title":"T","content":"c","mood":"blue"}`},
		{"malformed json", http.MethodPost, "/v1/poems", `{"title":`},
		{"bad avatar url", http.MethodPatch, "/v1/me", `{"avatar_url":"not a url"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.path, tc.body, true)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation", decodeNotice(t, rec).Kind)
		})
	}
	assert.Zero(t, f.gw.Calls(""))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.gw.Fail("Ping", errors.New("down"))
	rec = f.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics_UseRoutePattern(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/v1/poems/abc", "", true)

	rec := f.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/poems/{id}"`)
	assert.NotContains(t, rec.Body.String(), `route="/v1/poems/abc"`)
}

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.NewValidationError("title", "required"), http.StatusBadRequest, "validation"},
		{domain.ErrSelfFollow, http.StatusBadRequest, "self_follow"},
		{domain.ErrAuthRequired, http.StatusUnauthorized, "auth_required"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{domain.ErrEmailNotConfirmed, http.StatusForbidden, "email_not_confirmed"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrAccountExists, http.StatusConflict, "account_exists"},
		{domain.ErrSuperseded, http.StatusConflict, "superseded"},
		{domain.ErrFollowInFlight, http.StatusConflict, "follow_in_flight"},
		{domain.NewTransportError("select", errors.New("boom")), http.StatusServiceUnavailable, "transport"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{errors.New("unexpected"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, notice := mapDomainError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, notice.Kind, tc.err.Error())
	}
}
