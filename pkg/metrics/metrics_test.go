package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_IsolatedRegistries(t *testing.T) {
	a := NewCollector("alfaaz")
	b := NewCollector("alfaaz")

	a.FollowToggles.WithLabelValues("confirmed").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.FollowToggles.WithLabelValues("confirmed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FollowToggles.WithLabelValues("confirmed")))
}

func TestHandler(t *testing.T) {
	c := NewCollector("alfaaz")
	c.PoemsPublished.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alfaaz_poems_published_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
