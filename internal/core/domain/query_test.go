package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewer = Viewer{ID: "viewer-1"}

func TestBuildQuery_RequiresIdentity(t *testing.T) {
	for _, mode := range []Mode{ModeFeed, ModeFilter, ModeUserSearch, ModeFollowing, ModeAuthorPoems} {
		_, err := BuildQuery(Anonymous(), mode, QueryParams{Text: "x", AuthorID: "a"})
		assert.ErrorIs(t, err, ErrAuthRequired, mode)
	}
}

func TestBuildQuery_Feed(t *testing.T) {
	q, err := BuildQuery(viewer, ModeFeed, QueryParams{Page: 2})
	require.NoError(t, err)

	assert.Equal(t, ResourcePoems, q.Resource)
	assert.Equal(t, FeedLimit, q.Limit)
	assert.Equal(t, 40, q.Offset)
	assert.Equal(t, Order{Column: ColCreatedAt, Descending: true}, q.Order)
	assert.True(t, q.WithAuthor)
	assert.Empty(t, q.Where)
}

func TestBuildQuery_FilterTabs(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("tag filters use substring match", func(t *testing.T) {
		want := map[Filter]string{
			FilterHaiku:     "%haiku%",
			FilterSonnet:    "%sonnet%",
			FilterFreeVerse: "%free%",
		}
		for f, pattern := range want {
			q, err := BuildQuery(viewer, ModeFilter, QueryParams{Filter: f})
			require.NoError(t, err)
			assert.Equal(t, []Condition{ILike(ColFormTags, pattern)}, q.Where)
			assert.Equal(t, FilterLimit, q.Limit)
		}
	})

	t.Run("recent is newest first without filter", func(t *testing.T) {
		q, err := BuildQuery(viewer, ModeFilter, QueryParams{Filter: FilterRecent})
		require.NoError(t, err)
		assert.Empty(t, q.Where)
		assert.True(t, q.Order.Descending)
		assert.Equal(t, FilterLimit, q.Limit)
	})

	t.Run("trending restricts to the window", func(t *testing.T) {
		q, err := BuildQuery(viewer, ModeFilter, QueryParams{Filter: FilterTrending, Now: now})
		require.NoError(t, err)
		assert.Equal(t, []Condition{Gte(ColCreatedAt, "2024-06-03T12:00:00Z")}, q.Where)
		assert.Equal(t, TrendingPool, q.Limit)
	})

	t.Run("unknown filter", func(t *testing.T) {
		_, err := BuildQuery(viewer, ModeFilter, QueryParams{Filter: "epic"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = ParseFilter("EPIC")
		assert.ErrorIs(t, err, ErrValidation)

		f, err := ParseFilter(" Haiku ")
		require.NoError(t, err)
		assert.Equal(t, FilterHaiku, f)
	})
}

func TestBuildQuery_UserSearch(t *testing.T) {
	q, err := BuildQuery(viewer, ModeUserSearch, QueryParams{Text: "  anna "})
	require.NoError(t, err)

	assert.Equal(t, ResourceUsers, q.Resource)
	assert.Equal(t, []Condition{Neq(ColID, "viewer-1")}, q.Where)
	assert.ElementsMatch(t, []Condition{ILike(ColUsername, "%anna%"), ILike(ColFullName, "%anna%")}, q.AnyOf)
	assert.Equal(t, SearchLimit, q.Limit)

	_, err = BuildQuery(viewer, ModeUserSearch, QueryParams{Text: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchPatternIsLiteral(t *testing.T) {
	q, err := BuildQuery(viewer, ModeUserSearch, QueryParams{Text: `a_b%c\`})
	require.NoError(t, err)
	assert.Equal(t, `%a\_b\%c\\%`, q.AnyOf[0].Value)

	cases := []struct {
		pattern string
		input   string
		match   bool
	}{
		{"%" + EscapeLike("anna_") + "%", "anna_lee", true},
		{"%" + EscapeLike("anna_") + "%", "annaXlee", false},
		{"%" + EscapeLike("%") + "%", "bob", false},
		{"%" + EscapeLike("%") + "%", "100%", true},
		{"%" + EscapeLike("a.b*") + "%", "xa.b*y", true},
		{"%" + EscapeLike("a.b*") + "%", "axbb", false},
		{"%haiku%", "Haiku of dusk", true},
	}
	for _, tc := range cases {
		re := regexp.MustCompile("(?is)" + LikeRegexp(tc.pattern))
		assert.Equal(t, tc.match, re.MatchString(tc.input), "%s ~ %s", tc.pattern, tc.input)
	}
}

func TestBuildQuery_Following(t *testing.T) {
	q, err := BuildQuery(viewer, ModeFollowing, QueryParams{})
	require.NoError(t, err)
	assert.Equal(t, ResourceFollows, q.Resource)
	assert.Equal(t, []Condition{Eq(ColFollowersID, "viewer-1")}, q.Where)
	assert.Equal(t, FollowingSummaryLimit, q.Limit)

	edges := FollowEdgesQuery("viewer-1", []string{"a", "b"})
	assert.Equal(t, []Condition{Eq(ColFollowersID, "viewer-1"), In(ColFollowingID, []string{"a", "b"})}, edges.Where)
}

func TestEmptyMessage(t *testing.T) {
	assert.Equal(t, "No poems yet", EmptyMessage(ModeFeed, QueryParams{}))
	assert.Equal(t, "No poems found", EmptyMessage(ModeFilter, QueryParams{}))
	assert.Equal(t, "No following yet", EmptyMessage(ModeFollowing, QueryParams{}))
	assert.Equal(t, `No users found for "zed"`, EmptyMessage(ModeUserSearch, QueryParams{Text: " zed"}))
}

func TestRankTrending(t *testing.T) {
	base := time.Now()
	poems := []Poem{
		{ID: "old-popular", AuthorID: Some("star"), CreatedAt: base.Add(-48 * time.Hour)},
		{ID: "new-quiet", AuthorID: Some("quiet"), CreatedAt: base},
		{ID: "orphan", CreatedAt: base.Add(time.Hour)},
		{ID: "new-popular", AuthorID: Some("star"), CreatedAt: base.Add(-time.Hour)},
	}
	ranked := RankTrending(poems, map[string]int{"star": 10, "quiet": 1}, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, "new-popular", ranked[0].ID)
	assert.Equal(t, "old-popular", ranked[1].ID)
	assert.Equal(t, "new-quiet", ranked[2].ID)
	assert.Equal(t, []string{"star", "quiet"}, AuthorIDs(poems))
}
