package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestInitials(t *testing.T) {
	cases := []struct {
		name     string
		fullName string
		handle   string
		want     string
	}{
		{"two tokens", "Anna Lee", "anna99", "AL"},
		{"three tokens truncated", "mary jane watson", "mj", "MJ"},
		{"single token", "rumi", "", "R"},
		{"extra whitespace", "  anna   lee  ", "", "AL"},
		{"handle only", "", "anna99", "A"},
		{"nothing", "", "", "U"},
		{"blank name falls to handle", "   ", "zed", "Z"},
		{"unicode", "élodie ñuñez", "", "ÉÑ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Initials(tc.fullName, tc.handle)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, len([]rune(got)), 2)
			assert.Equal(t, strings.ToUpper(got), got)
		})
	}
}

func TestAdaptPoem(t *testing.T) {
	created := time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)
	rc := RenderContext{Location: time.UTC, Now: created.Add(2 * time.Hour)}

	t.Run("orphaned poem renders as Anonymous", func(t *testing.T) {
		rec := PoemRecord{ID: "p1", Content: strp("hello"), CreatedAt: &created}
		vm := AdaptPoem(rec.Normalize(), rc)

		assert.Equal(t, AnonymousAuthor, vm.Author.DisplayName)
		assert.Equal(t, AnonymousHandle, vm.Author.Username)
		assert.Equal(t, DefaultInitials, vm.Author.Initials)
		assert.Equal(t, "2 hours ago", vm.RelativeTime)
	})

	t.Run("joined author without full name falls back to handle", func(t *testing.T) {
		rec := PoemRecord{
			ID:      "p2",
			UserID:  strp("u1"),
			Content: strp("x"),
			Author:  &UserRecord{ID: "u1", Username: strp("anna99")},
		}
		vm := AdaptPoem(rec.Normalize(), rc)

		assert.Equal(t, "anna99", vm.Author.DisplayName)
		assert.Equal(t, "A", vm.Author.Initials)
		assert.Equal(t, "u1", vm.Author.ID)
	})

	t.Run("newline runs collapse and missing tag is Untitled", func(t *testing.T) {
		rec := PoemRecord{ID: "p3", Content: strp("line1\n\n\n\nline2"), FormTags: nil}
		vm := AdaptPoem(rec.Normalize(), rc)

		assert.Equal(t, "line1\n\nline2", vm.Content)
		assert.Equal(t, UntitledTitle, vm.Title)
		assert.Empty(t, vm.Style)
	})

	t.Run("tag doubles as title and style", func(t *testing.T) {
		rec := PoemRecord{ID: "p4", Content: strp("x"), FormTags: strp("free-verse")}
		vm := AdaptPoem(rec.Normalize(), rc)

		assert.Equal(t, "free-verse", vm.Title)
		assert.Equal(t, "free-verse", vm.Style)
		assert.Equal(t, "Free verse", vm.StyleLabel)
		assert.Zero(t, vm.Likes)
		assert.Zero(t, vm.Comments)
		assert.False(t, vm.IsLiked)
	})

	t.Run("date follows the viewer location", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*3600)
		rec := PoemRecord{ID: "p5", Content: strp("x"), CreatedAt: &created}

		assert.Equal(t, "3/5/2024", AdaptPoem(rec.Normalize(), RenderContext{Location: time.UTC}).Timestamp)
		assert.Equal(t, "3/6/2024", AdaptPoem(rec.Normalize(), RenderContext{Location: tokyo}).Timestamp)
	})

	t.Run("long content is excerpted", func(t *testing.T) {
		long := strings.Repeat("a", ExcerptLength+10)
		rec := PoemRecord{ID: "p6", Content: &long}
		vm := AdaptPoem(rec.Normalize(), rc)

		assert.True(t, vm.Truncated)
		assert.Equal(t, strings.Repeat("a", ExcerptLength)+"...", vm.Excerpt)
		assert.Equal(t, long, vm.Content)
	})

	t.Run("adaptation is pure", func(t *testing.T) {
		rec := PoemRecord{ID: "p7", Content: strp("x"), CreatedAt: &created, FormTags: strp("haiku")}
		p := rec.Normalize()
		assert.Equal(t, AdaptPoem(p, rc), AdaptPoem(p, rc))
	})
}

func TestAdaptUser(t *testing.T) {
	t.Run("display name chain", func(t *testing.T) {
		assert.Equal(t, "Anna Lee", AdaptUser(UserRecord{ID: "1", Username: strp("anna99"), FullName: strp("Anna Lee")}.Normalize()).DisplayName)
		assert.Equal(t, "anna99", AdaptUser(UserRecord{ID: "1", Username: strp("anna99"), FullName: strp("  ")}.Normalize()).DisplayName)
		assert.Equal(t, DefaultUserName, AdaptUser(UserRecord{ID: "1"}.Normalize()).DisplayName)
	})

	t.Run("style tags are parsed", func(t *testing.T) {
		u := UserRecord{ID: "1", Username: strp("a"), WritingStyleTags: strp("haiku, Sonnet,,HAIKU ")}.Normalize()
		assert.Equal(t, []string{"haiku", "Sonnet"}, AdaptUser(u).StyleTags)
	})
}

func TestPreviewDraft(t *testing.T) {
	author := DisplayIdentity{ID: "u1", Username: "anna99", DisplayName: "Anna Lee", Initials: "AL"}
	vm := PreviewDraft(author, Draft{Content: "a\n\n\n\nb", Style: "free-verse"})

	assert.Equal(t, UntitledTitle, vm.Title)
	assert.Equal(t, JustNow, vm.Timestamp)
	assert.Equal(t, "a\n\nb", vm.Content)
	assert.Equal(t, "Free verse", vm.StyleLabel)
	assert.Equal(t, author, vm.Author)
}

func TestNewPoem(t *testing.T) {
	now := time.Now()

	t.Run("requires title and content", func(t *testing.T) {
		_, err := NewPoem("u1", Draft{Title: "t", Content: "   "}, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = NewPoem("u1", Draft{Content: "body"}, now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("requires an author", func(t *testing.T) {
		_, err := NewPoem("", Draft{Title: "t", Content: "c"}, now)
		assert.ErrorIs(t, err, ErrAuthRequired)
	})

	t.Run("style wins over title as tag", func(t *testing.T) {
		p, err := NewPoem("u1", Draft{Title: "Dawn", Content: "c", Style: "haiku"}, now)
		require.NoError(t, err)
		assert.Equal(t, Some("haiku"), p.Tag)

		p, err = NewPoem("u1", Draft{Title: "Dawn", Content: "c\n\n\n\nd"}, now)
		require.NoError(t, err)
		assert.Equal(t, Some("Dawn"), p.Tag)
		assert.Equal(t, "c\n\nd", p.Content)
		assert.True(t, p.IsOwnedBy("u1"))
		assert.NotEmpty(t, p.ID)
	})
}

func TestOptionalJSON(t *testing.T) {
	var o Optional[string]
	require.NoError(t, o.UnmarshalJSON([]byte("null")))
	assert.False(t, o.IsSome())

	require.NoError(t, o.UnmarshalJSON([]byte(`"x"`)))
	assert.Equal(t, "x", o.OrElse(""))

	b, err := None[int]().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
