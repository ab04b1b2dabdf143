package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatest(t *testing.T) {
	var l Latest

	ctx1, seq1, done1 := l.Begin(context.Background())
	ctx2, seq2, done2 := l.Begin(context.Background())
	defer done2()

	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "older request is cancelled")
	assert.NoError(t, ctx2.Err())
	assert.False(t, l.IsCurrent(seq1))
	assert.True(t, l.IsCurrent(seq2))

	applied := false
	assert.False(t, l.Commit(seq1, func() { applied = true }))
	assert.False(t, applied)
	assert.True(t, l.Commit(seq2, func() { applied = true }))
	assert.True(t, applied)

	// Terminer l'ancienne génération ne touche pas la courante
	done1()
	assert.NoError(t, ctx2.Err())
	assert.Equal(t, seq2, l.Seq())
}

func TestSearchUsers_SupersededResponseIsDropped(t *testing.T) {
	f := newSearchFixture(t)
	f.gw.PutUser(user("anna", "anna99", "Anna Lee"))
	view := f.views.For("me").Search

	// Une génération plus récente démarre pendant la requête
	_, _, done := view.gen.Begin(context.Background())
	stale := view.gen.Seq()
	_, _, done2 := view.gen.Begin(context.Background())
	defer done2()
	done()

	committed := view.gen.Commit(stale, func() { view.Load("stale", nil) })
	assert.False(t, committed)

	q, _ := view.Snapshot()
	assert.Empty(t, q)
}
