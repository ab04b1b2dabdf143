package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/memory"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

func newProfiles(t *testing.T) (*memory.Gateway, ports.ProfileService) {
	t.Helper()
	gw := memory.NewGateway()
	gw.PutUser(user("me", "me", "Me Myself"))
	anna := user("anna", "anna99", "Anna Lee")
	anna.StyleTags = []string{"haiku", "sonnet"}
	gw.PutUser(anna)
	views, err := NewViewRegistry(8)
	require.NoError(t, err)
	return gw, NewProfileService(gw, NewFolloweeDirectory(gw, nil), views, clock)
}

func TestProfile_Get(t *testing.T) {
	gw, svc := newProfiles(t)
	gw.PutPoem(poem("p1", "anna", "haiku", time.Hour))
	gw.PutPoem(poem("p2", "anna", "", 2*time.Hour))
	gw.PutFollow(domain.FollowEdge{FollowerID: "me", FollowingID: "anna"})
	gw.PutFollow(domain.FollowEdge{FollowerID: "anna", FollowingID: "bob"})

	p, err := svc.Get(context.Background(), me, "anna")
	require.NoError(t, err)

	assert.Equal(t, "Anna Lee", p.User.DisplayName)
	assert.Equal(t, []string{"haiku", "sonnet"}, p.User.StyleTags)
	assert.Equal(t, domain.ProfileStats{Poems: 2, Followers: 1, Following: 1}, p.Stats)
	require.Len(t, p.Poems, 2)
	assert.Equal(t, "p1", p.Poems[0].ID)
	assert.True(t, p.IsFollowing)
	assert.False(t, p.IsSelf)
	assert.Equal(t, "June 2024", p.JoinedAt)
}

func TestProfile_Self(t *testing.T) {
	_, svc := newProfiles(t)

	p, err := svc.Get(context.Background(), me, "me")
	require.NoError(t, err)
	assert.True(t, p.IsSelf)
	assert.False(t, p.IsFollowing)
	assert.Equal(t, "No poems yet", p.Empty)
}

func TestProfile_Errors(t *testing.T) {
	gw, svc := newProfiles(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, me, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, domain.Anonymous(), "anna")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	gw.Fail("Count", errors.New("boom"))
	_, err = svc.Get(ctx, me, "anna")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestProfile_Update(t *testing.T) {
	_, svc := newProfiles(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, me, domain.UserPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	id, err := svc.Update(ctx, me, domain.UserPatch{
		FullName:  domain.Some("New Name"),
		Bio:       domain.Some("writes at night"),
		StyleTags: domain.Some([]string{"ode", "Ode", "ballad"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", id.DisplayName)
	assert.Equal(t, "NN", id.Initials)
	assert.Equal(t, "writes at night", id.Bio)
	assert.Equal(t, []string{"ode", "ballad"}, id.StyleTags)
}

// reentrantGateway lance une seconde requête pendant la première lecture d'utilisateurs.
type reentrantGateway struct {
	*memory.Gateway
	fired  atomic.Bool
	during func()
}

func (g *reentrantGateway) SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error) {
	if g.fired.CompareAndSwap(false, true) {
		g.during()
	}
	return g.Gateway.SelectUsers(ctx, q)
}

func TestProfile_LatestOpenedWins(t *testing.T) {
	base := memory.NewGateway()
	base.PutUser(user("me", "me", "Me Myself"))
	base.PutUser(user("anna", "anna99", "Anna Lee"))
	base.PutUser(user("bob", "bob", "Bob Stone"))
	views, err := NewViewRegistry(8)
	require.NoError(t, err)

	gw := &reentrantGateway{Gateway: base}
	svc := NewProfileService(gw, NewFolloweeDirectory(gw, nil), views, clock)
	ctx := context.Background()

	var second *domain.Profile
	var secondErr error
	gw.during = func() { second, secondErr = svc.Get(ctx, me, "bob") }

	_, err = svc.Get(ctx, me, "anna")
	assert.ErrorIs(t, err, domain.ErrSuperseded)
	require.NoError(t, secondErr)
	assert.Equal(t, "Bob Stone", second.User.DisplayName)
}

func TestSessionsAreIndependent(t *testing.T) {
	gw := memory.NewGateway()
	views, err := NewViewRegistry(8)
	require.NoError(t, err)
	feeds := NewFeedService(gw, views, clock)
	ctx := context.Background()

	phone := domain.Viewer{ID: "me", Token: "token-phone"}
	laptop := domain.Viewer{ID: "me", Token: "token-laptop"}
	require.NotEqual(t, phone.SessionKey(), laptop.SessionKey())

	// Un chargement encore en vol sur le téléphone
	phoneCtx, _, done := views.For(phone.SessionKey()).Feed.Begin(ctx)
	defer done()

	_, err = feeds.Feed(ctx, laptop, 0)
	require.NoError(t, err)
	assert.NoError(t, phoneCtx.Err(), "another device does not cancel the phone")

	_, err = feeds.Feed(ctx, phone, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, phoneCtx.Err(), context.Canceled)
}
