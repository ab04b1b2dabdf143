package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

type profileService struct {
	gw        ports.Gateway
	followees *FolloweeDirectory
	views     *ViewRegistry
	now       func() time.Time
}

func NewProfileService(gw ports.Gateway, followees *FolloweeDirectory, views *ViewRegistry, now func() time.Time) ports.ProfileService {
	if now == nil {
		now = time.Now
	}
	return &profileService{gw: gw, followees: followees, views: views, now: now}
}

// Get assemble la page profil : les lectures partent en parallèle.
func (s *profileService) Get(ctx context.Context, v domain.Viewer, userID string) (*domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	q, err := domain.BuildQuery(v, domain.ModeAuthorPoems, domain.QueryParams{AuthorID: userID})
	if err != nil {
		return nil, err
	}

	var (
		users       []domain.UserRecord
		poems       []domain.PoemRecord
		stats       domain.ProfileStats
		isFollowing bool
	)
	isSelf := userID == v.ID

	// Ouvrir un autre profil annule le chargement en cours
	gen := &s.views.For(v.SessionKey()).Profile
	ctx, seq, done := gen.Begin(ctx)
	defer done()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.gw.SelectUsers(gctx, domain.UserByIDQuery(userID))
		return err
	})
	g.Go(func() (err error) {
		poems, err = s.gw.SelectPoems(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		stats.Poems, err = s.gw.Count(gctx, domain.PoemCountQuery(userID))
		return err
	})
	g.Go(func() (err error) {
		stats.Followers, err = s.gw.Count(gctx, domain.FollowerCountQuery(userID))
		return err
	})
	g.Go(func() (err error) {
		stats.Following, err = s.gw.Count(gctx, domain.FollowingCountQuery(userID))
		return err
	})
	if !isSelf {
		g.Go(func() (err error) {
			isFollowing, err = s.followees.IsFollowing(gctx, v.ID, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failFetch(ctx, gen, seq, "load profile", err)
	}
	if !gen.IsCurrent(seq) {
		return nil, domain.ErrSuperseded
	}
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}

	user := users[0].Normalize()
	rc := domain.NewRenderContext(v, s.now())
	profile := &domain.Profile{
		User:        domain.AdaptUser(user),
		Stats:       stats,
		Poems:       domain.AdaptPoems(normalizePoems(poems), rc),
		IsFollowing: isFollowing,
		IsSelf:      isSelf,
	}
	if !user.CreatedAt.IsZero() {
		profile.JoinedAt = user.CreatedAt.In(rc.Location).Format("January 2006")
	}
	if len(profile.Poems) == 0 {
		profile.Empty = domain.EmptyMessage(domain.ModeAuthorPoems, domain.QueryParams{})
	}
	return profile, nil
}

// Update : formulaire "Edit profile" du viewer.
func (s *profileService) Update(ctx context.Context, v domain.Viewer, patch domain.UserPatch) (*domain.DisplayIdentity, error) {
	if err := v.Require(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("", "nothing to update")
	}
	if err := s.gw.UpdateUser(ctx, v.ID, patch); err != nil {
		slog.Error("❌ failed to update profile", "user_id", v.ID, "error", err)
		return nil, transport("update profile", err)
	}

	records, err := s.gw.SelectUsers(ctx, domain.UserByIDQuery(v.ID))
	if err != nil {
		return nil, transport("reload profile", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	identity := domain.AdaptUser(records[0].Normalize())
	return &identity, nil
}
