package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

type feedService struct {
	gw    ports.Gateway
	views *ViewRegistry
	now   func() time.Time
}

func NewFeedService(gw ports.Gateway, views *ViewRegistry, now func() time.Time) ports.FeedService {
	if now == nil {
		now = time.Now
	}
	return &feedService{gw: gw, views: views, now: now}
}

// Feed : les 20 poèmes les plus récents, auteur joint.
func (s *feedService) Feed(ctx context.Context, v domain.Viewer, page int) (*domain.PoemPage, error) {
	q, err := domain.BuildQuery(v, domain.ModeFeed, domain.QueryParams{Page: page})
	if err != nil {
		return nil, err
	}
	gen := &s.views.For(v.SessionKey()).Feed
	return s.fetch(ctx, v, gen, q, domain.ModeFeed, page)
}

// Explore : onglets trending / recent / haiku / sonnet / free-verse.
func (s *feedService) Explore(ctx context.Context, v domain.Viewer, cmd ports.ExploreCmd) (*domain.PoemPage, error) {
	params := domain.QueryParams{Filter: cmd.Filter, Page: cmd.Page, Now: s.now()}
	q, err := domain.BuildQuery(v, domain.ModeFilter, params)
	if err != nil {
		return nil, err
	}
	gen := &s.views.For(v.SessionKey()).Explore
	if cmd.Filter == domain.FilterTrending || cmd.Filter == "" {
		return s.trending(ctx, v, gen, q, cmd.Page)
	}
	return s.fetch(ctx, v, gen, q, domain.ModeFilter, cmd.Page)
}

func (s *feedService) AuthorPoems(ctx context.Context, v domain.Viewer, authorID string, page int) (*domain.PoemPage, error) {
	q, err := domain.BuildQuery(v, domain.ModeAuthorPoems, domain.QueryParams{AuthorID: authorID, Page: page})
	if err != nil {
		return nil, err
	}
	gen := &s.views.For(v.SessionKey()).AuthorPoems
	return s.fetch(ctx, v, gen, q, domain.ModeAuthorPoems, page)
}

func (s *feedService) fetch(ctx context.Context, v domain.Viewer, gen *Latest, q domain.Query, mode domain.Mode, page int) (*domain.PoemPage, error) {
	ctx, seq, done := gen.Begin(ctx)
	defer done()

	records, err := s.gw.SelectPoems(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, gen, seq, string(mode), err)
	}
	if !gen.IsCurrent(seq) {
		return nil, domain.ErrSuperseded
	}
	return s.page(v, normalizePoems(records), page, q.Limit, mode, seq), nil
}

// trending : fenêtre récente classée par audience de l'auteur.
func (s *feedService) trending(ctx context.Context, v domain.Viewer, gen *Latest, q domain.Query, page int) (*domain.PoemPage, error) {
	ctx, seq, done := gen.Begin(ctx)
	defer done()

	records, err := s.gw.SelectPoems(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, gen, seq, "trending", err)
	}
	poems := normalizePoems(records)

	counts := make(map[string]int)
	if authors := domain.AuthorIDs(poems); len(authors) > 0 {
		followRecords, err := s.gw.SelectFollows(ctx, domain.FollowersOfQuery(authors))
		if err != nil {
			// Sans audience, on retombe sur l'ordre chronologique.
			slog.Warn("⚠️ trending follower counts unavailable", "error", err)
		} else {
			for _, e := range domain.NormalizeEdges(followRecords) {
				counts[e.FollowingID]++
			}
		}
	}
	if !gen.IsCurrent(seq) {
		return nil, domain.ErrSuperseded
	}

	ranked := domain.RankTrending(poems, counts, 0)
	if page < 0 {
		page = 0
	}
	start := page * domain.FilterLimit
	end := start + domain.FilterLimit
	var window []domain.Poem
	if start < len(ranked) {
		window = ranked[start:min(end, len(ranked))]
	}
	out := s.page(v, window, page, domain.FilterLimit, domain.ModeFilter, seq)
	out.HasMore = len(ranked) > end
	return out, nil
}

func (s *feedService) page(v domain.Viewer, poems []domain.Poem, page, limit int, mode domain.Mode, seq uint64) *domain.PoemPage {
	if page < 0 {
		page = 0
	}
	rc := domain.NewRenderContext(v, s.now())
	out := &domain.PoemPage{
		Items:   domain.AdaptPoems(poems, rc),
		Page:    page,
		HasMore: limit > 0 && len(poems) == limit,
		Seq:     seq,
	}
	if len(out.Items) == 0 {
		out.Empty = domain.EmptyMessage(mode, domain.QueryParams{})
	}
	return out
}

func (s *feedService) fail(ctx context.Context, gen *Latest, seq uint64, op string, err error) error {
	return failFetch(ctx, gen, seq, "load poems "+op, err)
}

func normalizePoems(records []domain.PoemRecord) []domain.Poem {
	poems := make([]domain.Poem, 0, len(records))
	for _, rec := range records {
		poems = append(poems, rec.Normalize())
	}
	return poems
}
