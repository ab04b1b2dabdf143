package services

import (
	"context"
	"strings"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

type searchService struct {
	gw         ports.Gateway
	reconciler *Reconciler
	views      *ViewRegistry
}

func NewSearchService(gw ports.Gateway, reconciler *Reconciler, views *ViewRegistry) ports.SearchService {
	return &searchService{gw: gw, reconciler: reconciler, views: views}
}

func (s *searchService) SearchUsers(ctx context.Context, v domain.Viewer, text string) (*domain.CandidatePage, error) {
	if err := v.Require(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	view := s.views.For(v.SessionKey()).Search

	// Une nouvelle frappe annule la recherche précédente encore en vol
	ctx, seq, done := view.gen.Begin(ctx)
	defer done()

	page := &domain.CandidatePage{Query: text, Items: []domain.SearchCandidate{}, Seq: seq}

	// Texte vide : résultat vide, aucune requête
	if text == "" {
		view.gen.Commit(seq, func() { view.Load("", nil) })
		return page, nil
	}

	q, err := domain.BuildQuery(v, domain.ModeUserSearch, domain.QueryParams{Text: text})
	if err != nil {
		return nil, err
	}
	records, err := s.gw.SelectUsers(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, view, seq, "search users", err)
	}

	users := make([]domain.User, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		u := rec.Normalize()
		if u.ID == "" || u.ID == v.ID {
			continue
		}
		users = append(users, u)
		ids = append(ids, u.ID)
	}

	var edges []domain.FollowEdge
	if len(ids) > 0 {
		followRecords, err := s.gw.SelectFollows(ctx, domain.FollowEdgesQuery(v.ID, ids))
		if err != nil {
			return nil, s.fail(ctx, view, seq, "load follow edges", err)
		}
		edges = domain.NormalizeEdges(followRecords)
	}

	candidates := Reconcile(users, edges)
	committed := view.gen.Commit(seq, func() {
		view.Load(text, candidates)
		_, page.Items = view.Snapshot()
	})
	if !committed {
		return nil, domain.ErrSuperseded
	}
	if len(page.Items) == 0 {
		page.Empty = domain.EmptyMessage(domain.ModeUserSearch, domain.QueryParams{Text: text})
	}
	return page, nil
}

func (s *searchService) fail(ctx context.Context, view *SearchView, seq uint64, op string, err error) error {
	return failFetch(ctx, &view.gen, seq, op, err)
}

// ToggleFollow : CurrentState = true signifie que l'UI affiche "Unfollow".
func (s *searchService) ToggleFollow(ctx context.Context, v domain.Viewer, cmd ports.ToggleFollowCmd) (domain.SearchCandidate, error) {
	if err := v.Require(); err != nil {
		return domain.SearchCandidate{}, err
	}
	view := s.views.For(v.SessionKey()).Search
	if cmd.CurrentState {
		return s.reconciler.ApplyUnfollow(ctx, v, view, cmd.CandidateID)
	}
	return s.reconciler.ApplyFollow(ctx, v, view, cmd.CandidateID)
}

// Following : aperçu des comptes suivis, borné à 4.
func (s *searchService) Following(ctx context.Context, v domain.Viewer) (*domain.IdentityList, error) {
	q, err := domain.BuildQuery(v, domain.ModeFollowing, domain.QueryParams{})
	if err != nil {
		return nil, err
	}
	list := &domain.IdentityList{Items: []domain.DisplayIdentity{}}

	gen := &s.views.For(v.SessionKey()).Following
	ctx, seq, done := gen.Begin(ctx)
	defer done()

	records, err := s.gw.SelectFollows(ctx, q)
	if err != nil {
		return nil, failFetch(ctx, gen, seq, "load following", err)
	}
	edges := domain.NormalizeEdges(records)
	if len(edges) == 0 {
		list.Empty = domain.EmptyMessage(domain.ModeFollowing, domain.QueryParams{})
		return list, nil
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowingID)
	}
	userRecords, err := s.gw.SelectUsers(ctx, domain.UsersByIDsQuery(ids))
	if err != nil {
		return nil, failFetch(ctx, gen, seq, "load followed users", err)
	}
	if !gen.IsCurrent(seq) {
		return nil, domain.ErrSuperseded
	}

	// On garde l'ordre des arêtes (plus récent d'abord)
	byID := make(map[string]domain.User, len(userRecords))
	for _, rec := range userRecords {
		u := rec.Normalize()
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			list.Items = append(list.Items, domain.AdaptUser(u))
		}
	}
	if len(list.Items) == 0 {
		list.Empty = domain.EmptyMessage(domain.ModeFollowing, domain.QueryParams{})
	}
	return list, nil
}
