package graph

import (
	"context"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

// Overlay : le graphe devient la source de vérité des arêtes.
// Utilisateurs et poèmes restent sur la gateway relationnelle.
type Overlay struct {
	ports.Gateway
	follows *Neo4jRepo
}

func NewOverlay(base ports.Gateway, follows *Neo4jRepo) *Overlay {
	return &Overlay{Gateway: base, follows: follows}
}

func (o *Overlay) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	return o.follows.SelectFollows(ctx, q)
}

func (o *Overlay) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	return o.follows.InsertFollow(ctx, edge)
}

func (o *Overlay) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return o.follows.DeleteFollow(ctx, followerID, followingID)
}

func (o *Overlay) Count(ctx context.Context, q domain.Query) (int, error) {
	if q.Resource == domain.ResourceFollows {
		return o.follows.CountFollows(ctx, q)
	}
	return o.Gateway.Count(ctx, q)
}

func (o *Overlay) Ping(ctx context.Context) error {
	if err := o.Gateway.Ping(ctx); err != nil {
		return err
	}
	return o.follows.Ping(ctx)
}
