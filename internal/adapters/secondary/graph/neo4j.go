package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Neo4jRepo stocke les arêtes de suivi sous forme (:User)-[:FOLLOWS]->(:User).
// Il implémente ports.FollowStore.
type Neo4jRepo struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jRepo(driver neo4j.DriverWithContext) *Neo4jRepo {
	return &Neo4jRepo{driver: driver}
}

// EnsureSchema : contrainte d'unicité sur User.id (crée aussi l'index)
func (r *Neo4jRepo) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil)
		return nil, err
	})
	return r.wrap("ensure schema", err)
}

// InsertFollow : MERGE est idempotent, une seule flèche par couple.
func (r *Neo4jRepo) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (a:User {id: $followerId})
			MERGE (b:User {id: $followingId})
			MERGE (a)-[r:FOLLOWS]->(b)
			ON CREATE SET r.created_at = datetime()
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"followerId":  edge.FollowerID,
			"followingId": edge.FollowingID,
		})
		return nil, err
	})
	return r.wrap("insert follow", err)
}

func (r *Neo4jRepo) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (:User {id: $followerId})-[r:FOLLOWS]->(:User {id: $followingId})
			DELETE r
		`
		_, err := tx.Run(ctx, query, map[string]any{"followerId": followerID, "followingId": followingID})
		return nil, err
	})
	return r.wrap("delete follow", err)
}

func (r *Neo4jRepo) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	cypher, params, err := buildMatch(q, false)
	if err != nil {
		return nil, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []domain.FollowRecord
		for res.Next(ctx) {
			rec := res.Record()
			follower, _ := rec.Get("followerId")
			following, _ := rec.Get("followingId")
			f := domain.FollowRecord{FollowersID: str(follower), FollowingID: str(following)}
			if v, ok := rec.Get("createdAt"); ok {
				if created, ok := v.(time.Time); ok {
					f.CreatedAt = &created
				}
			}
			out = append(out, f)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, r.wrap("select follows", err)
	}
	edges, _ := result.([]domain.FollowRecord)
	return edges, nil
}

func (r *Neo4jRepo) CountFollows(ctx context.Context, q domain.Query) (int, error) {
	cypher, params, err := buildMatch(q, true)
	if err != nil {
		return 0, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, _ := rec.Get("total")
		n, _ := total.(int64)
		return n, nil
	})
	if err != nil {
		return 0, r.wrap("count follows", err)
	}
	n, _ := result.(int64)
	return int(n), nil
}

func (r *Neo4jRepo) Ping(ctx context.Context) error {
	return r.wrap("ping", r.driver.VerifyConnectivity(ctx))
}

func (r *Neo4jRepo) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewTransportError("neo4j "+op, err)
}

func str(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// buildMatch traduit un descripteur "follows" en Cypher paramétré.
// Seuls eq, in et gte (sur created_at) ont un sens sur le graphe.
func buildMatch(q domain.Query, count bool) (string, map[string]any, error) {
	if q.Resource != domain.ResourceFollows {
		return "", nil, domain.NewValidationError("resource", fmt.Sprintf("graph only stores follows, got %q", q.Resource))
	}
	if len(q.AnyOf) > 0 {
		return "", nil, domain.NewValidationError("", "disjunctions are not supported on the follow graph")
	}

	params := map[string]any{}
	var where []string
	for i, c := range q.Where {
		name := fmt.Sprintf("p%d", i)
		target, err := property(c.Column)
		if err != nil {
			return "", nil, err
		}
		switch c.Op {
		case domain.OpEq:
			where = append(where, fmt.Sprintf("%s = $%s", target, name))
			params[name] = c.Value
		case domain.OpIn:
			where = append(where, fmt.Sprintf("%s IN $%s", target, name))
			params[name] = c.Values
		case domain.OpGte:
			if c.Column != domain.ColCreatedAt {
				return "", nil, domain.NewValidationError(c.Column, "gte is only supported on created_at")
			}
			where = append(where, fmt.Sprintf("%s >= datetime($%s)", target, name))
			params[name] = c.Value
		default:
			return "", nil, domain.NewValidationError(c.Column, fmt.Sprintf("unsupported operator %q on the follow graph", c.Op))
		}
	}

	var sb strings.Builder
	sb.WriteString("MATCH (a:User)-[r:FOLLOWS]->(b:User)")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if count {
		sb.WriteString(" RETURN count(r) AS total")
		return sb.String(), params, nil
	}

	sb.WriteString(" RETURN a.id AS followerId, b.id AS followingId, r.created_at AS createdAt")
	if q.Order.Column != "" {
		target, err := alias(q.Order.Column)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", target, dir)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " SKIP %d", q.Offset)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), params, nil
}

func property(col string) (string, error) {
	switch col {
	case domain.ColFollowersID:
		return "a.id", nil
	case domain.ColFollowingID:
		return "b.id", nil
	case domain.ColCreatedAt:
		return "r.created_at", nil
	}
	return "", domain.NewValidationError(col, fmt.Sprintf("unknown follow column %q", col))
}

// alias : nom de colonne après RETURN (utilisé par ORDER BY).
func alias(col string) (string, error) {
	switch col {
	case domain.ColFollowersID:
		return "followerId", nil
	case domain.ColFollowingID:
		return "followingId", nil
	case domain.ColCreatedAt:
		return "createdAt", nil
	}
	return "", domain.NewValidationError(col, fmt.Sprintf("unknown follow column %q", col))
}
