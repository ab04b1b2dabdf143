package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Tables : noms des tables côté Supabase.
type Tables struct {
	Users   string
	Poems   string
	Follows string
}

// Gateway parle à PostgREST via le client Supabase (clé service).
// Les droits (propriétaire, identité) sont vérifiés dans le cœur.
type Gateway struct {
	client *supa.Client
	tables Tables
}

func NewGateway(client *supa.Client, tables Tables) *Gateway {
	return &Gateway{client: client, tables: tables}
}

// NewClient construit le client Supabase partagé (gateway + sessions).
func NewClient(url, key, schema string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, &supa.ClientOptions{Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func (g *Gateway) table(r domain.Resource) string {
	switch r {
	case domain.ResourceUsers:
		return g.tables.Users
	case domain.ResourcePoems:
		return g.tables.Poems
	default:
		return g.tables.Follows
	}
}

// --- LECTURES ---

func (g *Gateway) SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error) {
	var out []domain.UserRecord
	if err := g.selectInto(ctx, "select users", q, "*", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) SelectPoems(ctx context.Context, q domain.Query) ([]domain.PoemRecord, error) {
	columns := "*"
	if q.WithAuthor {
		// Jointure via la clé étrangère poems.user_id -> users.id
		columns = fmt.Sprintf("*,author:%s(*)", g.tables.Users)
	}
	var out []domain.PoemRecord
	if err := g.selectInto(ctx, "select poems", q, columns, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	var out []domain.FollowRecord
	if err := g.selectInto(ctx, "select follows", q, "*", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) Count(ctx context.Context, q domain.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.Limit, q.Offset = 0, 0
	q.Order = domain.Order{}
	fb := applyQuery(g.client.From(g.table(q.Resource)).Select("*", "exact", true), q)
	_, count, err := fb.Execute()
	if err != nil {
		return 0, mapError("count "+string(q.Resource), err)
	}
	return int(count), nil
}

func (g *Gateway) selectInto(ctx context.Context, op string, q domain.Query, columns string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fb := applyQuery(g.client.From(g.table(q.Resource)).Select(columns, "", false), q)
	if _, err := fb.ExecuteTo(out); err != nil {
		slog.Debug("postgrest query failed", "op", op, "query", q.String(), "error", err)
		return mapError(op, err)
	}
	return nil
}

// --- ÉCRITURES ---

func (g *Gateway) InsertUser(ctx context.Context, rec domain.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := g.client.From(g.tables.Users).Insert(rec, false, "", "minimal", "").Execute()
	if err != nil {
		if code(err) == uniqueViolation && strings.Contains(err.Error(), "username") {
			return domain.ErrUsernameTaken
		}
		if code(err) == uniqueViolation {
			// La ligne existe déjà pour cet id
			return nil
		}
		return mapError("insert user", err)
	}
	return nil
}

func (g *Gateway) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	return g.update(ctx, "update user", g.tables.Users, id, patch.Columns())
}

func (g *Gateway) InsertPoem(ctx context.Context, rec domain.PoemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Author = nil
	if _, _, err := g.client.From(g.tables.Poems).Insert(rec, false, "", "minimal", "").Execute(); err != nil {
		return mapError("insert poem", err)
	}
	return nil
}

func (g *Gateway) UpdatePoem(ctx context.Context, id string, patch domain.PoemPatch) error {
	return g.update(ctx, "update poem", g.tables.Poems, id, patch.Columns())
}

func (g *Gateway) DeletePoem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := g.client.From(g.tables.Poems).Delete("minimal", "").Eq(domain.ColID, id).Execute(); err != nil {
		return mapError("delete poem", err)
	}
	return nil
}

// InsertFollow : un doublon (23505) est un succès, l'arête existe déjà.
func (g *Gateway) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := edge.Record()
	rec.CreatedAt = nil
	_, _, err := g.client.From(g.tables.Follows).Insert(rec, false, "", "minimal", "").Execute()
	if err != nil && code(err) != uniqueViolation {
		return mapError("insert follow", err)
	}
	return nil
}

func (g *Gateway) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := g.client.From(g.tables.Follows).
		Delete("minimal", "").
		Eq(domain.ColFollowersID, followerID).
		Eq(domain.ColFollowingID, followingID).
		Execute()
	if err != nil {
		return mapError("delete follow", err)
	}
	return nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.Count(ctx, domain.Query{Resource: domain.ResourceUsers, Limit: 1})
	return err
}

func (g *Gateway) update(ctx context.Context, op, table, id string, cols map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, _, err := g.client.From(table).Update(cols, "representation", "").Eq(domain.ColID, id).Execute()
	if err != nil {
		return mapError(op, err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- TRADUCTION DESCRIPTEUR -> POSTGREST ---

func applyQuery(fb *postgrest.FilterBuilder, q domain.Query) *postgrest.FilterBuilder {
	for _, c := range q.Where {
		fb = applyCondition(fb, c)
	}
	if len(q.AnyOf) > 0 {
		fb = fb.Or(orExpression(q.AnyOf), "")
	}
	if q.Order.Column != "" {
		fb = fb.Order(q.Order.Column, &postgrest.OrderOpts{Ascending: !q.Order.Descending})
	}
	if q.Limit > 0 {
		fb = fb.Range(q.Offset, q.Offset+q.Limit-1, "")
	}
	return fb
}

func applyCondition(fb *postgrest.FilterBuilder, c domain.Condition) *postgrest.FilterBuilder {
	switch c.Op {
	case domain.OpEq:
		return fb.Eq(c.Column, c.Value)
	case domain.OpNeq:
		return fb.Neq(c.Column, c.Value)
	case domain.OpILike:
		return fb.Ilike(c.Column, wildcard(c.Value))
	case domain.OpIn:
		return fb.In(c.Column, c.Values)
	case domain.OpGte:
		return fb.Gte(c.Column, c.Value)
	}
	return fb
}

// orExpression : "username.imatch.\"^.*anna.*$\",full_name.imatch..."
// Le OU porte le texte saisi : ILIKE y devient imatch, où * n'est pas un joker PostgREST.
func orExpression(conds []domain.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		op := string(c.Op)
		value := c.Value
		switch c.Op {
		case domain.OpILike:
			op, value = "imatch", quote(domain.LikeRegexp(value))
		case domain.OpIn:
			value = "(" + strings.Join(c.Values, ",") + ")"
		default:
			value = quote(value)
		}
		parts = append(parts, fmt.Sprintf("%s.%s.%s", c.Column, op, value))
	}
	return strings.Join(parts, ",")
}

// wildcard : PostgREST accepte * à la place de % dans les URLs.
// Les séquences échappées (\%, \_, \\) passent telles quelles jusqu'à Postgres.
func wildcard(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == domain.LikeEscape:
			escaped = true
		case r == '%':
			b.WriteByte('*')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var reserved = regexp.MustCompile(`[,.:()"\\\s]`)

func quote(v string) string {
	if !reserved.MatchString(v) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
