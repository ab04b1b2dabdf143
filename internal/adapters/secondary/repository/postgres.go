package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Tables : noms physiques (même schéma que la base Supabase).
type Tables struct {
	Users   string
	Poems   string
	Follows string
}

// Colonnes autorisées par ressource. Tout le reste est refusé avant SQL.
var columns = map[domain.Resource][]string{
	domain.ResourceUsers:   {"id", "username", "full_name", "bio", "profile_image_url", "writing_style_tags", "created_at"},
	domain.ResourcePoems:   {"id", "user_id", "content", "form_tags", "background_image_url", "created_at"},
	domain.ResourceFollows: {"followers_id", "following_id", "created_at"},
}

// PostgresRepo : Gateway en accès direct (pgx), sans passer par PostgREST.
type PostgresRepo struct {
	db     *pgxpool.Pool
	tables Tables
}

func NewPostgresRepo(pool *pgxpool.Pool, tables Tables) *PostgresRepo {
	return &PostgresRepo{db: pool, tables: tables}
}

// NewPool ouvre le pool avec le tracer OpenTelemetry injecté.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, nil
}

// --- LECTURES ---

func (r *PostgresRepo) SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error) {
	sql, args, err := r.buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handleError("select users", err)
	}
	defer rows.Close()

	var out []domain.UserRecord
	for rows.Next() {
		var u domain.UserRecord
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Bio, &u.ProfileImageURL, &u.WritingStyleTags, &u.CreatedAt); err != nil {
			return nil, r.handleError("scan user", err)
		}
		out = append(out, u)
	}
	return out, r.handleError("select users", rows.Err())
}

func (r *PostgresRepo) SelectPoems(ctx context.Context, q domain.Query) ([]domain.PoemRecord, error) {
	sql, args, err := r.buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handleError("select poems", err)
	}
	defer rows.Close()

	var out []domain.PoemRecord
	for rows.Next() {
		p, err := scanPoem(rows, q.WithAuthor)
		if err != nil {
			return nil, r.handleError("scan poem", err)
		}
		out = append(out, p)
	}
	return out, r.handleError("select poems", rows.Err())
}

func (r *PostgresRepo) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	sql, args, err := r.buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handleError("select follows", err)
	}
	defer rows.Close()

	var out []domain.FollowRecord
	for rows.Next() {
		var f domain.FollowRecord
		if err := rows.Scan(&f.FollowersID, &f.FollowingID, &f.CreatedAt); err != nil {
			return nil, r.handleError("scan follow", err)
		}
		out = append(out, f)
	}
	return out, r.handleError("select follows", rows.Err())
}

func (r *PostgresRepo) Count(ctx context.Context, q domain.Query) (int, error) {
	table, err := r.table(q.Resource)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(q, "t", 1)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT count(*) FROM %s AS t%s", table, where)

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, r.handleError("count "+string(q.Resource), err)
	}
	return n, nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return r.handleError("ping", err)
	}
	return nil
}

// --- ÉCRITURES ---

func (r *PostgresRepo) InsertUser(ctx context.Context, rec domain.UserRecord) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, username, full_name, bio, profile_image_url, writing_style_tags)
		VALUES (@id, @username, @full_name, @bio, @profile_image_url, @writing_style_tags)
		ON CONFLICT (id) DO NOTHING
	`, sanitize(r.tables.Users))

	args := pgx.NamedArgs{
		"id":                 rec.ID,
		"username":           rec.Username,
		"full_name":          rec.FullName,
		"bio":                rec.Bio,
		"profile_image_url":  rec.ProfileImageURL,
		"writing_style_tags": rec.WritingStyleTags,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return r.handleError("insert user", err)
	}
	return nil
}

func (r *PostgresRepo) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	return r.update(ctx, "update user", domain.ResourceUsers, id, patch.Columns())
}

func (r *PostgresRepo) InsertPoem(ctx context.Context, rec domain.PoemRecord) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, content, form_tags, background_image_url, created_at)
		VALUES (@id, @user_id, @content, @form_tags, @background_image_url, COALESCE(@created_at, now()))
	`, sanitize(r.tables.Poems))

	args := pgx.NamedArgs{
		"id":                   rec.ID,
		"user_id":              rec.UserID,
		"content":              rec.Content,
		"form_tags":            rec.FormTags,
		"background_image_url": rec.BackgroundImageURL,
		"created_at":           rec.CreatedAt,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return r.handleError("insert poem", err)
	}
	return nil
}

func (r *PostgresRepo) UpdatePoem(ctx context.Context, id string, patch domain.PoemPatch) error {
	return r.update(ctx, "update poem", domain.ResourcePoems, id, patch.Columns())
}

func (r *PostgresRepo) DeletePoem(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = $1", sanitize(r.tables.Poems))
	if _, err := r.db.Exec(ctx, q, id); err != nil {
		return r.handleError("delete poem", err)
	}
	return nil
}

// InsertFollow : idempotent grâce à la contrainte unique (followers_id, following_id).
func (r *PostgresRepo) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (followers_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, sanitize(r.tables.Follows))
	if _, err := r.db.Exec(ctx, q, edge.FollowerID, edge.FollowingID); err != nil {
		return r.handleError("insert follow", err)
	}
	return nil
}

func (r *PostgresRepo) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE followers_id = $1 AND following_id = $2", sanitize(r.tables.Follows))
	if _, err := r.db.Exec(ctx, q, followerID, followingID); err != nil {
		return r.handleError("delete follow", err)
	}
	return nil
}

func (r *PostgresRepo) update(ctx context.Context, op string, res domain.Resource, id string, cols map[string]any) error {
	table, err := r.table(res)
	if err != nil {
		return err
	}
	sql, args, err := buildUpdate(table, res, id, cols)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return r.handleError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- CONSTRUCTION SQL ---

func (r *PostgresRepo) table(res domain.Resource) (string, error) {
	switch res {
	case domain.ResourceUsers:
		return sanitize(r.tables.Users), nil
	case domain.ResourcePoems:
		return sanitize(r.tables.Poems), nil
	case domain.ResourceFollows:
		return sanitize(r.tables.Follows), nil
	}
	return "", domain.NewValidationError("resource", fmt.Sprintf("unknown resource %q", res))
}

func (r *PostgresRepo) buildSelect(q domain.Query) (string, []any, error) {
	table, err := r.table(q.Resource)
	if err != nil {
		return "", nil, err
	}

	cols := qualify("t", columns[q.Resource])
	from := fmt.Sprintf("%s AS t", table)
	if q.Resource == domain.ResourcePoems && q.WithAuthor {
		// LEFT JOIN : un poème orphelin reste listé, sans auteur
		cols = append(cols, qualify("a", columns[domain.ResourceUsers])...)
		from += fmt.Sprintf(" LEFT JOIN %s AS a ON a.id = t.user_id", sanitize(r.tables.Users))
	}

	where, args, err := buildWhere(q, "t", 1)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(cols, ", "), from, where)
	if q.Order.Column != "" {
		if !allowed(q.Resource, q.Order.Column) {
			return "", nil, unknownColumn(q.Order.Column)
		}
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY t.%s %s NULLS LAST", q.Order.Column, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), args, nil
}

// buildWhere : conjonction de Where, puis disjonction AnyOf entre parenthèses.
func buildWhere(q domain.Query, alias string, next int) (string, []any, error) {
	var parts []string
	var args []any

	render := func(c domain.Condition) (string, error) {
		if !allowed(q.Resource, c.Column) {
			return "", unknownColumn(c.Column)
		}
		col := alias + "." + c.Column
		var value any = c.Value
		if c.Column == domain.ColCreatedAt && c.Op != domain.OpIn {
			t, err := time.Parse(time.RFC3339, c.Value)
			if err != nil {
				return "", domain.NewValidationError(c.Column, "invalid timestamp")
			}
			value = t
		}
		var expr string
		switch c.Op {
		case domain.OpEq:
			expr = fmt.Sprintf("%s = $%d", col, next)
		case domain.OpNeq:
			expr = fmt.Sprintf("%s <> $%d", col, next)
		case domain.OpILike:
			expr = fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, next)
		case domain.OpGte:
			expr = fmt.Sprintf("%s >= $%d", col, next)
		case domain.OpIn:
			expr = fmt.Sprintf("%s::text = ANY($%d)", col, next)
			value = c.Values
		default:
			return "", domain.NewValidationError(c.Column, fmt.Sprintf("unsupported operator %q", c.Op))
		}
		args = append(args, value)
		next++
		return expr, nil
	}

	for _, c := range q.Where {
		expr, err := render(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr)
	}
	if len(q.AnyOf) > 0 {
		var ors []string
		for _, c := range q.AnyOf {
			expr, err := render(c)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, expr)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildUpdate(table string, res domain.Resource, id string, cols map[string]any) (string, []any, error) {
	if len(cols) == 0 {
		return "", nil, domain.NewValidationError("", "nothing to update")
	}
	// Ordre stable des colonnes pour des requêtes préparées réutilisables
	names := make([]string, 0, len(cols))
	for name := range cols {
		if !allowed(res, name) {
			return "", nil, unknownColumn(name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = fmt.Sprintf("%s = $%d", name, i+1)
		args = append(args, cols[name])
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	return sql, args, nil
}

func scanPoem(rows pgx.Rows, withAuthor bool) (domain.PoemRecord, error) {
	var p domain.PoemRecord
	dest := []any{&p.ID, &p.UserID, &p.Content, &p.FormTags, &p.BackgroundImageURL, &p.CreatedAt}
	if !withAuthor {
		return p, rows.Scan(dest...)
	}

	var a domain.UserRecord
	var authorID *string
	dest = append(dest, &authorID, &a.Username, &a.FullName, &a.Bio, &a.ProfileImageURL, &a.WritingStyleTags, &a.CreatedAt)
	if err := rows.Scan(dest...); err != nil {
		return p, err
	}
	if authorID != nil {
		a.ID = *authorID
		p.Author = &a
	}
	return p, nil
}

func qualify(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

func allowed(res domain.Resource, col string) bool {
	for _, c := range columns[res] {
		if c == col {
			return true
		}
	}
	return false
}

func unknownColumn(col string) error {
	return domain.NewValidationError(col, fmt.Sprintf("unknown column %q", col))
}

func sanitize(table string) string {
	return pgx.Identifier{table}.Sanitize()
}

// handleError traduit les codes PostgreSQL en erreurs du domaine.
func (r *PostgresRepo) handleError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "username") {
				return domain.ErrUsernameTaken
			}
			return domain.NewValidationError("", pgErr.Message)
		case "23503": // foreign_key_violation
			return domain.NewValidationError("", "referenced record does not exist")
		case "42501": // insufficient_privilege
			return domain.ErrForbidden
		case "22P02": // invalid_text_representation (uuid mal formé)
			return domain.ErrNotFound
		}
	}
	return domain.NewTransportError(op, err)
}
