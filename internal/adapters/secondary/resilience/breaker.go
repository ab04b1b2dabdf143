package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
)

type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Gateway entoure une ports.Gateway d'un disjoncteur.
// Seules les pannes de transport comptent : une erreur du domaine
// (validation, introuvable, interdit) ou une annulation n'ouvre pas le circuit.
type Gateway struct {
	next ports.Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewGateway(next ports.Gateway, cfg Config, m *metrics.Collector) *Gateway {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("⚡ Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: isSuccessful,
	}
	if m != nil {
		m.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	}
	return &Gateway{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return !errors.Is(err, domain.ErrTransport) && !errors.Is(err, context.DeadlineExceeded)
}

func (g *Gateway) State() gobreaker.State { return g.cb.State() }

func call[T any](g *Gateway, op string, fn func() (T, error)) (T, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, domain.NewTransportError(op, err)
	}
	v, _ := out.(T)
	return v, err
}

func exec(g *Gateway, op string, fn func() error) error {
	_, err := call(g, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (g *Gateway) SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error) {
	return call(g, "select users", func() ([]domain.UserRecord, error) { return g.next.SelectUsers(ctx, q) })
}

func (g *Gateway) InsertUser(ctx context.Context, rec domain.UserRecord) error {
	return exec(g, "insert user", func() error { return g.next.InsertUser(ctx, rec) })
}

func (g *Gateway) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	return exec(g, "update user", func() error { return g.next.UpdateUser(ctx, id, patch) })
}

func (g *Gateway) SelectPoems(ctx context.Context, q domain.Query) ([]domain.PoemRecord, error) {
	return call(g, "select poems", func() ([]domain.PoemRecord, error) { return g.next.SelectPoems(ctx, q) })
}

func (g *Gateway) InsertPoem(ctx context.Context, rec domain.PoemRecord) error {
	return exec(g, "insert poem", func() error { return g.next.InsertPoem(ctx, rec) })
}

func (g *Gateway) UpdatePoem(ctx context.Context, id string, patch domain.PoemPatch) error {
	return exec(g, "update poem", func() error { return g.next.UpdatePoem(ctx, id, patch) })
}

func (g *Gateway) DeletePoem(ctx context.Context, id string) error {
	return exec(g, "delete poem", func() error { return g.next.DeletePoem(ctx, id) })
}

func (g *Gateway) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	return call(g, "select follows", func() ([]domain.FollowRecord, error) { return g.next.SelectFollows(ctx, q) })
}

func (g *Gateway) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	return exec(g, "insert follow", func() error { return g.next.InsertFollow(ctx, edge) })
}

func (g *Gateway) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return exec(g, "delete follow", func() error { return g.next.DeleteFollow(ctx, followerID, followingID) })
}

func (g *Gateway) Count(ctx context.Context, q domain.Query) (int, error) {
	return call(g, "count", func() (int, error) { return g.next.Count(ctx, q) })
}

// Ping contourne le disjoncteur : la sonde de santé doit voir l'état réel.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}
