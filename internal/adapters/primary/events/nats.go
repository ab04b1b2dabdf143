package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// FolloweeSync : ce dont l'abonné a besoin côté cœur (FolloweeDirectory).
type FolloweeSync interface {
	Invalidate(ctx context.Context, viewerID string)
}

// followSubjects couvre follow.created et follow.deleted dans un seul abonnement.
const followSubjects = "follow.*"

// EventHandler invalide le répertoire des suivis quand une autre instance
// écrit une arête. L'invalidation ne dépend pas de l'ordre de livraison.
type EventHandler struct {
	followees FolloweeSync
	timeout   time.Duration
}

func NewEventHandler(followees FolloweeSync) *EventHandler {
	return &EventHandler{followees: followees, timeout: 5 * time.Second}
}

// Register abonne le handler aux sujets de suivi.
// Pas de queue group : chaque instance doit voir chaque événement.
func (h *EventHandler) Register(nc *nats.Conn) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(followSubjects, h.HandleFollow)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", followSubjects, err)
	}
	return sub, nil
}

func (h *EventHandler) HandleFollow(msg *nats.Msg) {
	switch msg.Subject {
	case domain.SubjectFollowCreated, domain.SubjectFollowDeleted:
		h.handleFollow(msg)
	default:
		slog.Debug("Unknown follow subject, ignored", "subject", msg.Subject)
	}
}

func (h *EventHandler) handleFollow(msg *nats.Msg) {
	// Reprise de la trace du publieur
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	ctx, span := otel.Tracer("alfaaz/events").Start(ctx, "process_"+msg.Subject, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var evt domain.FollowEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid payload")
		slog.Error("❌ Invalid event format", "subject", msg.Subject, "error", err)
		return
	}
	if evt.FollowerID == "" || evt.FollowingID == "" {
		slog.Warn("Follow event without ids, ignored", "subject", msg.Subject)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.followees.Invalidate(ctx, evt.FollowerID)
	slog.Debug("📨 Follow event applied", "subject", msg.Subject, "follower_id", evt.FollowerID, "following_id", evt.FollowingID)
}
