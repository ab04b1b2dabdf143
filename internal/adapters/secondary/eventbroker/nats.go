package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

const StreamName = "ALFAAZ"

// Sujets persistés par le stream.
var streamSubjects = []string{"follow.>", "poem.>"}

// NatsBroker publie les événements métier sur JetStream.
// Implémente ports.EventPublisher.
type NatsBroker struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNatsBroker se connecte et s'assure que le stream existe (idempotent).
func NewNatsBroker(url string) (*NatsBroker, error) {
	nc, err := nats.Connect(url, nats.Name("alfaaz"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: streamSubjects,
		Storage:  jetstream.FileStorage,
		Replicas: 1,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsBroker{nc: nc, js: js}, nil
}

// Conn : connexion partagée avec l'abonné (primary/events).
func (n *NatsBroker) Conn() *nats.Conn { return n.nc }

func (n *NatsBroker) Close() {
	if err := n.nc.Drain(); err != nil {
		slog.Warn("NATS drain failed", "error", err)
	}
}

func (n *NatsBroker) PublishFollowCreated(ctx context.Context, evt domain.FollowEvent) error {
	return n.publish(ctx, domain.SubjectFollowCreated, evt)
}

func (n *NatsBroker) PublishFollowDeleted(ctx context.Context, evt domain.FollowEvent) error {
	return n.publish(ctx, domain.SubjectFollowDeleted, evt)
}

func (n *NatsBroker) PublishPoemPublished(ctx context.Context, evt domain.PoemPublishedEvent) error {
	return n.publish(ctx, domain.SubjectPoemPublished, evt)
}

func (n *NatsBroker) publish(ctx context.Context, subject string, payload any) error {
	msg, err := newMessage(ctx, subject, payload)
	if err != nil {
		return err
	}

	ack, err := n.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	slog.Debug("📢 Event published", "subject", subject, "seq", ack.Sequence)
	return nil
}

// newMessage encode le payload et injecte le contexte de trace dans les en-têtes.
func newMessage(ctx context.Context, subject string, payload any) (*nats.Msg, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}
