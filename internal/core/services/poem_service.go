package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

type poemService struct {
	gw        ports.Gateway
	publisher ports.EventPublisher
	now       func() time.Time
}

func NewPoemService(gw ports.Gateway, pub ports.EventPublisher, now func() time.Time) ports.PoemService {
	if now == nil {
		now = time.Now
	}
	return &poemService{gw: gw, publisher: pub, now: now}
}

// Publish valide le brouillon AVANT tout appel backend.
func (s *poemService) Publish(ctx context.Context, v domain.Viewer, draft domain.Draft) (*domain.PoemViewModel, error) {
	if err := v.Require(); err != nil {
		return nil, err
	}
	poem, err := domain.NewPoem(v.ID, draft, s.now())
	if err != nil {
		return nil, err
	}

	// 1. Sauvegarde (source de vérité)
	if err := s.gw.InsertPoem(ctx, poem.Record()); err != nil {
		slog.Error("❌ failed to publish poem", "author_id", v.ID, "error", err)
		return nil, transport("insert poem", err)
	}

	// 2. Événement (best effort)
	if s.publisher != nil {
		evt := domain.PoemPublishedEvent{
			PoemID:     poem.ID,
			AuthorID:   v.ID,
			Tag:        poem.Tag.OrElse(""),
			OccurredAt: poem.CreatedAt,
		}
		if err := s.publisher.PublishPoemPublished(ctx, evt); err != nil {
			slog.Warn("⚠️ failed to publish poem event", "poem_id", poem.ID, "error", err)
		}
	}

	slog.Info("📝 poem published", "poem_id", poem.ID, "author_id", v.ID)

	// 3. Relecture avec l'auteur joint ; à défaut on rend ce qu'on a écrit
	if stored, err := s.load(ctx, poem.ID); err == nil {
		vm := domain.AdaptPoem(*stored, domain.NewRenderContext(v, s.now()))
		return &vm, nil
	}
	vm := domain.AdaptPoem(*poem, domain.NewRenderContext(v, s.now()))
	return &vm, nil
}

// Preview : rendu du brouillon sans rien écrire.
func (s *poemService) Preview(ctx context.Context, v domain.Viewer, draft domain.Draft) (*domain.PoemViewModel, error) {
	author := domain.DisplayIdentity{
		Username:    domain.AnonymousHandle,
		DisplayName: domain.AnonymousAuthor,
		Initials:    domain.DefaultInitials,
	}
	if v.IsAuthenticated() {
		author.ID = v.ID
		records, err := s.gw.SelectUsers(ctx, domain.UserByIDQuery(v.ID))
		if err != nil {
			slog.Warn("⚠️ preview author lookup failed", "viewer_id", v.ID, "error", err)
		} else if len(records) > 0 {
			author = domain.AdaptUser(records[0].Normalize())
		}
	}
	vm := domain.PreviewDraft(author, draft)
	return &vm, nil
}

func (s *poemService) Get(ctx context.Context, v domain.Viewer, poemID string) (*domain.PoemViewModel, error) {
	if err := v.Require(); err != nil {
		return nil, err
	}
	poem, err := s.load(ctx, poemID)
	if err != nil {
		return nil, err
	}
	vm := domain.AdaptPoem(*poem, domain.NewRenderContext(v, s.now()))
	return &vm, nil
}

// Update : seul l'auteur peut modifier.
func (s *poemService) Update(ctx context.Context, v domain.Viewer, cmd ports.UpdatePoemCmd) (*domain.PoemViewModel, error) {
	if err := v.Require(); err != nil {
		return nil, err
	}
	if cmd.Patch.IsEmpty() {
		return nil, domain.NewValidationError("", "nothing to update")
	}
	if err := cmd.Patch.Validate(); err != nil {
		return nil, err
	}

	poem, err := s.load(ctx, cmd.PoemID)
	if err != nil {
		return nil, err
	}
	if !poem.IsOwnedBy(v.ID) {
		return nil, domain.ErrForbidden
	}

	if err := s.gw.UpdatePoem(ctx, poem.ID, cmd.Patch); err != nil {
		slog.Error("❌ failed to update poem", "poem_id", poem.ID, "error", err)
		return nil, transport("update poem", err)
	}
	updated := poem.Apply(cmd.Patch)
	vm := domain.AdaptPoem(updated, domain.NewRenderContext(v, s.now()))
	return &vm, nil
}

func (s *poemService) Delete(ctx context.Context, v domain.Viewer, poemID string) error {
	if err := v.Require(); err != nil {
		return err
	}
	poem, err := s.load(ctx, poemID)
	if err != nil {
		return err
	}
	if !poem.IsOwnedBy(v.ID) {
		return domain.ErrForbidden
	}
	if err := s.gw.DeletePoem(ctx, poem.ID); err != nil {
		slog.Error("❌ failed to delete poem", "poem_id", poem.ID, "error", err)
		return transport("delete poem", err)
	}
	slog.Info("🗑️ poem deleted", "poem_id", poem.ID, "author_id", v.ID)
	return nil
}

func (s *poemService) load(ctx context.Context, poemID string) (*domain.Poem, error) {
	poemID = strings.TrimSpace(poemID)
	if poemID == "" {
		return nil, domain.NewValidationError("id", "poem id is required")
	}
	records, err := s.gw.SelectPoems(ctx, domain.PoemByIDQuery(poemID))
	if err != nil {
		return nil, transport("load poem", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	poem := records[0].Normalize()
	return &poem, nil
}
