package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/memory"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

func newPoems(t *testing.T) (*memory.Gateway, *recordingPublisher, ports.PoemService) {
	t.Helper()
	gw := memory.NewGateway()
	gw.PutUser(user("me", "me", "Me Myself"))
	pub := &recordingPublisher{}
	return gw, pub, NewPoemService(gw, pub, clock)
}

// Contenu vide : erreur de validation locale, zéro appel backend.
func TestPublish_ValidationHappensBeforeAnyCall(t *testing.T) {
	gw, pub, svc := newPoems(t)

	_, err := svc.Publish(context.Background(), me, domain.Draft{Title: "Dawn", Content: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "content", verr.Field)

	assert.Zero(t, gw.Calls(""))
	assert.Empty(t, pub.published)
}

func TestPublish_RequiresIdentity(t *testing.T) {
	gw, _, svc := newPoems(t)
	_, err := svc.Publish(context.Background(), domain.Anonymous(), domain.Draft{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Zero(t, gw.Calls(""))
}

func TestGet_RequiresIdentity(t *testing.T) {
	gw, _, svc := newPoems(t)
	gw.PutPoem(domain.Poem{ID: "p1", AuthorID: domain.Some("me"), Content: "x", CreatedAt: fixedT})

	vm, err := svc.Get(context.Background(), domain.Anonymous(), "p1")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Nil(t, vm)
	assert.Zero(t, gw.Calls(""))

	vm, err = svc.Get(context.Background(), me, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", vm.ID)
}

func TestPublish(t *testing.T) {
	gw, pub, svc := newPoems(t)

	vm, err := svc.Publish(context.Background(), me, domain.Draft{
		Title:   "Dawn",
		Content: "first light\n\n\n\nsecond light",
		Style:   "haiku",
	})
	require.NoError(t, err)

	assert.Equal(t, "haiku", vm.Title)
	assert.Equal(t, "first light\n\nsecond light", vm.Content)
	assert.Equal(t, "Me Myself", vm.Author.DisplayName)
	assert.Equal(t, "6/10/2024", vm.Timestamp)
	assert.Equal(t, 1, gw.Calls("InsertPoem"))
	require.Len(t, pub.published, 1)
	assert.Equal(t, vm.ID, pub.published[0].PoemID)
}

func TestPublish_TransportFailure(t *testing.T) {
	gw, pub, svc := newPoems(t)
	gw.Fail("InsertPoem", errors.New("timeout"))

	_, err := svc.Publish(context.Background(), me, domain.Draft{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Empty(t, pub.published)
}

func TestPreview(t *testing.T) {
	gw, _, svc := newPoems(t)

	vm, err := svc.Preview(context.Background(), me, domain.Draft{Content: "a\n\n\nb", Style: "free-verse"})
	require.NoError(t, err)
	assert.Equal(t, domain.UntitledTitle, vm.Title)
	assert.Equal(t, domain.JustNow, vm.Timestamp)
	assert.Equal(t, "Me Myself", vm.Author.DisplayName)
	assert.Equal(t, "a\n\nb", vm.Content)
	assert.Zero(t, gw.Calls("InsertPoem"))
}

func TestUpdateAndDelete_OwnerOnly(t *testing.T) {
	gw, _, svc := newPoems(t)
	gw.PutPoem(poem("mine", "me", "haiku", time.Hour))
	gw.PutPoem(poem("theirs", "other", "haiku", time.Hour))
	ctx := context.Background()

	_, err := svc.Update(ctx, me, ports.UpdatePoemCmd{PoemID: "theirs", Patch: domain.PoemPatch{Content: domain.Some("x")}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Update(ctx, me, ports.UpdatePoemCmd{PoemID: "mine"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, me, ports.UpdatePoemCmd{PoemID: "mine", Patch: domain.PoemPatch{Content: domain.Some("  ")}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	vm, err := svc.Update(ctx, me, ports.UpdatePoemCmd{PoemID: "mine", Patch: domain.PoemPatch{Tag: domain.Some("")}})
	require.NoError(t, err)
	assert.Equal(t, domain.UntitledTitle, vm.Title)

	assert.ErrorIs(t, svc.Delete(ctx, me, "theirs"), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, me, "missing"), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, me, "mine"))

	_, err = svc.Get(ctx, me, "mine")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
