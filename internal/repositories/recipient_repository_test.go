package repositories

import (
	"context"
	"testing"

	"github.com/groupe-jds/doku-seal/internal/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientFindOwned(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRecipientRepository(db)
	envelopes := NewEnvelopeRepository(db)
	ctx := context.Background()

	env := createEnvelope(t, db, alice, "NDA", withRecipient("a@x.com", "A", nil))
	id := env.Recipients[0].ID

	found, err := repo.FindOwned(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", found.Email)
	assert.Equal(t, env.ID, found.EnvelopeID)

	_, err = repo.FindOwned(ctx, bob, id)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, envelopes.SoftDelete(ctx, alice, env.ID))
	_, err = repo.FindOwned(ctx, alice, id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecipientFindInEnvelope(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRecipientRepository(db)
	ctx := context.Background()

	first := createEnvelope(t, db, alice, "First", withRecipient("a@x.com", "A", nil))
	second := createEnvelope(t, db, alice, "Second", withRecipient("b@x.com", "B", nil))

	_, err := repo.FindInEnvelope(ctx, first.ID, first.Recipients[0].ID)
	require.NoError(t, err)

	_, err = repo.FindInEnvelope(ctx, first.ID, second.Recipients[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecipientListing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRecipientRepository(db)
	ctx := context.Background()

	env := createEnvelope(t, db, alice, "Sequential",
		withRecipient("b@x.com", "B", intPtr(2)),
		withRecipient("a@x.com", "A", intPtr(1)),
		withRecipient("c@x.com", "C", intPtr(3)),
	)

	count, err := repo.CountByEnvelope(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.ListByEnvelope(ctx, env.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a@x.com", all[0].Email)
	assert.Equal(t, "c@x.com", all[2].Email)

	byEmail := map[string]string{}
	for _, r := range env.Recipients {
		byEmail[r.Email] = r.ID
	}
	some, err := repo.ListByIDs(ctx, env.ID, []string{byEmail["c@x.com"], byEmail["b@x.com"], "unknown"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "b@x.com", some[0].Email)
	assert.Equal(t, "c@x.com", some[1].Email)
}

func TestRecipientUpdateAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRecipientRepository(db)
	ctx := context.Background()

	env := createEnvelope(t, db, alice, "NDA", withRecipient("a@x.com", "A", nil))
	id := env.Recipients[0].ID

	require.NoError(t, repo.Update(ctx, id, map[string]interface{}{"name": "Alice"}))
	found, err := repo.FindInEnvelope(ctx, env.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Name)

	assert.True(t, errors.Is(repo.Update(ctx, "missing", map[string]interface{}{"name": "x"}), ErrNotFound))

	require.NoError(t, repo.Delete(ctx, id))
	assert.True(t, errors.Is(repo.Delete(ctx, id), ErrNotFound))
}
