package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemovalPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RemovalPolicy
		wantErr bool
	}{
		{"", RemovalReject, false},
		{"reject", RemovalReject, false},
		{" Cascade ", RemovalCascade, false},
		{"ignore", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRemovalPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddRecipient(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sequential := f.createNDA(t, models.SigningOrderSequential)
	added, err := f.recipients.Add(ctx, alice, sequential.ID, RecipientInput{Email: " c@x.com ", Name: "C", Role: models.RoleApprover})
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", added.Email)
	assert.Equal(t, models.RoleApprover, added.Role)
	require.NotNil(t, added.SigningOrder)
	assert.Equal(t, 3, *added.SigningOrder)

	parallel := f.createNDA(t, "")
	added, err = f.recipients.Add(ctx, alice, parallel.ID, RecipientInput{Email: "c@x.com", Name: "C"})
	require.NoError(t, err)
	assert.Nil(t, added.SigningOrder)
	assert.Equal(t, models.RoleSigner, added.Role)

	_, err = f.recipients.Add(ctx, bob, parallel.ID, RecipientInput{Email: "d@x.com"})
	assertKind(t, err, ErrNotFound, "Envelope not found")

	_, err = f.recipients.Add(ctx, alice, parallel.ID, RecipientInput{Email: "invalid"})
	assertKind(t, err, ErrValidation, "Invalid recipient email")
}

func TestUpdateRecipient(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	env := f.createNDA(t, "")
	id := env.Recipients[0].ID

	name := "Alice"
	role := models.RoleViewer
	updated, err := f.recipients.Update(ctx, alice, id, UpdateRecipientInput{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, models.RoleViewer, updated.Role)
	assert.Equal(t, "a@x.com", updated.Email)

	bad := models.Role("OWNER")
	_, err = f.recipients.Update(ctx, alice, id, UpdateRecipientInput{Role: &bad})
	assertKind(t, err, ErrValidation, "Invalid recipient role")

	_, err = f.recipients.Update(ctx, bob, id, UpdateRecipientInput{Name: &name})
	assertKind(t, err, ErrNotFound, "Recipient not found")

	_, err = f.recipients.Update(ctx, alice, uuid.NewString(), UpdateRecipientInput{Name: &name})
	assertKind(t, err, ErrNotFound, "Recipient not found")
}

func TestUpdateRecipientRejectsBlankName(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	env := f.createNDA(t, "")
	id := env.Recipients[0].ID

	blank := "   "
	_, err := f.recipients.Update(ctx, alice, id, UpdateRecipientInput{Name: &blank})
	assertKind(t, err, ErrValidation, "Recipient name must not be blank")

	_, err = f.recipients.Update(ctx, bob, id, UpdateRecipientInput{Name: &blank})
	assertKind(t, err, ErrNotFound, "Recipient not found")

	stored, err := f.repos.Recipients.FindInEnvelope(ctx, env.ID, id)
	require.NoError(t, err)
	assert.Equal(t, env.Recipients[0].Name, stored.Name)

	f.addSignature(t, env, id)
	_, err = f.envelopes.Send(ctx, alice, env.ID)
	require.NoError(t, err)

	_, err = f.recipients.Update(ctx, alice, id, UpdateRecipientInput{Name: &blank})
	assertKind(t, err, ErrForbidden, "Cannot update recipient of envelope that has been sent")
}

func TestRemoveRecipientRejectsAssignedFields(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	env := f.createNDA(t, "")
	a, b := env.Recipients[0].ID, env.Recipients[1].ID
	f.addSignature(t, env, a)

	assertKind(t, f.recipients.Remove(ctx, alice, a), ErrForbidden, "Recipient has fields assigned")

	require.NoError(t, f.recipients.Remove(ctx, alice, b))
	assertKind(t, f.recipients.Remove(ctx, alice, b), ErrNotFound, "Recipient not found")

	stored, err := f.envelopes.Get(ctx, alice, env.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Recipients, 1)
	assert.Len(t, stored.Fields, 1)
}

func TestRemoveRecipientCascades(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.recipients = NewRecipientService(f.repos, RemovalCascade, f.metrics, f.envelopes.tracer)
	ctx := context.Background()
	env := f.createNDA(t, "")
	a := env.Recipients[0].ID
	f.addSignature(t, env, a)
	f.addSignature(t, env, a)

	require.NoError(t, f.recipients.Remove(ctx, alice, a))

	stored, err := f.envelopes.Get(ctx, alice, env.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Recipients, 1)
	assert.Empty(t, stored.Fields)
}

func TestRecipientChangesBlockedAfterSend(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	env := f.createNDA(t, "")
	f.addSignature(t, env, env.Recipients[0].ID)
	_, err := f.envelopes.Send(ctx, alice, env.ID)
	require.NoError(t, err)

	name := "Late"
	_, err = f.recipients.Update(ctx, alice, env.Recipients[1].ID, UpdateRecipientInput{Name: &name})
	assertKind(t, err, ErrForbidden, "Cannot update recipient of envelope that has been sent")

	err = f.recipients.Remove(ctx, alice, env.Recipients[1].ID)
	assertKind(t, err, ErrForbidden, "Cannot remove recipient from envelope that has been sent")
}

func TestRecipientHiddenAfterEnvelopeRemoved(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	env := f.createNDA(t, "")
	require.NoError(t, f.envelopes.Remove(ctx, alice, env.ID))

	assertKind(t, f.recipients.Remove(ctx, alice, env.Recipients[0].ID), ErrNotFound, "Recipient not found")
}
