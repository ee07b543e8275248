package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medistore/m/internal/domain"
)

func TestUserCreateAndProfile(t *testing.T) {
	ctx := context.Background()
	r := NewUsers(testDB(t))

	user := &domain.User{Name: "Ada", Email: "Ada@Example.com", Password: "hashed"}
	require.NoError(t, r.Create(ctx, user))
	require.NotZero(t, user.ID)

	// Emails are stored lowercased.
	got, err := r.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.False(t, got.Admin)

	// Registration creates an empty medical profile.
	profile, err := r.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Allergies)
	assert.Empty(t, profile.DateOfBirth)

	profile.DateOfBirth = "1990-04-01"
	profile.Allergies = []string{"penicillin"}
	profile.Conditions = []string{"asthma"}
	require.NoError(t, r.SaveProfile(ctx, profile))

	reloaded, err := r.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "1990-04-01", reloaded.DateOfBirth)
	assert.Equal(t, []string{"penicillin"}, reloaded.Allergies)
	assert.Equal(t, []string{"asthma"}, reloaded.Conditions)
	assert.Equal(t, []string{}, reloaded.Medications)
}

func TestUserNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewUsers(testDB(t))

	_, err := r.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetByID(ctx, 1234)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetProfile(ctx, 1234)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.SaveProfile(ctx, &domain.MedicalProfile{UserID: 1234}), ErrNotFound)
}

func TestDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUsers(testDB(t))

	first := &domain.User{Name: "Ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, r.Create(ctx, first))
	second := &domain.User{Name: "Other", Email: "ADA@example.com", Password: "y"}
	assert.Error(t, r.Create(ctx, second))
}
