package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/store/memory"
)

func testHasher() *password.Hasher {
	return password.NewHasher(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, false)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	h := testHasher()
	want := UserSpec{
		Username: "student", Email: "student@gmail.com", FirstName: "Ivan", LastName: "Petrov",
		Password: "CorrectHorse1Battery", Role: core.RoleStudent, TwoFactor: true,
	}

	created, err := EnsureUser(ctx, repo, h, want)
	require.NoError(t, err)
	require.True(t, created)

	want.Password = "Another-Password-99"
	created, err = EnsureUser(ctx, repo, h, want)
	require.NoError(t, err)
	require.False(t, created)

	u, err := repo.GetUserByUsername(ctx, "student")
	require.NoError(t, err)
	require.True(t, u.RequiresTwoFactor())
	require.True(t, h.Verify("CorrectHorse1Battery", u.PasswordHash, u.PasswordSalt))
}

func TestEnsureUser_UnknownRole(t *testing.T) {
	_, err := EnsureUser(context.Background(), memory.New(), testHasher(),
		UserSpec{Username: "x", Password: "p", Role: "Janitor"})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestEnsureUser_RefusesGuestUsername(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	_, err := EnsureUser(ctx, repo, testHasher(), UserSpec{
		Username: "Guest", Email: "g@gmail.com", FirstName: "G", LastName: "G",
		Password: "CorrectHorse1Battery", Role: core.RoleStudent,
	}, "guest")
	require.ErrorIs(t, err, ErrReservedUsername)

	_, err = repo.GetUserByUsername(ctx, "Guest")
	require.ErrorIs(t, err, core.ErrNotFound)
}
