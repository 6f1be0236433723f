package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	short := issue(t, env, "alice", 0, 10)
	unused := issue(t, env, "bob", 0, 10)
	long := issue(t, env, "alice", 0, 120)

	_, err := env.redeemer.Redeem(ctx, short)
	require.NoError(t, err)
	_, err = env.redeemer.Redeem(ctx, long)
	require.NoError(t, err)

	// Exactly at endAt the window is still open.
	env.clock.Advance(10 * time.Minute)
	n, err := env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(time.Second)
	n, err = env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	repo := env.rm.GuestTokens(env.db)
	_, err = repo.GetBySignedToken(ctx, short)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetBySignedToken(ctx, unused)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetBySignedToken(ctx, long)
	assert.NoError(t, err)

	assert.Equal(t, []string{"ref-1"}, env.provider.revokedRefs(), "only the redeemed expired token is revoked")

	// Nothing left to do.
	n, err = env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, env.provider.revokedRefs(), 1)
}

func TestSweep_RevokeFailureDoesNotStopSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := issue(t, env, "alice", 0, 10)
	b := issue(t, env, "bob", 0, 10)
	_, err := env.redeemer.Redeem(ctx, a)
	require.NoError(t, err)
	_, err = env.redeemer.Redeem(ctx, b)
	require.NoError(t, err)

	env.provider.revokeErr = errors.New("provider down")
	env.clock.Advance(time.Hour)

	n, err := env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"ref-1", "ref-2"}, env.provider.revokedRefs())
}

func TestSweep_StorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`FROM guest_tokens`).WillReturnError(errors.New("db down"))

	env := newTestEnv(t)
	s := NewSweeper(db, repomanager.NewSQLRepositoryManager(dbx.Postgres), env.provider, env.clock, env.cfg, logging.Discard())

	_, err = s.Sweep(context.Background())
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestSweep_RedeemedAfterListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	signed := issue(t, env, "alice", 0, 60)
	closed := t0.Add(61 * time.Minute)

	// A redemption that started inside the window stores its credential
	// after the sweep has listed the record as unredeemed.
	tokens := &hookedTokens{afterList: func() {
		env.clock.Set(t0.Add(59 * time.Minute))
		_, err := env.redeemer.Redeem(ctx, signed)
		require.NoError(t, err)
		env.clock.Set(closed)
	}}
	rm := &hookedManager{SQLRepositoryManager: env.rm, tokens: tokens}
	sweeper := NewSweeper(env.db, rm, env.provider, env.clock, env.cfg, logging.Discard())

	env.clock.Set(closed)
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ref-1"}, env.provider.revokedRefs())

	_, err = env.rm.GuestTokens(env.db).GetBySignedToken(ctx, signed)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
