package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue_StoresRecordAndSignsWindow(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(t0.Add(750 * time.Millisecond))

	signed, err := env.issuer.Issue(context.Background(), "alice", "guest1", 5, 60)
	require.NoError(t, err)

	rec := env.record(t, signed)
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, "guest1", rec.Name)
	assert.True(t, rec.StartAt.Equal(t0.Add(5*time.Minute)), "start_at %v", rec.StartAt)
	assert.True(t, rec.EndAt.Equal(t0.Add(60*time.Minute)), "end_at %v", rec.EndAt)
	assert.Equal(t, models.StateIssued, rec.State())
	assert.Empty(t, rec.SessionBearerToken)

	w, err := auth.ParseGuestToken(signed, &testKey.PublicKey, env.clock.Now())
	require.NoError(t, err)
	assert.True(t, w.StartAt.Equal(rec.StartAt))
	assert.True(t, w.EndAt.Equal(rec.EndAt))
}

func TestIssue_WindowValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		startOffset int
		ttl         int
		wantErr     error
	}{
		{name: "zero ttl", startOffset: 0, ttl: 0, wantErr: common.ErrInvalidWindow},
		{name: "negative ttl", startOffset: 0, ttl: -5, wantErr: common.ErrInvalidWindow},
		{name: "negative offset", startOffset: -1, ttl: 10, wantErr: common.ErrInvalidWindow},
		{name: "ttl equals offset", startOffset: 30, ttl: 30, wantErr: common.ErrInvalidWindow},
		{name: "ttl below offset", startOffset: 30, ttl: 10, wantErr: common.ErrInvalidWindow},
		{name: "ttl overflows duration", startOffset: 0, ttl: 153722868, wantErr: common.ErrInvalidWindow},
		{name: "ttl above maximum", startOffset: 0, ttl: MaxTTLMinutes + 1, wantErr: common.ErrInvalidWindow},
		{name: "offset and ttl near int64 limit", startOffset: math.MaxInt - 1, ttl: math.MaxInt, wantErr: common.ErrInvalidWindow},
		{name: "maximum ttl", startOffset: 0, ttl: MaxTTLMinutes},
		{name: "immediate", startOffset: 0, ttl: 1},
		{name: "delayed", startOffset: 59, ttl: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := env.issuer.Issue(context.Background(), "alice", "g", tt.startOffset, tt.ttl)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, signed)
				return
			}
			require.NoError(t, err)
			rec := env.record(t, signed)
			assert.True(t, rec.StartAt.Before(rec.EndAt))
		})
	}

	all, err := env.rm.GuestTokens(env.db).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2, "rejected windows must not be stored")
}

func TestIssue_RequiresNameAndKnownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.issuer.Issue(context.Background(), "alice", "  ", 0, 10)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = env.issuer.Issue(context.Background(), "ghost", "guest1", 0, 10)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestIssue_KeyUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.rebuild(staticKeys{})

	_, err := env.issuer.Issue(context.Background(), "alice", "guest1", 0, 10)
	assert.ErrorIs(t, err, common.ErrKeyUnavailable)
}

func TestIssue_StorageFailureReturnsNoToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO guest_tokens`).WillReturnError(errors.New("disk full"))

	env := newTestEnv(t)
	issuer := NewIssuer(db, repomanager.NewSQLRepositoryManager(dbx.Postgres), loadedKeys(t), env.provider, env.clock, env.cfg, logging.Discard())

	signed, err := issuer.Issue(context.Background(), "alice", "guest1", 0, 10)
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, signed)
	require.NoError(t, mock.ExpectationsWereMet())
}
