package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/keys"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/guestkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	*identity.LocalProvider
	revokes atomic.Int32
}

func (p *countingProvider) RevokeSessionCredential(ctx context.Context, ref string) error {
	p.revokes.Add(1)
	return p.LocalProvider.RevokeSessionCredential(ctx, ref)
}

func sessionRequest(t *testing.T, h http.Handler, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, SessionPath, nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuestLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := logging.Discard()
	clock := clockx.NewFake(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))

	db, rm, err := repomanager.Open(ctx, "sqlite://"+filepath.Join(dir, "guest.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, rm.RunMigrations(ctx, db))

	km := keys.NewManager(keys.NewFileStorage(filepath.Join(dir, "keys")), keys.MinBits, "", log)
	require.NoError(t, km.LoadOrGenerate(ctx))

	provider := &countingProvider{LocalProvider: identity.NewLocalProvider(db, rm, []byte("session-secret"), clock, log)}
	alice, err := provider.CreateUser(ctx, "alice", "Alice", false)
	require.NoError(t, err)

	cfg := &config.Config{SignatureGrace: 24 * time.Hour, UpstreamTimeout: 2 * time.Second}
	issuer := services.NewIssuer(db, rm, km, provider, clock, cfg, log)
	redeemer := services.NewRedeemer(db, rm, km, provider, clock, cfg, log)
	sweeper := services.NewSweeper(db, rm, provider, clock, cfg, log)
	admin := services.NewAdminService(db, rm, provider, issuer, sweeper, clock, cfg, log)

	r := NewRouter(NewHandler(redeemer, log), provider)

	signed, err := admin.CreateToken(ctx, alice.ID, "guest1", 0, 60)
	require.NoError(t, err)

	first := get(t, r, LoginPath+"?token="+signed)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	rec, err := rm.GuestTokens(db).GetBySignedToken(ctx, signed)
	require.NoError(t, err)
	require.True(t, rec.IsUsed())
	assert.Contains(t, first.Body.String(), `"`+rec.SessionBearerToken+`"`)

	clock.Advance(10 * time.Minute)
	second := get(t, r, LoginPath+"?token="+signed)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String(), "same bearer on replay")

	assert.Equal(t, http.StatusOK, sessionRequest(t, r, rec.SessionBearerToken).Code)

	clock.Advance(51 * time.Minute)
	late := get(t, r, LoginPath+"?token="+signed)
	assert.Equal(t, http.StatusForbidden, late.Code)

	list, err := admin.ListUsersAndTokens(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alice.ID, list[0].User.ID)
	assert.Empty(t, list[0].Tokens)
	assert.Equal(t, int32(1), provider.revokes.Load())

	_, err = rm.Sessions(db).Find(ctx, rec.SessionCredentialRef)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, http.StatusUnauthorized, sessionRequest(t, r, rec.SessionBearerToken).Code)

	gone := get(t, r, LoginPath+"?token="+signed)
	assert.Equal(t, http.StatusForbidden, gone.Code, "window check precedes lookup")

	_, err = admin.ListUsersAndTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.revokes.Load())
}

func TestSession_MissingBearer(t *testing.T) {
	r := NewRouter(NewHandler(redeemFunc(nil), logging.Discard()), identity.NewLocalProvider(nil, nil, nil, clockx.Real(), logging.Discard()))

	req := httptest.NewRequest(http.MethodGet, SessionPath, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", rec.Body.String())
}

func TestSession_NotServedWithoutVerifier(t *testing.T) {
	r := NewRouter(NewHandler(redeemFunc(nil), logging.Discard()), nil)
	assert.Equal(t, http.StatusNotFound, sessionRequest(t, r, "x").Code)
}
