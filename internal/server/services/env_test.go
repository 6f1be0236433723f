package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/guesttokens"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

type staticKeys struct{ key *rsa.PrivateKey }

func (k staticKeys) PrivateKey() *rsa.PrivateKey { return k.key }

func (k staticKeys) PublicKey() *rsa.PublicKey {
	if k.key == nil {
		return nil
	}
	return &k.key.PublicKey
}

func loadedKeys(t *testing.T) staticKeys {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return staticKeys{key: testKey}
}

// fakeProvider records every call. Credentials are numbered in creation order.
type fakeProvider struct {
	mu          sync.Mutex
	users       map[string]*models.User
	creates     int
	lastTTL     time.Duration
	lastLabel   string
	revoked     []string
	createDelay time.Duration
	block       bool
	createErr   error
	revokeErr   error
}

func newFakeProvider(userIDs ...string) *fakeProvider {
	f := &fakeProvider{users: map[string]*models.User{}}
	for _, id := range userIDs {
		f.users[id] = &models.User{ID: id, UserName: id, Name: id, IsActive: true}
	}
	return f
}

func (f *fakeProvider) CreateSessionCredential(ctx context.Context, userID, label string, ttl time.Duration) (models.SessionCredential, error) {
	f.mu.Lock()
	f.creates++
	n := f.creates
	f.lastTTL = ttl
	f.lastLabel = label
	block, delay, err := f.block, f.createDelay, f.createErr
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return models.SessionCredential{}, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.SessionCredential{}, ctx.Err()
		}
	}
	if err != nil {
		return models.SessionCredential{}, err
	}
	return models.SessionCredential{Ref: fmt.Sprintf("ref-%d", n), BearerToken: fmt.Sprintf("bearer-%d", n)}, nil
}

func (f *fakeProvider) RevokeSessionCredential(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, ref)
	return f.revokeErr
}

func (f *fakeProvider) ListUsers(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, id := range []string{"alice", "bob", "carol"} {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeProvider) GetUser(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeProvider) removeUser(id string) {
	f.mu.Lock()
	delete(f.users, id)
	f.mu.Unlock()
}

func (f *fakeProvider) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeProvider) revokedRefs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

type testEnv struct {
	db       *sql.DB
	rm       *repomanager.SQLRepositoryManager
	provider *fakeProvider
	clock    *clockx.Fake
	cfg      *config.Config
	issuer   *Issuer
	redeemer *Redeemer
	sweeper  *Sweeper
	admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, rm, err := repomanager.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "guest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, rm.RunMigrations(ctx, db))

	cfg := &config.Config{SignatureGrace: time.Hour, UpstreamTimeout: 2 * time.Second}
	env := &testEnv{
		db:       db,
		rm:       rm,
		provider: newFakeProvider("alice", "bob"),
		clock:    clockx.NewFake(t0),
		cfg:      cfg,
	}
	env.rebuild(loadedKeys(t))
	return env
}

func (e *testEnv) rebuild(keys KeySource) {
	log := logging.Discard()
	e.issuer = NewIssuer(e.db, e.rm, keys, e.provider, e.clock, e.cfg, log)
	e.redeemer = NewRedeemer(e.db, e.rm, keys, e.provider, e.clock, e.cfg, log)
	e.sweeper = NewSweeper(e.db, e.rm, e.provider, e.clock, e.cfg, log)
	e.admin = NewAdminService(e.db, e.rm, e.provider, e.issuer, e.sweeper, e.clock, e.cfg, log)
}

func (e *testEnv) record(t *testing.T, signed string) *models.GuestToken {
	t.Helper()
	rec, err := e.rm.GuestTokens(e.db).GetBySignedToken(context.Background(), signed)
	require.NoError(t, err)
	return rec
}

// hookedTokens runs a hook once, after the wrapped read has hit the
// database and before its result is returned, to interleave a concurrent
// writer at that exact point.
type hookedTokens struct {
	guesttokens.Repository
	afterGet  func()
	afterList func()
	getOnce   sync.Once
	listOnce  sync.Once
}

func (h *hookedTokens) GetByID(ctx context.Context, id int64) (*models.GuestToken, error) {
	t, err := h.Repository.GetByID(ctx, id)
	if h.afterGet != nil {
		h.getOnce.Do(h.afterGet)
	}
	return t, err
}

func (h *hookedTokens) ListAll(ctx context.Context) ([]*models.GuestToken, error) {
	all, err := h.Repository.ListAll(ctx)
	if h.afterList != nil {
		h.listOnce.Do(h.afterList)
	}
	return all, err
}

type hookedManager struct {
	*repomanager.SQLRepositoryManager
	tokens *hookedTokens
}

func (m *hookedManager) GuestTokens(db dbx.DBTX) guesttokens.Repository {
	m.tokens.Repository = m.SQLRepositoryManager.GuestTokens(db)
	return m.tokens
}
