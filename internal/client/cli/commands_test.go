package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/adminapi"
	"github.com/dmitrijs2005/guestkeeper/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	users   []adminapi.UserTokens
	created []any
	deleted []int64
	err     error
	closed  bool
}

func (f *fakeClient) ListUsersAndTokens(context.Context) ([]adminapi.UserTokens, error) {
	return f.users, f.err
}

func (f *fakeClient) CreateToken(_ context.Context, userID, name string, offset, ttl int) (string, error) {
	f.created = []any{userID, name, offset, ttl}
	return "x.y.z", f.err
}

func (f *fakeClient) DeleteToken(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeClient) CreateUser(_ context.Context, userName, name string) (adminapi.User, error) {
	return adminapi.User{ID: "id-1", UserName: userName, Name: name}, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func testApp(fc *fakeClient, input, baseURL string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{PublicBaseURL: baseURL, RequestTimeout: time.Second}
	return newApp(cfg, fc, strings.NewReader(input), out), out
}

func TestCreate_PrintsLoginLink(t *testing.T) {
	fc := &fakeClient{}
	app, out := testApp(fc, "u1\nguest1\n\n90\n", "https://home.example.com")

	require.NoError(t, app.Create(context.Background()))
	assert.Equal(t, []any{"u1", "guest1", 0, 90}, fc.created)
	assert.Contains(t, out.String(), "Login link: https://home.example.com/guest-mode/login?token=x.y.z")
}

func TestCreate_BadNumber(t *testing.T) {
	fc := &fakeClient{}
	app, _ := testApp(fc, "u1\nguest1\nsoon\n", "https://h")

	assert.Error(t, app.Create(context.Background()))
	assert.Nil(t, fc.created)
}

func TestList(t *testing.T) {
	start := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	fc := &fakeClient{users: []adminapi.UserTokens{{
		User:   adminapi.User{ID: "u1", UserName: "alice", Name: "Alice"},
		Tokens: []adminapi.Token{{ID: 5, Name: "guest1", StartAt: start, EndAt: start.Add(time.Hour), Remaining: 1800, IsUsed: true}},
	}}}
	app, out := testApp(fc, "", "https://h")

	require.NoError(t, app.List(context.Background()))
	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "#5")
	assert.Contains(t, out.String(), "30m0s left")
	assert.Contains(t, out.String(), "used")
}

func TestDelete(t *testing.T) {
	fc := &fakeClient{}
	app, out := testApp(fc, "12\nnope\n", "https://h")

	require.NoError(t, app.Delete(context.Background()))
	assert.Equal(t, []int64{12}, fc.deleted)
	assert.Contains(t, out.String(), "Token #12 deleted")

	assert.Error(t, app.Delete(context.Background()))
	assert.Len(t, fc.deleted, 1)
}

func TestAddUser(t *testing.T) {
	fc := &fakeClient{}
	app, out := testApp(fc, "dave\nDave\n\n", "https://h")

	require.NoError(t, app.AddUser(context.Background()))
	assert.Contains(t, out.String(), "User dave created, id id-1")

	assert.EqualError(t, app.AddUser(context.Background()), "username is required")
}

func TestPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing token", http.StatusBadRequest)
	}))
	defer ts.Close()

	app, out := testApp(&fakeClient{}, "", ts.URL)
	require.NoError(t, app.Ping(context.Background()))
	assert.Contains(t, out.String(), "Login endpoint OK")
}

func TestRun_PromptsShareReader(t *testing.T) {
	fc := &fakeClient{err: nil}
	app, out := testApp(fc, "create\nu1\nguest1\n5\n30\nexit\n", "https://h")

	app.Run(context.Background())

	assert.Equal(t, []any{"u1", "guest1", 5, 30}, fc.created)
	assert.Contains(t, out.String(), "Login link:")
	assert.True(t, fc.closed)

	fc = &fakeClient{err: errors.New("server unavailable")}
	app, out = testApp(fc, "list\n", "https://h")
	app.Run(context.Background())
	assert.Contains(t, out.String(), "Error: server unavailable")
}
