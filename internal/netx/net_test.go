package netx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "plain", base: "https://home.example.com", want: "https://home.example.com/guest-mode/login?token=a.b-c_d"},
		{name: "trailing slash", base: "https://home.example.com/", want: "https://home.example.com/guest-mode/login?token=a.b-c_d"},
		{name: "sub path", base: "http://10.0.0.2:8123/ha", want: "http://10.0.0.2:8123/ha/guest-mode/login?token=a.b-c_d"},
		{name: "no scheme", base: "home.example.com", wantErr: true},
		{name: "garbage", base: "://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoginURL(tt.base, "a.b-c_d")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoginURL_EscapesToken(t *testing.T) {
	got, err := LoginURL("https://h", "a+b/c=")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "a+b/c=", u.Query().Get("token"))
}

func TestProbeLogin(t *testing.T) {
	t.Run("guestkeeper answers 400", func(t *testing.T) {
		var gotPath, gotQuery string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
			http.Error(w, "missing token", http.StatusBadRequest)
		}))
		defer ts.Close()

		require.NoError(t, ProbeLogin(context.Background(), ts.Client(), ts.URL+"/"))
		assert.Equal(t, "/guest-mode/login", gotPath)
		assert.Empty(t, gotQuery)
	})

	t.Run("other status is an error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		err := ProbeLogin(context.Background(), ts.Client(), ts.URL)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "404"))
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := ProbeLogin(context.Background(), http.DefaultClient, ts.URL)
		require.Error(t, err)
		var urlErr *url.Error
		assert.True(t, errors.As(err, &urlErr))
	})
}
