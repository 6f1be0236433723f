// Package netx holds the CLI's helpers for the public guest endpoint.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
)

// LoginURL returns the shareable link <base>/guest-mode/login?token=<signed>.
func LoginURL(base, signed string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid base url %q: scheme must be http or https", base)
	}
	u.Path += common.GuestLoginPath
	u.RawQuery = url.Values{common.GuestTokenQueryParam: {signed}}.Encode()
	return u.String(), nil
}

// ProbeLogin sends a tokenless request to the login route. A guestkeeper
// server answers 400 without touching any token.
func ProbeLogin(ctx context.Context, client *http.Client, base string) error {
	endpoint := strings.TrimRight(base, "/") + common.GuestLoginPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected response: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
