// Package services contains server-side business logic: issuing guest
// tokens, redeeming them for session credentials, sweeping expired ones and
// the admin commands built on top of those.
package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
)

// KeySource hands out the guest signing keypair. *keys.Manager satisfies it;
// both methods return nil until the keypair is loaded.
type KeySource interface {
	PrivateKey() *rsa.PrivateKey
	PublicKey() *rsa.PublicKey
}

// callUpstream runs fn with a deadline of timeout. Running out of time is
// reported as common.ErrUpstreamTimeout.
func callUpstream(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %w", common.ErrUpstreamTimeout, err)
	}
	return err
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStorage, err)
}
