// Package keys owns the RSA keypair guest tokens are signed with. The pair
// is loaded from a Storage backend at startup, or generated and persisted
// there when nothing is stored yet.
package keys

import (
	"context"
	"errors"
)

// ErrKeyExists is returned by Storage.Save when another writer stored a
// keypair first. The caller should load and use that one.
var ErrKeyExists = errors.New("keypair already stored")

// Storage persists the PEM encoded halves of the keypair.
type Storage interface {
	// Load returns nil slices when the corresponding half is not stored.
	Load(ctx context.Context) (private, public []byte, err error)

	// Save stores both halves without overwriting an existing private key.
	Save(ctx context.Context, private, public []byte) error
}
