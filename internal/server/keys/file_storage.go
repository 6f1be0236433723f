package keys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/guestkeeper/internal/filex"
)

const (
	PrivateKeyFile = "guest_private.pem"
	PublicKeyFile  = "guest_public.pem"
)

// FileStorage keeps the keypair as two PEM files in a directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (s *FileStorage) Load(_ context.Context) ([]byte, []byte, error) {
	private, err := filex.ReadIfExists(filepath.Join(s.dir, PrivateKeyFile))
	if err != nil {
		return nil, nil, err
	}
	public, err := filex.ReadIfExists(filepath.Join(s.dir, PublicKeyFile))
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}

// Save publishes the private key first. Whoever publishes it owns the pair,
// so a stale public file left by an interrupted run is replaced.
func (s *FileStorage) Save(_ context.Context, private, public []byte) error {
	dir, err := filex.EnsureDir(s.dir)
	if err != nil {
		return err
	}

	err = filex.WriteExclusive(filepath.Join(dir, PrivateKeyFile), private, 0o600)
	if errors.Is(err, filex.ErrExists) {
		return ErrKeyExists
	}
	if err != nil {
		return err
	}

	pubPath := filepath.Join(dir, PublicKeyFile)
	err = filex.WriteExclusive(pubPath, public, 0o644)
	if errors.Is(err, filex.ErrExists) {
		if err := os.WriteFile(pubPath, public, 0o644); err != nil {
			return fmt.Errorf("replace %s: %w", pubPath, err)
		}
		return nil
	}
	return err
}
