package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
)

// MinBits is the smallest accepted RSA modulus.
const MinBits = 2048

// generateKey is a seam for tests.
var generateKey = rsa.GenerateKey

// Manager holds the process-wide signing keypair. It is empty until
// LoadOrGenerate succeeds and immutable afterwards.
type Manager struct {
	storage    Storage
	bits       int
	passphrase []byte
	logger     logging.Logger

	mu      sync.RWMutex
	private *rsa.PrivateKey
}

// NewManager returns a Manager over storage. A non-empty passphrase seals
// newly generated private keys and is required to open sealed ones.
func NewManager(storage Storage, bits int, passphrase string, logger logging.Logger) *Manager {
	if bits < MinBits {
		bits = MinBits
	}
	return &Manager{
		storage:    storage,
		bits:       bits,
		passphrase: []byte(passphrase),
		logger:     logger.With("module", "keys"),
	}
}

// LoadOrGenerate loads the stored keypair, or generates and stores a new one
// when no private key is stored. It fails with common.ErrKeyStorage when the
// storage cannot be read or written and common.ErrKeyFormat when the stored
// material is unusable.
func (m *Manager) LoadOrGenerate(ctx context.Context) error {
	key, err := m.load(ctx)
	if err != nil {
		return err
	}
	if key == nil {
		if key, err = m.generate(ctx); err != nil {
			return err
		}
	} else {
		m.logger.Info(ctx, "loaded guest signing keypair", "bits", key.N.BitLen())
	}

	m.mu.Lock()
	m.private = key
	m.mu.Unlock()
	return nil
}

func (m *Manager) load(ctx context.Context) (*rsa.PrivateKey, error) {
	privPEM, pubPEM, err := m.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
	}
	if len(privPEM) == 0 {
		if len(pubPEM) != 0 {
			m.logger.Warn(ctx, "public key stored without private key, regenerating")
		}
		return nil, nil
	}

	key, err := decodePrivate(privPEM, m.passphrase)
	if err != nil {
		return nil, err
	}

	// A missing public half means a concurrent first start is still writing it.
	if len(pubPEM) != 0 {
		pub, err := decodePublic(pubPEM)
		if err != nil {
			return nil, err
		}
		if !pub.Equal(&key.PublicKey) {
			return nil, fmt.Errorf("%w: public key does not match private key", common.ErrKeyFormat)
		}
	}
	return key, nil
}

func (m *Manager) generate(ctx context.Context) (*rsa.PrivateKey, error) {
	key, err := generateKey(rand.Reader, m.bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate rsa key: %w", common.ErrKeyStorage, err)
	}

	privPEM, err := encodePrivate(key, m.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: encode private key: %w", common.ErrKeyStorage, err)
	}
	pubPEM, err := encodePublic(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encode public key: %w", common.ErrKeyStorage, err)
	}

	err = m.storage.Save(ctx, privPEM, pubPEM)
	if errors.Is(err, ErrKeyExists) {
		m.logger.Info(ctx, "keypair stored by another process, loading it")
		stored, err := m.load(ctx)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("%w: keypair missing after concurrent save", common.ErrKeyStorage)
		}
		return stored, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
	}

	m.logger.Info(ctx, "generated guest signing keypair", "bits", m.bits, "sealed", len(m.passphrase) > 0)
	return key, nil
}

// PrivateKey returns nil before LoadOrGenerate succeeded.
func (m *Manager) PrivateKey() *rsa.PrivateKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.private
}

// PublicKey returns nil before LoadOrGenerate succeeded.
func (m *Manager) PublicKey() *rsa.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.private == nil {
		return nil
	}
	return &m.private.PublicKey
}
