// Package cryptox seals secrets at rest with a passphrase: the key is
// derived with argon2id and the payload encrypted with AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

// ErrDecrypt is returned when a sealed payload cannot be opened, either
// because the passphrase is wrong or the data was altered.
var ErrDecrypt = errors.New("cannot decrypt sealed data")

// Sealed is the at-rest envelope of an encrypted payload.
type Sealed struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// DeriveKey stretches a passphrase into a 32-byte AES key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// Seal encrypts plaintext under a key derived from passphrase with a fresh
// random salt and nonce.
func Seal(plaintext, passphrase []byte) (*Sealed, error) {
	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aead.NonceSize())

	return &Sealed{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Open reverses Seal.
func Open(s *Sealed, passphrase []byte) ([]byte, error) {
	if s == nil || len(s.Salt) == 0 {
		return nil, ErrDecrypt
	}
	key := DeriveKey(passphrase, s.Salt)
	defer common.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(s.Nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := aead.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
