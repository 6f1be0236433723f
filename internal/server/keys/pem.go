package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/cryptox"
)

const (
	blockPrivate    = "PRIVATE KEY"
	blockRSAPrivate = "RSA PRIVATE KEY"
	blockSealed     = "SEALED PRIVATE KEY"
	blockPublic     = "PUBLIC KEY"
	headerSalt      = "Salt"
	headerNonce     = "Nonce"
)

// encodePrivate returns the PKCS#8 PEM of key, sealed with passphrase when
// one is given.
func encodePrivate(key *rsa.PrivateKey, passphrase []byte) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(der)

	if len(passphrase) == 0 {
		return pem.EncodeToMemory(&pem.Block{Type: blockPrivate, Bytes: der}), nil
	}

	sealed, err := cryptox.Seal(der, passphrase)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type: blockSealed,
		Headers: map[string]string{
			headerSalt:  base64.StdEncoding.EncodeToString(sealed.Salt),
			headerNonce: base64.StdEncoding.EncodeToString(sealed.Nonce),
		},
		Bytes: sealed.Ciphertext,
	}), nil
}

func decodePrivate(data, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not PEM", common.ErrKeyFormat)
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case blockRSAPrivate:
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrKeyFormat, err)
		}
		key = k
	case blockPrivate:
		k, err := parsePKCS8(block.Bytes)
		if err != nil {
			return nil, err
		}
		key = k
	case blockSealed:
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: private key is sealed and no passphrase is configured", common.ErrKeyFormat)
		}
		der, err := unseal(block, passphrase)
		if err != nil {
			return nil, err
		}
		defer common.WipeByteArray(der)
		k, err := parsePKCS8(der)
		if err != nil {
			return nil, err
		}
		key = k
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", common.ErrKeyFormat, block.Type)
	}

	if key.N.BitLen() < MinBits {
		return nil, fmt.Errorf("%w: rsa key has %d bits, need at least %d", common.ErrKeyFormat, key.N.BitLen(), MinBits)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyFormat, err)
	}
	return key, nil
}

func parsePKCS8(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyFormat, err)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, not rsa", common.ErrKeyFormat, k)
	}
	return rk, nil
}

func unseal(block *pem.Block, passphrase []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(block.Headers[headerSalt])
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt header: %w", common.ErrKeyFormat, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(block.Headers[headerNonce])
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce header: %w", common.ErrKeyFormat, err)
	}

	der, err := cryptox.Open(&cryptox.Sealed{Salt: salt, Nonce: nonce, Ciphertext: block.Bytes}, passphrase)
	if errors.Is(err, cryptox.ErrDecrypt) {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyFormat, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
	}
	return der, nil
}

func encodePublic(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: blockPublic, Bytes: der}), nil
}

func decodePublic(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != blockPublic {
		return nil, fmt.Errorf("%w: public key is not a PUBLIC KEY PEM block", common.ErrKeyFormat)
	}
	k, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyFormat, err)
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, not rsa", common.ErrKeyFormat, k)
	}
	return rk, nil
}
