// Package dek registers the "dek" AES-GCM value encryption provider.
package dek

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/chirino/memstore/internal/config"
	"github.com/chirino/memstore/internal/registry/encrypt"
)

func init() {
	encrypt.Register(encrypt.Plugin{
		Name: "dek",
		Loader: func(_ context.Context, cfg *config.Config) (encrypt.Provider, error) {
			// EncryptionKey is CSV: first entry is primary (used to encrypt new
			// values), remaining entries are legacy decryption-only keys kept
			// around while rotating.
			keys, err := config.DecodeEncryptionKeysCSV(cfg.EncryptionKey)
			if err != nil {
				return nil, fmt.Errorf("dek provider: %w", err)
			}
			if len(keys) == 0 {
				return nil, fmt.Errorf("dek provider: MEMSTORE_ENCRYPTION_KEY is required")
			}
			return &provider{primaryKey: keys[0], legacyKeys: keys[1:]}, nil
		},
	})
}

type provider struct {
	primaryKey []byte
	legacyKeys [][]byte
}

func (p *provider) ID() string { return "dek" }

// Encrypt seals plaintext with AES-GCM under the primary key (AES-128,
// -192 or -256 by key length). The
// 12-byte nonce is prepended to the ciphertext.
func (p *provider) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(p.primaryKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("dek: generating nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt tries the primary key first, then each legacy key in turn, so
// values encrypted under a previous key still open during a rotation.
func (p *provider) Decrypt(ciphertext []byte) ([]byte, error) {
	keys := append([][]byte{p.primaryKey}, p.legacyKeys...)
	var lastErr error
	for _, key := range keys {
		gcm, err := newGCM(key)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ciphertext) < gcm.NonceSize() {
			lastErr = fmt.Errorf("dek: ciphertext shorter than nonce")
			continue
		}
		nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
		plain, err := gcm.Open(nil, nonce, sealed, nil)
		if err == nil {
			return plain, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dek: decryption failed with all keys: %w", lastErr)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("dek: AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

var _ encrypt.Provider = (*provider)(nil)
