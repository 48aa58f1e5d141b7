package dek_test

import (
	"context"
	"strings"
	"testing"

	"github.com/chirino/memstore/internal/config"
	"github.com/chirino/memstore/internal/registry/encrypt"
	"github.com/stretchr/testify/require"
)

// 32-byte AES-256 keys encoded as hex.
const testKeyHex = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
const legacyKeyHex = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2"

func makeCfg(keys ...string) *config.Config {
	return &config.Config{EncryptionKey: strings.Join(keys, ",")}
}

func newProvider(t *testing.T, keys ...string) encrypt.Provider {
	t.Helper()
	plugin, err := encrypt.Select("dek")
	require.NoError(t, err)
	p, err := plugin(context.Background(), makeCfg(keys...))
	require.NoError(t, err)
	return p
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	p := newProvider(t, testKeyHex)
	plaintext := []byte("hello, memstore encryption")

	ct, err := p.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	got, err := p.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

// TestDecryptWithKeyRotation verifies that a ciphertext encrypted with the
// legacy key can still be decrypted once that key has been demoted to a
// legacy (decryption-only) entry behind a new primary key.
func TestDecryptWithKeyRotation(t *testing.T) {
	legacyProvider := newProvider(t, legacyKeyHex)
	plaintext := []byte("key rotation test")
	ct, err := legacyProvider.Encrypt(plaintext)
	require.NoError(t, err)

	rotatedProvider := newProvider(t, testKeyHex, legacyKeyHex)
	got, err := rotatedProvider.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptRejectsUnknownKey(t *testing.T) {
	p := newProvider(t, testKeyHex)
	ct, err := p.Encrypt([]byte("probe"))
	require.NoError(t, err)

	other := newProvider(t, legacyKeyHex)
	_, err = other.Decrypt(ct)
	require.Error(t, err)
}

func TestLoaderRequiresKey(t *testing.T) {
	plugin, err := encrypt.Select("dek")
	require.NoError(t, err)
	_, err = plugin(context.Background(), &config.Config{})
	require.Error(t, err)
}
