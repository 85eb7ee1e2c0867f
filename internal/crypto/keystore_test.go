package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyHex(t *testing.T) string {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(ethcrypto.FromECDSA(key))
}

func TestSealOpenRoundTrip(t *testing.T) {
	keyHex := testKeyHex(t)

	sealed, err := SealKey(keyHex, "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), keyHex)

	opened, err := OpenKey(sealed, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, keyHex, opened)
}

func TestSealAcceptsPrefixedKey(t *testing.T) {
	keyHex := testKeyHex(t)

	sealed, err := SealKey("0x"+keyHex, "pw")
	require.NoError(t, err)
	opened, err := OpenKey(sealed, "pw")
	require.NoError(t, err)
	assert.Equal(t, keyHex, opened)
}

func TestOpenKeyWrongPassword(t *testing.T) {
	sealed, err := SealKey(testKeyHex(t), "correct")
	require.NoError(t, err)

	_, err = OpenKey(sealed, "incorrect")
	assert.Error(t, err)
}

func TestSealKeyValidation(t *testing.T) {
	keyHex := testKeyHex(t)

	_, err := SealKey(keyHex, "")
	assert.Error(t, err, "empty password")
	_, err = SealKey("zzzz", "pw")
	assert.Error(t, err, "non-hex key")
	_, err = SealKey("abcd", "pw")
	assert.Error(t, err, "short key")
}

func TestOpenKeyRejectsUnknownVersion(t *testing.T) {
	sealed, err := SealKey(testKeyHex(t), "pw")
	require.NoError(t, err)
	tampered := strings.Replace(string(sealed), `"version": 1`, `"version": 99`, 1)

	_, err = OpenKey([]byte(tampered), "pw")
	assert.ErrorContains(t, err, "unsupported version")
}

func TestLoadKeyFile(t *testing.T) {
	keyHex := testKeyHex(t)
	sealed, err := SealKey(keyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	opened, err := LoadKeyFile(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, keyHex, opened)

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing.json"), "pw")
	assert.Error(t, err)
}

func TestLoadKeyFileEnvFallback(t *testing.T) {
	keyHex := testKeyHex(t)
	t.Setenv("MARKET_PRIVATE_KEY", "0x"+keyHex)

	opened, err := LoadKeyFile("", "")
	require.NoError(t, err)
	assert.Equal(t, keyHex, opened)

	t.Setenv("MARKET_PRIVATE_KEY", "")
	_, err = LoadKeyFile("", "")
	assert.Error(t, err)
}
