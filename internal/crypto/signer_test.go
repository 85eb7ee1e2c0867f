package crypto

import (
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *RequestSigner {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewRequestSigner(hex.EncodeToString(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)
	return signer
}

func TestNewRequestSignerAcceptsPrefixedHex(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	keyHex := hex.EncodeToString(ethcrypto.FromECDSA(key))

	plain, err := NewRequestSigner(keyHex)
	require.NoError(t, err)
	prefixed, err := NewRequestSigner("0x" + keyHex)
	require.NoError(t, err)
	assert.Equal(t, plain.Identity(), prefixed.Identity())
}

func TestNewRequestSignerRejectsGarbage(t *testing.T) {
	_, err := NewRequestSigner("not hex at all")
	assert.Error(t, err)
	_, err = NewRequestSigner("abcd") // too short
	assert.Error(t, err)
}

func TestSignRecoverRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	body := []byte(`{"seller":"0xabc","price":100}`)

	sig, err := signer.SignRequest("POST", "/api/items", body, 1700000000)
	require.NoError(t, err)

	recovered, err := RecoverIdentity("POST", "/api/items", body, 1700000000, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Identity(), recovered)
}

func TestRecoverRejectsTampering(t *testing.T) {
	signer := newTestSigner(t)
	body := []byte(`{"buyer":"0xabc"}`)

	sig, err := signer.SignRequest("POST", "/api/items/1/buy", body, 1700000000)
	require.NoError(t, err)

	// Any change to the signed parameters yields a different identity
	// (or an error), never the original signer.
	cases := []struct {
		name      string
		method    string
		path      string
		body      []byte
		timestamp int64
	}{
		{"method", "GET", "/api/items/1/buy", body, 1700000000},
		{"path", "POST", "/api/items/2/buy", body, 1700000000},
		{"body", "POST", "/api/items/1/buy", []byte(`{"buyer":"0xeve"}`), 1700000000},
		{"timestamp", "POST", "/api/items/1/buy", body, 1700000001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recovered, err := RecoverIdentity(tc.method, tc.path, tc.body, tc.timestamp, sig)
			if err == nil {
				assert.NotEqual(t, signer.Identity(), recovered)
			}
		})
	}
}

func TestRecoverRejectsMalformedSignature(t *testing.T) {
	_, err := RecoverIdentity("POST", "/", nil, 0, "0xzz")
	assert.Error(t, err)
	_, err = RecoverIdentity("POST", "/", nil, 0, "0xdeadbeef")
	assert.Error(t, err)
}

func TestMethodCaseIsCanonicalized(t *testing.T) {
	signer := newTestSigner(t)

	sig, err := signer.SignRequest("post", "/api/items", nil, 42)
	require.NoError(t, err)
	recovered, err := RecoverIdentity("POST", "/api/items", nil, 42, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Identity(), recovered)
}

func TestNormalizeIdentity(t *testing.T) {
	lower := "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	assert.Equal(t, NormalizeIdentity(lower), NormalizeIdentity("0xFB6916095CA1DF60BB79CE92CE3EA74C37C5D359"))
	assert.True(t, ValidIdentity(lower))
	assert.False(t, ValidIdentity("0x123"))
	assert.False(t, ValidIdentity("bob"))
}
