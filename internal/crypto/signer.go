// Package crypto provides secp256k1 request signing and identity recovery
// for the marketplace API, plus encrypted key storage for marketctl.
package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// payloadVersion tags the canonical request string so future schemes can
// coexist with old signatures.
const payloadVersion = "fixedmarket-v1"

// RequestSigner signs API requests with a secp256k1 private key. The address
// derived from the key is the caller's marketplace identity.
type RequestSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewRequestSigner creates a RequestSigner from a hex-encoded private key
// (with or without 0x prefix).
func NewRequestSigner(privateKeyHex string) (*RequestSigner, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &RequestSigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Identity returns the marketplace identity derived from the signing key.
func (s *RequestSigner) Identity() domain.Identity {
	return domain.Identity(s.address.Hex())
}

// SignRequest signs the canonical payload for the given request parameters
// and returns a hex-encoded 65-byte signature (r || s || v).
func (s *RequestSigner) SignRequest(method, path string, body []byte, timestamp int64) (string, error) {
	digest := requestDigest(method, path, body, timestamp)

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum produces v in {0,1}; transport carries v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverIdentity recovers the identity that signed the request with the
// given parameters. The returned identity is checksummed.
func RecoverIdentity(method, path string, body []byte, timestamp int64, sigHex string) (domain.Identity, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("crypto/signer: invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("crypto/signer: expected 65-byte signature, got %d bytes", len(sig))
	}

	// Undo the transport v offset before recovery.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	digest := requestDigest(method, path, body, timestamp)
	pub, err := ethcrypto.SigToPub(digest, recSig)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: recover: %w", err)
	}
	return domain.Identity(ethcrypto.PubkeyToAddress(*pub).Hex()), nil
}

// NormalizeIdentity converts an arbitrary hex address string to its
// checksummed form so identities compare verbatim in the core.
func NormalizeIdentity(addr string) domain.Identity {
	return domain.Identity(common.HexToAddress(addr).Hex())
}

// ValidIdentity reports whether addr parses as a 20-byte hex address.
func ValidIdentity(addr string) bool {
	return common.IsHexAddress(addr)
}

// requestDigest builds the signed digest for a request:
//
//	keccak256("\x19Ethereum Signed Message:\n" || len || payload)
//
// where payload = version|METHOD|path|timestamp|sha256(body).
func requestDigest(method, path string, body []byte, timestamp int64) []byte {
	bodyHash := sha256.Sum256(body)
	payload := strings.Join([]string{
		payloadVersion,
		strings.ToUpper(method),
		path,
		strconv.FormatInt(timestamp, 10),
		hex.EncodeToString(bodyHash[:]),
	}, "|")

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(payload), payload)
	return ethcrypto.Keccak256([]byte(prefixed))
}
