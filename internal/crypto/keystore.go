package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	keystoreVersion  = 1
)

// keystoreJSON is the on-disk format of an encrypted identity key.
type keystoreJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64
	Nonce      string `json:"nonce"`      // base64
	Ciphertext string `json:"ciphertext"` // base64
}

// SealKey encrypts a hex-encoded identity private key with a password using
// PBKDF2-HMAC-SHA256 derivation and AES-256-GCM. The returned JSON blob is
// what marketctl writes to its keyfile.
func SealKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto/keystore: password must not be empty")
	}

	keyBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("crypto/keystore: expected 32-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto/keystore: generating salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto/keystore: creating GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto/keystore: generating nonce: %w", err)
	}

	out := keystoreJSON{
		Version:    keystoreVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// OpenKey decrypts a keyfile blob produced by SealKey, returning the
// hex-encoded private key without 0x prefix.
func OpenKey(sealed []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto/keystore: password must not be empty")
	}

	var stored keystoreJSON
	if err := json.Unmarshal(sealed, &stored); err != nil {
		return "", fmt.Errorf("crypto/keystore: parsing keyfile: %w", err)
	}
	if stored.Version != keystoreVersion {
		return "", fmt.Errorf("crypto/keystore: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decoding ciphertext: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// LoadKeyFile reads and decrypts the keyfile at path. An empty path falls
// back to the MARKET_PRIVATE_KEY environment variable.
func LoadKeyFile(path, password string) (string, error) {
	if path == "" {
		if raw := os.Getenv("MARKET_PRIVATE_KEY"); raw != "" {
			k := strings.TrimPrefix(raw, "0x")
			if _, err := hex.DecodeString(k); err != nil {
				return "", fmt.Errorf("crypto/keystore: MARKET_PRIVATE_KEY is not valid hex: %w", err)
			}
			return k, nil
		}
		return "", errors.New("crypto/keystore: no key source (provide a keyfile or MARKET_PRIVATE_KEY)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("crypto/keystore: reading keyfile: %w", err)
	}
	return OpenKey(data, password)
}
