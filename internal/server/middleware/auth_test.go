package middleware

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fixedmarket/internal/auth"
	marketcrypto "github.com/alanyoungcy/fixedmarket/internal/crypto"
	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

func newSigner(t *testing.T) *marketcrypto.RequestSigner {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer, err := marketcrypto.NewRequestSigner(hex.EncodeToString(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)
	return signer
}

// identityEcho records the proven identity the middleware stored, if any.
func identityEcho(got *domain.Identity, proven *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		*got, *proven = id, ok
		w.WriteHeader(http.StatusOK)
	})
}

func signedRequest(t *testing.T, signer *marketcrypto.RequestSigner, method, path string, body []byte, timestamp int64) *http.Request {
	t.Helper()
	sig, err := signer.SignRequest(method, path, body, timestamp)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(HeaderIdentity, string(signer.Identity()))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, sig)
	return req
}

func TestSignatureAuthProvesIdentity(t *testing.T) {
	signer := newSigner(t)
	var got domain.Identity
	var proven bool
	h := SignatureAuth(time.Minute)(identityEcho(&got, &proven))

	body := []byte(`{"buyer":"` + string(signer.Identity()) + `"}`)
	req := signedRequest(t, signer, http.MethodPost, "/api/items/1/buy", body, time.Now().Unix())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, proven)
	assert.Equal(t, signer.Identity(), got)
}

func TestSignatureAuthRestoresBody(t *testing.T) {
	signer := newSigner(t)
	var seen []byte
	h := SignatureAuth(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		seen, err = io.ReadAll(r.Body)
		require.NoError(t, err)
	}))

	body := []byte(`{"seller":"x","price":5}`)
	req := signedRequest(t, signer, http.MethodPost, "/api/items", body, time.Now().Unix())
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, body, seen)
}

func TestSignatureAuthUnsignedPassthrough(t *testing.T) {
	var got domain.Identity
	var proven bool
	h := SignatureAuth(time.Minute)(identityEcho(&got, &proven))

	req := httptest.NewRequest(http.MethodGet, "/api/items/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, proven)
}

func TestSignatureAuthRejections(t *testing.T) {
	signer := newSigner(t)
	other := newSigner(t)
	now := time.Now().Unix()
	body := []byte(`{}`)

	tests := []struct {
		name   string
		mutate func(r *http.Request)
	}{
		{"missing timestamp", func(r *http.Request) { r.Header.Del(HeaderTimestamp) }},
		{"missing signature", func(r *http.Request) {
			r.Header.Del(HeaderSignature)
		}},
		{"malformed identity", func(r *http.Request) { r.Header.Set(HeaderIdentity, "bob") }},
		{"malformed timestamp", func(r *http.Request) { r.Header.Set(HeaderTimestamp, "soon") }},
		{"stale timestamp", func(r *http.Request) {
			stale := now - 3600
			sig, err := signer.SignRequest(http.MethodPost, "/api/items", body, stale)
			require.NoError(t, err)
			r.Header.Set(HeaderTimestamp, strconv.FormatInt(stale, 10))
			r.Header.Set(HeaderSignature, sig)
		}},
		{"identity mismatch", func(r *http.Request) {
			r.Header.Set(HeaderIdentity, string(other.Identity()))
		}},
		{"garbage signature", func(r *http.Request) { r.Header.Set(HeaderSignature, "0xdeadbeef") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := SignatureAuth(time.Minute)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := signedRequest(t, signer, http.MethodPost, "/api/items", body, now)
			tt.mutate(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
