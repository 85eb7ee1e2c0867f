package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/fixedmarket/internal/auth"
	marketcrypto "github.com/alanyoungcy/fixedmarket/internal/crypto"
)

// Signature headers carried on authenticated requests.
const (
	HeaderIdentity  = "X-Market-Identity"
	HeaderTimestamp = "X-Market-Timestamp"
	HeaderSignature = "X-Market-Signature"
)

// maxBodyBytes bounds the request body read for digest computation.
const maxBodyBytes = 1 << 20

// SignatureAuth returns middleware that proves caller identity from a
// secp256k1 signature over the canonical request digest. On success the
// recovered identity is stored on the request context for the auth gate.
// Requests without signature headers pass through unauthenticated; the gate
// rejects them if they reach an identity-gated operation.
func SignatureAuth(maxSkew time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claimed := r.Header.Get(HeaderIdentity)
			sigHex := r.Header.Get(HeaderSignature)
			tsStr := r.Header.Get(HeaderTimestamp)

			if claimed == "" && sigHex == "" {
				next.ServeHTTP(w, r)
				return
			}

			if claimed == "" || sigHex == "" || tsStr == "" {
				writeUnauthorized(w, "incomplete signature headers")
				return
			}
			if !marketcrypto.ValidIdentity(claimed) {
				writeUnauthorized(w, "malformed identity")
				return
			}

			timestamp, err := strconv.ParseInt(tsStr, 10, 64)
			if err != nil {
				writeUnauthorized(w, "malformed timestamp")
				return
			}
			if skew := time.Since(time.Unix(timestamp, 0)); skew > maxSkew || skew < -maxSkew {
				writeUnauthorized(w, "request timestamp outside allowed skew")
				return
			}

			// The body participates in the signed digest; read it once and
			// restore it for the handler.
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeUnauthorized(w, "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			recovered, err := marketcrypto.RecoverIdentity(r.Method, r.URL.Path, body, timestamp, sigHex)
			if err != nil {
				writeUnauthorized(w, "signature recovery failed")
				return
			}
			if recovered != marketcrypto.NormalizeIdentity(claimed) {
				writeUnauthorized(w, "signature does not match claimed identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), recovered)))
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
