// Package auth implements the authorization gate consulted by the lifecycle
// core before any identity-gated read or write. The transport layer proves
// identity (signature recovery) and records it on the request context; the
// gate only compares the claimed identity against the proven one, so it can
// be exercised without any storage or HTTP machinery.
package auth

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

type contextKey struct{}

// WithIdentity returns a context carrying the proven caller identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the proven caller identity, if any.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	return id, ok
}

// ContextGate authorizes an operation when the claimed identity matches the
// identity the transport layer proved and stored on the context.
type ContextGate struct{}

// Require implements domain.AuthGate.
func (ContextGate) Require(ctx context.Context, id domain.Identity) error {
	proven, ok := IdentityFrom(ctx)
	if !ok {
		return fmt.Errorf("auth: no proven identity on request: %w", domain.ErrUnauthorized)
	}
	if proven != id {
		return fmt.Errorf("auth: caller %s cannot act as %s: %w", proven, id, domain.ErrUnauthorized)
	}
	return nil
}

// AllowAll passes every identity check. For development mode and tests.
type AllowAll struct{}

// Require implements domain.AuthGate.
func (AllowAll) Require(context.Context, domain.Identity) error { return nil }

// DenyAll fails every identity check. For tests.
type DenyAll struct{}

// Require implements domain.AuthGate.
func (DenyAll) Require(context.Context, domain.Identity) error {
	return domain.ErrUnauthorized
}

var (
	_ domain.AuthGate = ContextGate{}
	_ domain.AuthGate = AllowAll{}
	_ domain.AuthGate = DenyAll{}
)
