// Package identity resolves an opaque dashboard token into the doctor it
// belongs to, over REST or gRPC.
package identity

import (
	"context"
	"errors"
)

var ErrNoIdentity = errors.New("identity not found")

// Identity is the minimum the dashboard needs to know about the caller.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Resolver turns a token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}
