package credentials

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for credential operations.
//
// Resolve is safe under concurrent, repeated calls and has no side effect
// beyond an asynchronous last-used timestamp update.
type System interface {
	Handler() *Handler

	// Resolve returns the decrypted value for key at the most specific live
	// scope visible from scope, or ErrNotFound.
	Resolve(ctx context.Context, key string, scope Scope) (string, error)

	// Put creates or replaces the credential identified by the command's
	// (scope type, owner, qualifier, key).
	Put(ctx context.Context, cmd PutCommand) (*Credential, error)

	// Delete removes a credential. Returns ErrNotFound if absent.
	Delete(ctx context.Context, cmd DeleteCommand) error
}

// DeleteCommand identifies a credential for removal.
type DeleteCommand struct {
	ScopeType ScopeType  `json:"scope_type"`
	Owner     *uuid.UUID `json:"owner,omitempty"`
	Qualifier *string    `json:"qualifier,omitempty"`
	Key       string     `json:"key"`
}
