// Package credentials implements scoped secret storage and resolution.
// A credential binds a logical key (e.g. "api_key") to an encrypted value at
// one of four scopes; resolution returns the most specific live value
// visible from the caller's position in the tenant/campaign/step hierarchy.
package credentials

import (
	"time"

	"github.com/google/uuid"
)

// ScopeType identifies the level at which a credential is defined.
type ScopeType string

const (
	ScopeSystem   ScopeType = "system"
	ScopeTenant   ScopeType = "tenant"
	ScopeCampaign ScopeType = "campaign"
	ScopeStep     ScopeType = "step"
)

// specificity orders scope types from most to least specific.
var specificity = map[ScopeType]int{
	ScopeStep:     0,
	ScopeCampaign: 1,
	ScopeTenant:   2,
	ScopeSystem:   3,
}

// Valid reports whether t is a known scope type.
func (t ScopeType) Valid() bool {
	_, ok := specificity[t]
	return ok
}

// Credential is a stored secret. Value holds the encrypted bytes as loaded
// from the database; it is decrypted only at resolution time.
//
// Owner is nil for system scope, the tenant ID for tenant scope, and the
// campaign ID for campaign and step scopes. Step-scoped rows additionally
// carry the step label in Qualifier, since steps are identified by label
// within their campaign rather than by their own ID.
type Credential struct {
	ID        uuid.UUID  `json:"id"`
	ScopeType ScopeType  `json:"scope_type"`
	Owner     *uuid.UUID `json:"owner,omitempty"`
	Qualifier *string    `json:"qualifier,omitempty"`
	Key       string     `json:"key"`
	Value     []byte     `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Live reports whether the credential has not expired as of now.
// Expired credentials count as absent during resolution, not as errors.
func (c *Credential) Live(now time.Time) bool {
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// Scope describes the caller's position for resolution. Zero-value fields
// widen the search: a Scope with only Tenant set resolves against tenant and
// system entries.
type Scope struct {
	Tenant   uuid.UUID
	Campaign uuid.UUID
	Step     string
}

// Visible reports whether the credential can be seen from this scope.
func (s Scope) Visible(c *Credential) bool {
	switch c.ScopeType {
	case ScopeSystem:
		return true
	case ScopeTenant:
		return c.Owner != nil && s.Tenant != uuid.Nil && *c.Owner == s.Tenant
	case ScopeCampaign:
		return c.Owner != nil && s.Campaign != uuid.Nil && *c.Owner == s.Campaign
	case ScopeStep:
		return c.Owner != nil && s.Campaign != uuid.Nil && *c.Owner == s.Campaign &&
			c.Qualifier != nil && s.Step != "" && *c.Qualifier == s.Step
	default:
		return false
	}
}

// MostSpecific selects the live credential with the most specific scope
// visible from s, checking step, campaign, tenant, then system.
func MostSpecific(creds []Credential, s Scope, now time.Time) (*Credential, bool) {
	var best *Credential
	for i := range creds {
		c := &creds[i]
		if !c.Live(now) || !s.Visible(c) {
			continue
		}
		if best == nil || specificity[c.ScopeType] < specificity[best.ScopeType] {
			best = c
		}
	}
	return best, best != nil
}

// PutCommand carries the data needed to create or replace a credential.
type PutCommand struct {
	ScopeType ScopeType  `json:"scope_type"`
	Owner     *uuid.UUID `json:"owner,omitempty"`
	Qualifier *string    `json:"qualifier,omitempty"`
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Validate checks scope shape invariants: system credentials carry no owner,
// all other scopes require one, and only step scope carries a qualifier.
func (cmd *PutCommand) Validate() error {
	if !cmd.ScopeType.Valid() {
		return ErrInvalidScope
	}
	if cmd.Key == "" {
		return ErrEmptyKey
	}

	switch cmd.ScopeType {
	case ScopeSystem:
		if cmd.Owner != nil || cmd.Qualifier != nil {
			return ErrInvalidScope
		}
	case ScopeStep:
		if cmd.Owner == nil || cmd.Qualifier == nil || *cmd.Qualifier == "" {
			return ErrInvalidScope
		}
	default:
		if cmd.Owner == nil || cmd.Qualifier != nil {
			return ErrInvalidScope
		}
	}

	return nil
}
