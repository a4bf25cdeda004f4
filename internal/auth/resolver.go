// Package auth resolves presented credentials to authenticated principals.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Role is a closed access-control level. Permission is determined solely by
// role membership.
type Role string

const (
	// RoleAdmin has full access including user management.
	RoleAdmin Role = "admin"
	// RoleAnalyst has read and search access, no writes.
	RoleAnalyst Role = "analyst"
	// RoleReadonly has read-only database access.
	RoleReadonly Role = "readonly"
)

// ErrUnauthenticated indicates the presented credential is missing or does
// not match any configured mapping.
var ErrUnauthenticated = errors.New("unauthenticated")

// ParseRole validates a role string against the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleAnalyst:
		return RoleAnalyst, nil
	case RoleReadonly:
		return RoleReadonly, nil
	default:
		return "", fmt.Errorf("unknown role %q (allowed: admin|analyst|readonly)", strings.TrimSpace(raw))
	}
}

// Principal is the resolved caller identity for one invocation.
// It is immutable for the lifetime of the request.
type Principal struct {
	ID   string
	Role Role
}

// AnonymousPrincipal is returned when authentication is disabled. It carries
// the least-privileged role; policy checks downstream still apply.
var AnonymousPrincipal = Principal{ID: "anonymous", Role: RoleReadonly}

type principalEntry struct {
	maskedID string
	role     Role
}

// Resolver maps bearer credentials to principals. Credentials are stored
// sha256-hashed; resolution is a pure in-memory lookup with no side effects.
type Resolver struct {
	enabled bool
	byHash  map[string]principalEntry
}

// NewResolver builds a resolver from credential→role mappings. Each
// credential maps to exactly one principal; a duplicate credential is a
// configuration error.
func NewResolver(enabled bool, credentials map[string]Role) (*Resolver, error) {
	byHash := make(map[string]principalEntry, len(credentials))
	for credential, role := range credentials {
		trimmed := strings.TrimSpace(credential)
		if trimmed == "" {
			return nil, fmt.Errorf("credential mapping contains empty credential")
		}
		if _, err := ParseRole(string(role)); err != nil {
			return nil, fmt.Errorf("credential mapping: %w", err)
		}
		hash := hashCredential(trimmed)
		if _, exists := byHash[hash]; exists {
			return nil, fmt.Errorf("duplicate credential in mapping")
		}
		byHash[hash] = principalEntry{
			maskedID: maskCredential(trimmed),
			role:     role,
		}
	}
	return &Resolver{enabled: enabled, byHash: byHash}, nil
}

// Enabled reports whether authentication is enforced.
func (r *Resolver) Enabled() bool {
	return r.enabled
}

// Resolve maps a presented credential to a Principal.
//
// When authentication is disabled the fixed anonymous principal is returned
// regardless of the credential. Otherwise an unknown or empty credential
// fails with ErrUnauthenticated.
func (r *Resolver) Resolve(credential string) (Principal, error) {
	if !r.enabled {
		return AnonymousPrincipal, nil
	}

	trimmed := strings.TrimSpace(credential)
	if trimmed == "" {
		return Principal{}, fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}

	entry, ok := r.byHash[hashCredential(trimmed)]
	if !ok {
		return Principal{}, fmt.Errorf("%w: invalid credential", ErrUnauthenticated)
	}

	return Principal{ID: entry.maskedID, Role: entry.role}, nil
}

func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// maskCredential derives the stable principal identifier from a credential
// without retaining the raw secret.
func maskCredential(credential string) string {
	if len(credential) <= 8 {
		return credential[:len(credential)/2] + "..."
	}
	return credential[:8] + "..."
}
