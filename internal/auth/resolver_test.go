package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_KnownCredential(t *testing.T) {
	resolver, err := NewResolver(true, map[string]Role{
		"analyst-key-12345": RoleAnalyst,
	})
	require.NoError(t, err)

	principal, err := resolver.Resolve("analyst-key-12345")
	require.NoError(t, err)
	require.Equal(t, RoleAnalyst, principal.Role)
	require.Equal(t, "analyst-...", principal.ID)
}

func TestResolve_UnknownCredentialFails(t *testing.T) {
	resolver, err := NewResolver(true, map[string]Role{
		"analyst-key-12345": RoleAnalyst,
	})
	require.NoError(t, err)

	_, err = resolver.Resolve("no-such-key")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_EmptyCredentialFails(t *testing.T) {
	resolver, err := NewResolver(true, nil)
	require.NoError(t, err)

	_, err = resolver.Resolve("   ")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_AuthDisabledReturnsLeastPrivilege(t *testing.T) {
	resolver, err := NewResolver(false, nil)
	require.NoError(t, err)

	principal, err := resolver.Resolve("anything")
	require.NoError(t, err)
	require.Equal(t, AnonymousPrincipal, principal)
	require.Equal(t, RoleReadonly, principal.Role)
}

func TestResolve_PrincipalIDNeverContainsFullCredential(t *testing.T) {
	credential := "super-secret-credential-value"
	resolver, err := NewResolver(true, map[string]Role{credential: RoleAdmin})
	require.NoError(t, err)

	principal, err := resolver.Resolve(credential)
	require.NoError(t, err)
	require.NotContains(t, principal.ID, "secret-credential")
}

func TestNewResolver_RejectsUnknownRole(t *testing.T) {
	_, err := NewResolver(true, map[string]Role{"key": Role("superuser")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown role")
}

func TestNewResolver_RejectsEmptyCredential(t *testing.T) {
	_, err := NewResolver(true, map[string]Role{"  ": RoleAdmin})
	require.Error(t, err)
}

func TestParseRole_NormalizesCase(t *testing.T) {
	role, err := ParseRole(" Analyst ")
	require.NoError(t, err)
	require.Equal(t, RoleAnalyst, role)
}

func TestGenerateCredential_Unique(t *testing.T) {
	first, err := GenerateCredential()
	require.NoError(t, err)
	second, err := GenerateCredential()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.GreaterOrEqual(t, len(first), 40)
}
