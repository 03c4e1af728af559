package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleSet(t *testing.T) {
	tests := []struct {
		name   string
		joined string
		want   RoleSet
	}{
		{name: "single", joined: "ROLE_USER", want: RoleSet{RoleUser}},
		{name: "both", joined: "ROLE_USER,ROLE_ADMIN", want: RoleSet{RoleUser, RoleAdmin}},
		{name: "duplicates and spaces", joined: "ROLE_ADMIN, ROLE_ADMIN", want: RoleSet{RoleAdmin}},
		{name: "unknown skipped", joined: "ROLE_ROOT,ROLE_USER", want: RoleSet{RoleUser}},
		{name: "empty", joined: "", want: RoleSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRoleSet(tt.joined))
		})
	}
}

func TestRoleSet_ValueAndScan(t *testing.T) {
	set := NewRoleSet(RoleUser, RoleAdmin, RoleUser)

	v, err := set.Value()
	require.NoError(t, err)
	assert.Equal(t, "ROLE_USER,ROLE_ADMIN", v)

	var scanned RoleSet
	require.NoError(t, scanned.Scan([]byte("ROLE_USER,ROLE_ADMIN")))
	assert.Equal(t, set, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestRefreshToken_Expired(t *testing.T) {
	rt := &RefreshToken{}
	now := rt.ExpiresAt
	assert.True(t, rt.Expired(now))
	assert.False(t, rt.Expired(now.Add(-1)))
}
