package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsBanned(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		principal Principal
		want      bool
	}{
		{"not banned", Principal{}, false},
		{"permanent ban", Principal{Banned: true}, true},
		{"ban still in effect", Principal{Banned: true, BanExpiresAt: &future}, true},
		{"ban expired", Principal{Banned: true, BanExpiresAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.principal.IsBanned(now))
		})
	}
}

func TestIsSystemAdmin(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	admin := Principal{SystemRole: SystemRoleAdmin}
	assert.True(t, admin.IsSystemAdmin(now))

	user := Principal{SystemRole: SystemRoleUser}
	assert.False(t, user.IsSystemAdmin(now))

	bannedAdmin := Principal{SystemRole: SystemRoleAdmin, Banned: true}
	assert.False(t, bannedAdmin.IsSystemAdmin(now))

	lapsedBan := Principal{SystemRole: SystemRoleAdmin, Banned: true, BanExpiresAt: &past}
	assert.True(t, lapsedBan.IsSystemAdmin(now))
}

func TestAuthenticatedNilSafe(t *testing.T) {
	var nilCtx *AuthContext
	assert.False(t, nilCtx.Authenticated())
	assert.False(t, (&AuthContext{}).Authenticated())
	assert.False(t, (&AuthContext{Principal: &Principal{ID: "u"}}).Authenticated())
	assert.True(t, (&AuthContext{
		Principal: &Principal{ID: "u"},
		Session:   &Session{ID: "s"},
	}).Authenticated())
}

func TestValidOrgRole(t *testing.T) {
	assert.True(t, ValidOrgRole("owner"))
	assert.True(t, ValidOrgRole("admin"))
	assert.True(t, ValidOrgRole("member"))
	assert.False(t, ValidOrgRole("superuser"))
	assert.False(t, ValidOrgRole(""))
}
