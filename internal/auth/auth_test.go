package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/rujoshi/zonetrack/internal/domain"
)

func TestHeaderAuthenticatorPrincipal(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		zone    string
		want    domain.Principal
		wantErr bool
	}{
		{name: "user", role: "user", want: domain.Principal{Role: domain.RoleUser}},
		{name: "ceo", role: "ceo", want: domain.Principal{Role: domain.RoleCEO}},
		{
			name: "zone manager with zone",
			role: "zone_manager", zone: "7",
			want: domain.Principal{Role: domain.RoleZoneManager, AssignedZone: 7},
		},
		{name: "zone manager without zone", role: "zone_manager", wantErr: true},
		{name: "zone manager with bad zone", role: "zone_manager", zone: "abc", wantErr: true},
		{name: "zone manager with zero zone", role: "zone_manager", zone: "0", wantErr: true},
		{name: "missing role", wantErr: true},
		{name: "unknown role", role: "admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/zones", nil)
			if tt.role != "" {
				r.Header.Set("X-Auth-Role", tt.role)
			}
			if tt.zone != "" {
				r.Header.Set("X-Auth-Zone", tt.zone)
			}

			p, err := HeaderAuthenticator{}.Principal(r)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestRolePredicates(t *testing.T) {
	user := domain.Principal{Role: domain.RoleUser}
	manager := domain.Principal{Role: domain.RoleZoneManager, AssignedZone: 3}
	ceo := domain.Principal{Role: domain.RoleCEO}

	assert.True(t, CanSubmitBefore(user))
	assert.True(t, CanSubmitBefore(manager))
	assert.True(t, CanSubmitBefore(ceo))

	assert.True(t, CanSubmitAfter(user))
	assert.True(t, CanSubmitAfter(manager))
	assert.False(t, CanSubmitAfter(ceo))

	assert.False(t, CanApprove(user))
	assert.False(t, CanApprove(manager))
	assert.True(t, CanApprove(ceo))
}

func TestZoneScope(t *testing.T) {
	assert.Equal(t, 0, ZoneScope(domain.Principal{Role: domain.RoleUser}))
	assert.Equal(t, 0, ZoneScope(domain.Principal{Role: domain.RoleCEO}))
	assert.Equal(t, 3, ZoneScope(domain.Principal{Role: domain.RoleZoneManager, AssignedZone: 3}))
}
