// Package auth supplies the authenticated principal for each request and the
// role predicates the lifecycle operations check. Credential verification and
// session issuance happen outside this service; we only consume the result.
package auth

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rujoshi/zonetrack/internal/domain"
)

// Authenticator resolves the principal behind an incoming request.
type Authenticator interface {
	Principal(r *http.Request) (domain.Principal, error)
}

// HeaderAuthenticator trusts identity headers set by the fronting auth proxy:
// X-Auth-Role and, for zone managers, X-Auth-Zone.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Principal(r *http.Request) (domain.Principal, error) {
	role := domain.Role(r.Header.Get("X-Auth-Role"))
	switch role {
	case domain.RoleUser, domain.RoleCEO:
		return domain.Principal{Role: role}, nil
	case domain.RoleZoneManager:
		zone, err := strconv.Atoi(r.Header.Get("X-Auth-Zone"))
		if err != nil || zone <= 0 {
			return domain.Principal{}, fmt.Errorf("zone manager without valid assigned zone: %w", domain.ErrForbidden)
		}
		return domain.Principal{Role: role, AssignedZone: zone}, nil
	default:
		return domain.Principal{}, fmt.Errorf("unknown role %q: %w", role, domain.ErrForbidden)
	}
}

// CanSubmitBefore reports whether p may open new work with a before photo.
// Any authenticated principal qualifies.
func CanSubmitBefore(p domain.Principal) bool {
	return p.Role == domain.RoleUser || p.Role == domain.RoleZoneManager || p.Role == domain.RoleCEO
}

// CanSubmitAfter reports whether p may attach after photos. Deleting an after
// photo is the start of re-submission, so it is granted to the same roles.
func CanSubmitAfter(p domain.Principal) bool {
	return p.Role == domain.RoleUser || p.Role == domain.RoleZoneManager
}

// CanApprove reports whether p may finalize a work record's outcome.
func CanApprove(p domain.Principal) bool {
	return p.Role == domain.RoleCEO
}

// ZoneScope returns the single zone id p's reads are restricted to, or 0 when
// p sees all zones.
func ZoneScope(p domain.Principal) int {
	if p.Role == domain.RoleZoneManager {
		return p.AssignedZone
	}
	return 0
}
