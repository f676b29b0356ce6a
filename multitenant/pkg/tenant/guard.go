package tenant

import (
	"errors"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var ErrCrossTenantAccess = errors.New("the authenticated principal does not belong to the studio resolved for this request")

// EnforceSameTenant rejects a principal whose studio differs from the studio resolved from the request hostname. A
// request without a resolved studio or a principal without a studio is rejected as well.
func EnforceSameTenant(principal schema.Principal, resolved schema.ResolvedTenant) error {
	if !resolved.IsResolved() || principal.StudioID == "" {
		return ErrCrossTenantAccess
	}
	if principal.StudioID != resolved.StudioID() {
		return ErrCrossTenantAccess
	}
	return nil
}
