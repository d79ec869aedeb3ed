// Package access maps roles to the sensitivity levels they may see. Callers
// consult it before any index query; it is never a post-filter.
package access

import (
	types "github.com/yungbote/lexi-backend/internal/domain"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
)

// AllowedSensitivities returns a fresh slice ordered Public first. Unknown
// roles get nil.
func AllowedSensitivities(role types.Role) []types.Sensitivity {
	switch role {
	case domainaccess.RolePartner, domainaccess.RoleAssociate:
		return []types.Sensitivity{
			domainaccess.SensitivityPublic,
			domainaccess.SensitivityInternal,
			domainaccess.SensitivityPrivileged,
			domainaccess.SensitivityDiscovery,
		}
	case domainaccess.RoleStaff:
		return []types.Sensitivity{
			domainaccess.SensitivityPublic,
			domainaccess.SensitivityInternal,
		}
	case domainaccess.RoleClient:
		return []types.Sensitivity{domainaccess.SensitivityPublic}
	default:
		return nil
	}
}

func CanView(role types.Role, s types.Sensitivity) bool {
	for _, allowed := range AllowedSensitivities(role) {
		if allowed == s {
			return true
		}
	}
	return false
}

// FilterValues renders the allowed set for a payload "$in" condition.
func FilterValues(role types.Role) []any {
	allowed := AllowedSensitivities(role)
	out := make([]any, 0, len(allowed))
	for _, s := range allowed {
		out = append(out, string(s))
	}
	return out
}
