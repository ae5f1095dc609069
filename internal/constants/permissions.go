package constants

// Permission names used by middleware.AuthorizePermission.
const (
	ManagePeriods = "MANAGE_PERIODS"
	ClosePeriod   = "CLOSE_PERIOD"
	ViewHistory   = "VIEW_HISTORY"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ManagePeriods: {Admin},
	ClosePeriod:   {Admin},
	ViewHistory:   {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
