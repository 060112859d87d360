package auth

// Route paths shared by the guard and the login flow.
const (
	LoginPath         = "/login"
	ChangePinPath     = "/change-pin"
	UserDashboardPath = "/user-dashboard"
)

// RoleLandingPath returns the default landing route for an admin role.
func RoleLandingPath(r RoleTag) string {
	switch r {
	case RoleTreasury:
		return "/treasury-dashboard"
	case RoleAccounting:
		return "/accounting-home"
	case RoleSysad:
		return "/sysad-dashboard"
	case RoleMotorpool:
		return "/motorpool"
	case RoleMerchant:
		return "/merchant"
	}
	return LoginPath
}

// LandingPath returns where p lands after login or when denied a route.
func LandingPath(p Principal) string {
	if p.Kind == KindAdmin {
		return RoleLandingPath(p.RoleTag)
	}
	return UserDashboardPath
}
