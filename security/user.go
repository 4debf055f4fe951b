package security

// Role names granted through configured group memberships.
const (
	RoleRead  = "READ"
	RoleWrite = "WRITE"
	RoleAdmin = "ADMIN"
)

// CurrentUser is the authenticated principal resolved from the session
// cookie. Handlers receive it explicitly from the dispatch layer; there
// is no ambient security context.
type CurrentUser struct {
	Ident string
	Name  string
	Email string
	Roles []string
}

// HasRole reports whether the user holds the given role.
func (u *CurrentUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// rolesForGroups maps identity-provider group memberships to roles.
// Every authenticated user holds READ.
func rolesForGroups(groups, writeGroups, adminGroups []string) []string {
	roles := []string{RoleRead}
	if containsAny(groups, writeGroups) {
		roles = append(roles, RoleWrite)
	}
	if containsAny(groups, adminGroups) {
		roles = append(roles, RoleAdmin)
	}
	return roles
}

func containsAny(values, candidates []string) bool {
	for _, v := range values {
		for _, c := range candidates {
			if v == c {
				return true
			}
		}
	}
	return false
}
