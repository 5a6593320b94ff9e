package domain

import "fmt"

// Role is the business role of an authenticated user
type Role string

const (
	RoleSupplier        Role = "SUPPLIER"
	RoleCategoryManager Role = "CATEGORY_MANAGER"
	RoleDMPManager      Role = "DMP_MANAGER"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleSupplier, RoleCategoryManager, RoleDMPManager:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, s)
	}
	return r, nil
}

// UserStatus is the account state; category managers stay PENDING until a DMP manager activates them
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusPending UserStatus = "PENDING"
)

// Actor is the authenticated caller as carried by the access token
type Actor struct {
	UserID   string
	Email    string
	Role     Role
	Status   UserStatus
	Category string // set for category managers
	INN      string // set for suppliers
}

// IsActive reports whether the account may perform role-gated actions.
// An empty status is treated as active for tokens issued before the claim existed.
func (a *Actor) IsActive() bool {
	return a.Status == "" || a.Status == UserStatusActive
}

// ScopedCategory returns the category every query of this actor is limited to, or "" for none
func (a *Actor) ScopedCategory() string {
	if a.Role == RoleCategoryManager {
		return a.Category
	}
	return ""
}

// Require returns ErrForbidden unless the actor is active and holds one of roles
func (a *Actor) Require(roles ...Role) error {
	if a == nil {
		return ErrUnauthorized
	}
	if !a.IsActive() {
		return fmt.Errorf("%w: account is %s", ErrForbidden, a.Status)
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrForbidden, a.Role)
}
