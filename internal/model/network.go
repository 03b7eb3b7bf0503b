// Package model defines domain entities for the application.
package model

// Network represents an ad-serving account (tenant) in Google Ad Manager.
// Networks are sourced entirely from GAM and never created or deleted locally.
type Network struct {
	// NetworkCode is the GAM network code, e.g. "21700000001".
	NetworkCode string `json:"networkCode"`
	// DisplayName is the human-readable network name. GAM may omit it.
	DisplayName *string `json:"displayName"`
}

// Role is a GAM user role. Role ids are network-specific; only the name
// is stable across networks.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AdministratorRoleName is the display name of the highest-privilege GAM
// role. The lookup is exact-match; GAM exposes no well-known type flag
// for it in this API surface.
const AdministratorRoleName = "Administrator"

// User is a GAM user within a single network. Owned by GAM; this service
// only reads the listed fields and updates RoleID.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	RoleID      int64  `json:"roleId"`
	IsActive    bool   `json:"isActive"`
}

// IsAdministrator reports whether the user currently holds the given
// administrator role id.
func (u *User) IsAdministrator(adminRoleID int64) bool {
	return u.RoleID == adminRoleID
}
