// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account within a site.
type UserRole string

const (
	// Unrestricted access to the site and its membership
	RoleAdmin UserRole = "admin"

	// Can approve pending accounts and manage members
	RoleManager UserRole = "manager"

	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleManager:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
