package models

import "time"

// TenancyRole is the capacity in which a member occupies a unit.
type TenancyRole string

const (
	TenancyRoleLandlord TenancyRole = "LANDLORD"
	TenancyRoleTenant   TenancyRole = "TENANT"
)

// Valid reports whether the role is one of the known tenancy roles.
func (r TenancyRole) Valid() bool {
	return r == TenancyRoleLandlord || r == TenancyRoleTenant
}

// Unit represents a store/unit within the building.
type Unit struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Floor     string    `db:"floor" json:"floor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Tenancy links a member to a unit in a given role. A member may hold
// several tenancies across units, possibly in different roles.
type Tenancy struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"user_id"`
	UnitID    string      `db:"unit_id" json:"unit_id"`
	Role      TenancyRole `db:"role" json:"role"`
	UnitName  string      `db:"unit_name" json:"unit_name"`
	UnitFloor string      `db:"unit_floor" json:"unit_floor"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// HoldsRole reports whether any tenancy in the list carries the given role.
func HoldsRole(tenancies []Tenancy, role TenancyRole) bool {
	for _, t := range tenancies {
		if t.Role == role {
			return true
		}
	}
	return false
}

// FirstWithRole returns the first tenancy held in the given role, or nil.
func FirstWithRole(tenancies []Tenancy, role TenancyRole) *Tenancy {
	for i := range tenancies {
		if tenancies[i].Role == role {
			return &tenancies[i]
		}
	}
	return nil
}
