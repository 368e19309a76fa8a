package models

import "time"

// Store is a public directory entry for a shop in the building.
type Store struct {
	ID          string    `db:"id" json:"id"`
	UnitID      string    `db:"unit_id" json:"unit_id"`
	UnitName    string    `db:"unit_name" json:"unit_name"`
	UnitFloor   string    `db:"unit_floor" json:"unit_floor"`
	Name        string    `db:"name" json:"name"`
	Category    string    `db:"category" json:"category"`
	Phone       string    `db:"phone" json:"phone,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StoreFilter captures listing criteria for the store directory.
type StoreFilter struct {
	Category string
	Floor    string
	Search   string
	Page     int
	PageSize int
}
