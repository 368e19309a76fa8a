package models

import "time"

// SignatureTarget defines which tenancy roles a document collects signatures from.
type SignatureTarget string

const (
	SignatureTargetLandlord SignatureTarget = "LANDLORD"
	SignatureTargetTenant   SignatureTarget = "TENANT"
	SignatureTargetBoth     SignatureTarget = "BOTH"
	SignatureTargetNone     SignatureTarget = "NONE"
)

// DefaultSigningWindow is applied when a document predates the expiry column.
const DefaultSigningWindow = 7 * 24 * time.Hour

// Valid reports whether the value is a known target.
func (t SignatureTarget) Valid() bool {
	switch t {
	case SignatureTargetLandlord, SignatureTargetTenant, SignatureTargetBoth, SignatureTargetNone:
		return true
	}
	return false
}

// Accepts reports whether the target admits a signature in the given role.
// Only meaningful for documents with SignatureRequired set.
func (t SignatureTarget) Accepts(role TenancyRole) bool {
	switch t {
	case SignatureTargetBoth:
		return role.Valid()
	case SignatureTargetLandlord:
		return role == TenancyRoleLandlord
	case SignatureTargetTenant:
		return role == TenancyRoleTenant
	default:
		return false
	}
}

// Document is an association bulletin item, immutable after creation apart
// from the signatures collected against it.
type Document struct {
	ID                string          `db:"id" json:"id"`
	Title             string          `db:"title" json:"title"`
	Body              string          `db:"body" json:"body"`
	SignatureRequired bool            `db:"signature_required" json:"signature_required"`
	SignatureTarget   SignatureTarget `db:"signature_target" json:"signature_target"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	ExpiryAt          *time.Time      `db:"expiry_at" json:"expiry_at,omitempty"`
}

// EffectiveExpiry returns the signing deadline. Rows created before the
// expiry column existed have no stored value and are read as created_at
// plus the default window; storage is never backfilled.
func (d *Document) EffectiveExpiry() time.Time {
	if d.ExpiryAt != nil {
		return *d.ExpiryAt
	}
	return d.CreatedAt.Add(DefaultSigningWindow)
}

// IsOpen reports whether the document still accepts writes at the given
// instant. The deadline itself is Open; the next instant is Closed.
func (d *Document) IsOpen(now time.Time) bool {
	return !now.After(d.EffectiveExpiry())
}

// DocumentFilter captures listing criteria for bulletin documents.
type DocumentFilter struct {
	SignatureRequired *bool
	OpenOnly          bool
	Page              int
	PageSize          int
}
