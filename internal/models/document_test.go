package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentEffectiveExpiryDefaultsToSevenDays(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := Document{CreatedAt: created}

	assert.Equal(t, created.Add(7*24*time.Hour), doc.EffectiveExpiry())

	expiry := created.Add(48 * time.Hour)
	doc.ExpiryAt = &expiry
	assert.Equal(t, expiry, doc.EffectiveExpiry())
}

func TestDocumentIsOpenBoundary(t *testing.T) {
	expiry := time.Date(2025, 3, 8, 17, 0, 0, 0, time.UTC)
	doc := Document{CreatedAt: expiry.Add(-7 * 24 * time.Hour), ExpiryAt: &expiry}

	assert.True(t, doc.IsOpen(expiry.Add(-time.Hour)))
	assert.True(t, doc.IsOpen(expiry), "the deadline instant itself is still open")
	assert.False(t, doc.IsOpen(expiry.Add(time.Nanosecond)))
	assert.False(t, doc.IsOpen(expiry.Add(time.Hour)))
}

func TestDocumentIsOpenWithoutStoredExpiry(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := Document{CreatedAt: created}

	assert.True(t, doc.IsOpen(created.Add(7*24*time.Hour)))
	assert.False(t, doc.IsOpen(created.Add(7*24*time.Hour+time.Second)))
}

func TestSignatureTargetAccepts(t *testing.T) {
	cases := []struct {
		target   SignatureTarget
		role     TenancyRole
		accepted bool
	}{
		{SignatureTargetLandlord, TenancyRoleLandlord, true},
		{SignatureTargetLandlord, TenancyRoleTenant, false},
		{SignatureTargetTenant, TenancyRoleTenant, true},
		{SignatureTargetTenant, TenancyRoleLandlord, false},
		{SignatureTargetBoth, TenancyRoleLandlord, true},
		{SignatureTargetBoth, TenancyRoleTenant, true},
		{SignatureTargetNone, TenancyRoleTenant, false},
		{SignatureTargetNone, TenancyRoleLandlord, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.accepted, tc.target.Accepts(tc.role), "target %s role %s", tc.target, tc.role)
	}
}
