package entitlements

import (
	"time"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// IsExpired reports whether the expiry has passed. A nil expiry counts as
// expired: absence of a date is never treated as an unlimited grant.
func IsExpired(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return true
	}
	return expiry.Before(now)
}

// ComputeExpiry returns now + durationHours in UTC.
func ComputeExpiry(now time.Time, durationHours int) time.Time {
	return now.UTC().Add(time.Duration(durationHours) * time.Hour)
}

// ExtendExpiry adds additionalHours on top of the current expiry when it is
// still in the future, otherwise on top of now. A lapsed grant cannot bank
// time from the past, and a past expiry cannot be pulled forward short of
// now + additionalHours.
func ExtendExpiry(current *time.Time, now time.Time, additionalHours int) time.Time {
	base := now.UTC()
	if current != nil && current.After(now) {
		base = current.UTC()
	}
	return base.Add(time.Duration(additionalHours) * time.Hour)
}

// MonthsExpiry returns now + periodMonths calendar months in UTC. Purchases
// grant whole months; admin operations grant hours.
func MonthsExpiry(now time.Time, periodMonths int) time.Time {
	return now.UTC().AddDate(0, periodMonths, 0)
}

// RemainingTime returns how long a grant is still active, zero when expired.
func RemainingTime(expiry *time.Time, now time.Time) time.Duration {
	if IsExpired(expiry, now) {
		return 0
	}
	return expiry.Sub(now)
}

// IsPackageActive reports whether the user currently holds a live grant for
// the key. Ownership alone is not enough; the expiry must be in the future.
func IsPackageActive(ent *models.Entitlement, key enums.PackageKey, now time.Time) bool {
	if ent == nil || !ent.OwnedPackages[key.String()] {
		return false
	}
	return !IsExpired(ent.PackageExpiryDates[key.String()], now)
}

// ApplyGrant records a grant for key on the entitlement in place. The legacy
// premium mirror is refreshed whenever the privileged key is touched.
func ApplyGrant(ent *models.Entitlement, key enums.PackageKey, expiry time.Time, now time.Time) {
	ensureMaps(ent)
	expiryUTC := expiry.UTC()
	ent.OwnedPackages[key.String()] = true
	ent.PackageExpiryDates[key.String()] = &expiryUTC
	if key.IsPremium() {
		ent.IsPremium = true
		ent.PremiumExpiryDate = &expiryUTC
	}
	ent.LastUpdated = now.UTC()
}

// ApplyRevoke clears a grant for key on the entitlement in place.
func ApplyRevoke(ent *models.Entitlement, key enums.PackageKey, now time.Time) {
	ensureMaps(ent)
	ent.OwnedPackages[key.String()] = false
	ent.PackageExpiryDates[key.String()] = nil
	if key.IsPremium() {
		ent.IsPremium = false
		ent.PremiumExpiryDate = nil
	}
	ent.LastUpdated = now.UTC()
}

// Normalize recomputes the legacy premium mirror from the primary maps. The
// mirror is an eventually consistent cache; this is the one place that
// defines what consistent means.
func Normalize(ent *models.Entitlement, now time.Time) bool {
	ensureMaps(ent)
	key := enums.PremiumPackageKey.String()
	active := ent.OwnedPackages[key] && !IsExpired(ent.PackageExpiryDates[key], now)

	changed := false
	if ent.IsPremium != active {
		ent.IsPremium = active
		changed = true
	}
	if active {
		expiry := ent.PackageExpiryDates[key]
		if ent.PremiumExpiryDate == nil || !ent.PremiumExpiryDate.Equal(*expiry) {
			ent.PremiumExpiryDate = expiry
			changed = true
		}
	} else if ent.PremiumExpiryDate != nil {
		ent.PremiumExpiryDate = nil
		changed = true
	}
	if changed {
		ent.LastUpdated = now.UTC()
	}
	return changed
}

func ensureMaps(ent *models.Entitlement) {
	if ent.OwnedPackages == nil {
		ent.OwnedPackages = map[string]bool{}
	}
	if ent.PackageExpiryDates == nil {
		ent.PackageExpiryDates = map[string]*time.Time{}
	}
}
