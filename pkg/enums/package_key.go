package enums

import "fmt"

// PackageKey identifies a sellable study package.
type PackageKey string

const (
	PackageKPSSFull     PackageKey = "KPSS_FULL"
	PackageKPSSLisans   PackageKey = "KPSS_LISANS"
	PackageKPSSOnlisans PackageKey = "KPSS_ONLISANS"
	PackageAGSFull      PackageKey = "AGS_FULL"
	PackageEKPSS        PackageKey = "EKPSS"
)

// PremiumPackageKey is the privileged package whose ownership drives the
// legacy isPremium/premiumExpiryDate mirror and the premium session claim.
const PremiumPackageKey = PackageKPSSFull

var validPackageKeys = []PackageKey{
	PackageKPSSFull,
	PackageKPSSLisans,
	PackageKPSSOnlisans,
	PackageAGSFull,
	PackageEKPSS,
}

// String implements fmt.Stringer.
func (k PackageKey) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PackageKey.
func (k PackageKey) IsValid() bool {
	for _, candidate := range validPackageKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsPremium reports whether this key is the privileged package.
func (k PackageKey) IsPremium() bool {
	return k == PremiumPackageKey
}

// ParsePackageKey converts raw input into a PackageKey.
func ParsePackageKey(value string) (PackageKey, error) {
	for _, candidate := range validPackageKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package key %q", value)
}
