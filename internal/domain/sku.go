package domain

import "strings"

// NoValue is the normalized form of a SKU that carries no usable identifier.
// Rows normalizing to NoValue are excluded from keyed joins and counted in
// the reconciliation summary instead of being merged by partial match.
const NoValue = "NO VALUE"

// cannabisPrefix identifies regulated product SKUs by catalogue convention.
const cannabisPrefix = "CNB-"

// NormalizeSKU canonicalizes a raw SKU value: trims whitespace, uppercases,
// and strips a single trailing ".0" left behind by float-typed spreadsheet
// cells. Values without at least one alphanumeric character normalize to
// NoValue.
func NormalizeSKU(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".0")

	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return s
		}
	}
	return NoValue
}

// ProductClass is the closed product taxonomy; it selects which StatusRules
// set applies to a SKU.
type ProductClass int

const (
	ClassCannabis ProductClass = iota
	ClassAccessory
)

func (c ProductClass) String() string {
	if c == ClassCannabis {
		return "cannabis"
	}
	return "accessory"
}

// ClassifySKU derives the product class from a normalized SKU. The mapping is
// deterministic and never configured per SKU.
func ClassifySKU(sku string) ProductClass {
	if strings.HasPrefix(sku, cannabisPrefix) {
		return ClassCannabis
	}
	return ClassAccessory
}

// Location is one of the operation's stocking locations.
type Location string

const (
	LocationHill     Location = "Hill"
	LocationValley   Location = "Valley"
	LocationJasper   Location = "Jasper"
	LocationUnmapped Location = "Unmapped"
)

// Locations lists the closed location set in report order.
var Locations = []Location{LocationHill, LocationValley, LocationJasper}

// NormalizeLocation maps a free-form location string onto the closed location
// set via case-insensitive substring match. Unrecognized values map to
// LocationUnmapped; callers surface those as warnings, never drop them
// silently.
func NormalizeLocation(raw string) Location {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "hill"):
		return LocationHill
	case strings.Contains(s, "valley"):
		return LocationValley
	case strings.Contains(s, "jasper"):
		return LocationJasper
	default:
		return LocationUnmapped
	}
}
