package listing

import (
	"fmt"
	"strings"
)

// Category is the closed set of vehicle classes that drive content profiles.
type Category int

const (
	CategoryDaily Category = iota
	CategoryExotic
	CategoryLuxury
	CategoryTruck
	CategorySUV
	CategorySport

	categoryCount // keep last
)

var categoryNames = [categoryCount]string{
	CategoryDaily:  "daily",
	CategoryExotic: "exotic",
	CategoryLuxury: "luxury",
	CategoryTruck:  "truck",
	CategorySUV:    "suv",
	CategorySport:  "sport",
}

func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return "unknown"
	}
	return categoryNames[c]
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves a category name. "default" is accepted for daily.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "default" {
		return CategoryDaily, nil
	}
	for c, n := range categoryNames {
		if n == name {
			return Category(c), nil
		}
	}
	return CategoryDaily, fmt.Errorf("unknown category %q", s)
}

// RuleSet selects which classification rules are active.
type RuleSet int

const (
	// RuleSetBasic runs exotic, truck and suv rules only.
	RuleSetBasic RuleSet = iota
	// RuleSetExtended adds the luxury and sport rules.
	RuleSetExtended
)

// LuxuryPriceThreshold is the listing price at or above which a vehicle is
// classified luxury under RuleSetExtended.
const LuxuryPriceThreshold = 120000

// Keyword lists are plain substring checks against lower-cased text, not
// word-boundary matches: "ram" also matches "diagram".
var (
	exoticBrands = []string{"ferrari", "lamborghini", "mclaren", "aston", "maserati", "bentley", "rolls", "porsche"}
	exoticModels = []string{"488", "huracan", "aventador", "720s", "gt3", "gt2", "911 turbo", "f8 tributo"}

	luxuryBrands = []string{"mercedes", "bmw", "audi", "lexus", "cadillac", "lincoln", "genesis", "land rover", "range rover"}

	truckBrands = []string{"ram", "ford", "chevrolet", "gmc", "toyota", "nissan"}
	truckModels = []string{"1500", "2500", "3500", "f-150", "f150", "super duty", "silverado", "sierra", "tacoma", "tundra", "frontier", "titan"}

	suvModels = []string{
		"suv", "vus", "cherokee", "wrangler", "gladiator", "compass", "wagoneer", "durango",
		"tahoe", "suburban", "explorer", "highlander", "4runner", "rav4", "cr-v", "pilot",
		"cx-5", "tiguan", "q5", "x5",
	}

	sportModels = []string{"mustang", "camaro", "corvette", "supra", "type r", "sti", "gti", "srt", "r/t", "scat pack"}
)

// Classify assigns exactly one category. Rules run in a fixed order and the
// first match wins: exotic, luxury, truck, suv, sport, then daily. Luxury and
// sport only run under RuleSetExtended.
func Classify(v *Vehicle, rules RuleSet) Category {
	if v == nil {
		return CategoryDaily
	}
	title := strings.ToLower(v.Title)
	brand := strings.ToLower(v.Brand)

	if containsAny(brand, exoticBrands) || containsAny(title, exoticBrands) || containsAny(title, exoticModels) {
		return CategoryExotic
	}

	if rules == RuleSetExtended {
		if containsAny(brand, luxuryBrands) || (brand == "" && containsAny(title, luxuryBrands)) {
			return CategoryLuxury
		}
		if price, ok := v.Price.Number(); ok && price >= LuxuryPriceThreshold {
			return CategoryLuxury
		}
	}

	truckBrand := containsAny(brand, truckBrands) || containsAny(title, truckBrands)
	if truckBrand && containsAny(title, truckModels) {
		return CategoryTruck
	}

	if containsAny(title, suvModels) {
		return CategorySUV
	}

	if rules == RuleSetExtended && containsAny(title, sportModels) {
		return CategorySport
	}

	return CategoryDaily
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
