package services

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultShipping applies to unknown and empty cities.
var DefaultShipping = decimal.NewFromInt(1000)

var shippingRates = map[string]decimal.Decimal{
	"lome":     decimal.NewFromInt(500),
	"kara":     decimal.NewFromInt(1500),
	"sokode":   decimal.NewFromInt(1500),
	"palimero": decimal.NewFromInt(2000),
	"atsapame": decimal.NewFromInt(2000),
	"aneho":    decimal.NewFromInt(1000),
	"bassar":   decimal.NewFromInt(2000),
	"tsevie":   decimal.NewFromInt(1000),
	"mango":    decimal.NewFromInt(2500),
	"bafilo":   decimal.NewFromInt(2000),
}

// CityKey lowercases a city name and strips accents, so "Lomé" and
// " LOME " find the same rate.
func CityKey(city string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, city)
	if err != nil {
		s = city
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// ShippingCost is the flat delivery fee for a city.
func ShippingCost(city string) decimal.Decimal {
	if r, ok := shippingRates[CityKey(city)]; ok {
		return r
	}
	return DefaultShipping
}
