package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplacetg/internal/services"
)

func TestShippingCost(t *testing.T) {
	cases := map[string]string{
		"Lomé":    "500",
		" LOME ":  "500",
		"lome":    "500",
		"Kara":    "1500",
		"Tsévié":  "1000",
		"Mango":   "2500",
		"Dapaong": "1000",
		"":        "1000",
	}
	for city, want := range cases {
		assertAmount(t, want, services.ShippingCost(city), city)
	}
}

func TestCityKey_StripsAccents(t *testing.T) {
	assert.Equal(t, "aneho", services.CityKey("Aného"))
	assert.Equal(t, "sokode", services.CityKey("  Sokodé"))
}
