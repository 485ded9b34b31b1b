// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const maxCuisines = 3

// defaultCuisine is used when no provider category maps to a cuisine.
const defaultCuisine = "Restaurante"

// cuisineTable maps provider category tags to display cuisines. Tags not
// listed here (generic ones like "food" or "point_of_interest") are dropped.
var cuisineTable = map[string]string{
	"seafood_restaurant":        "Frutos do Mar",
	"japanese_restaurant":       "Japonesa",
	"sushi_restaurant":          "Japonesa",
	"ramen_restaurant":          "Japonesa",
	"italian_restaurant":        "Italiana",
	"pizza_restaurant":          "Pizzaria",
	"brazilian_restaurant":      "Brasileira",
	"barbecue_restaurant":       "Churrascaria",
	"steak_house":               "Churrascaria",
	"chinese_restaurant":        "Chinesa",
	"mexican_restaurant":        "Mexicana",
	"french_restaurant":         "Francesa",
	"arabic_restaurant":         "Árabe",
	"lebanese_restaurant":       "Árabe",
	"middle_eastern_restaurant": "Árabe",
	"indian_restaurant":         "Indiana",
	"thai_restaurant":           "Tailandesa",
	"korean_restaurant":         "Coreana",
	"vegetarian_restaurant":     "Vegetariana",
	"vegan_restaurant":          "Vegana",
	"hamburger_restaurant":      "Hamburgueria",
	"fast_food_restaurant":      "Fast Food",
	"breakfast_restaurant":      "Café da Manhã",
	"brunch_restaurant":         "Café da Manhã",
	"cafe":                      "Café",
	"coffee_shop":               "Café",
	"bakery":                    "Padaria",
	"ice_cream_shop":            "Sorveteria",
	"dessert_shop":              "Doceria",
	"bar":                       "Bar",
	"wine_bar":                  "Bar",
	"meal_takeaway":             "Delivery",
	"meal_delivery":             "Delivery",
}

// ToRecord maps provider details onto a new CatalogRecord. cityHint is
// used when the address components carry no city.
func ToRecord(d Details, cityHint string) types.CatalogRecord {
	rec := types.CatalogRecord{
		ExternalID:   d.ExternalID,
		Name:         d.Name,
		Address:      d.Address,
		Phone:        d.Phone,
		Website:      d.Website,
		MapsURL:      d.MapsURL,
		CuisineTypes: Cuisines(d.Types),
		PriceLevel:   d.PriceLevel,
		ReviewCount:  d.ReviewCount,
		OpenNow:      d.OpenNow,
		IsActive:     true,
	}
	if d.Location != nil {
		loc := *d.Location
		rec.Location = &loc
	}
	if d.Rating != nil {
		r := *d.Rating
		rec.Rating = &r
	}
	if len(d.OpeningHours) > 0 {
		rec.OpeningHours = append([]string(nil), d.OpeningHours...)
	}
	if len(d.PhotoURLs) > 0 {
		rec.PhotoURL = d.PhotoURLs[0]
	}
	if rec.OpenNow == "" {
		rec.OpenNow = types.OpenUnknown
	}
	if rec.PriceLevel < 0 || rec.PriceLevel > 4 {
		rec.PriceLevel = 0
	}

	rec.City = component(d.Components, "locality", "administrative_area_level_2")
	if rec.City == "" {
		rec.City = cityHint
	}
	rec.Neighborhood = component(d.Components, "sublocality_level_1", "sublocality", "neighborhood")
	return rec
}

// Cuisines maps provider category tags to at most three distinct display
// cuisines, in tag order, defaulting to "Restaurante".
func Cuisines(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		c, ok := cuisineTable[tag]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxCuisines {
			break
		}
	}
	if len(out) == 0 {
		return []string{defaultCuisine}
	}
	return out
}

// component returns the long name of the first address component whose
// types include the earliest-listed wanted type.
func component(comps []AddressComponent, wanted ...string) string {
	for _, w := range wanted {
		for _, c := range comps {
			for _, t := range c.Types {
				if t == w && c.LongName != "" {
					return c.LongName
				}
			}
		}
	}
	return ""
}
