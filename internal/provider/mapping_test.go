// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

func TestCuisines(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{"single", []string{"seafood_restaurant", "restaurant"}, []string{"Frutos do Mar"}},
		{"duplicates collapse", []string{"japanese_restaurant", "sushi_restaurant", "ramen_restaurant"}, []string{"Japonesa"}},
		{"capped at three", []string{"japanese_restaurant", "seafood_restaurant", "bar", "cafe", "bakery"}, []string{"Japonesa", "Frutos do Mar", "Bar"}},
		{"unmapped dropped", []string{"food", "point_of_interest", "italian_restaurant"}, []string{"Italiana"}},
		{"default", []string{"food", "establishment"}, []string{"Restaurante"}},
		{"no tags", nil, []string{"Restaurante"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cuisines(tt.tags))
		})
	}
}

func TestToRecord(t *testing.T) {
	r := 4.7
	d := Details{
		Place: Place{
			ExternalID:  "ChIJ-yama",
			Name:        "Sushi Yama",
			Address:     "Av. Boa Viagem, 1000",
			Location:    &types.GeoPoint{Lat: -8.1189, Lng: -34.8998},
			Rating:      &r,
			ReviewCount: 1520,
			PriceLevel:  3,
			OpenNow:     types.OpenYes,
			Types:       []string{"japanese_restaurant", "restaurant"},
		},
		Phone:        "+55 81 3333-4444",
		Website:      "https://sushiyama.example",
		MapsURL:      "https://maps.google.com/?cid=1",
		OpeningHours: []string{"segunda-feira: 18:00–23:00"},
		PhotoURLs:    []string{"https://photo/1", "https://photo/2"},
		Components: []AddressComponent{
			{LongName: "Boa Viagem", Types: []string{"sublocality_level_1", "sublocality"}},
			{LongName: "Recife", Types: []string{"locality", "political"}},
		},
	}

	rec := ToRecord(d, "Olinda")
	assert.Equal(t, "ChIJ-yama", rec.ExternalID)
	assert.Equal(t, "Recife", rec.City)
	assert.Equal(t, "Boa Viagem", rec.Neighborhood)
	assert.Equal(t, []string{"Japonesa"}, rec.CuisineTypes)
	assert.Equal(t, "https://photo/1", rec.PhotoURL)
	assert.Equal(t, 3, rec.PriceLevel)
	assert.Equal(t, types.OpenYes, rec.OpenNow)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.7, *rec.Rating)
	assert.Empty(t, rec.ID)
	assert.True(t, rec.IsActive)

	r = 1.0
	assert.Equal(t, 4.7, *rec.Rating, "record does not alias the details")
}

func TestToRecordCityFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		comps    []AddressComponent
		hint     string
		wantCity string
		wantHood string
	}{
		{
			name: "admin area level 2",
			comps: []AddressComponent{
				{LongName: "Jaboatão dos Guararapes", Types: []string{"administrative_area_level_2"}},
				{LongName: "Piedade", Types: []string{"neighborhood"}},
			},
			hint:     "Recife",
			wantCity: "Jaboatão dos Guararapes",
			wantHood: "Piedade",
		},
		{
			name:     "hint",
			comps:    []AddressComponent{{LongName: "Pernambuco", Types: []string{"administrative_area_level_1"}}},
			hint:     "Recife",
			wantCity: "Recife",
		},
		{
			name: "sublocality before neighborhood",
			comps: []AddressComponent{
				{LongName: "Setúbal", Types: []string{"neighborhood"}},
				{LongName: "Boa Viagem", Types: []string{"sublocality"}},
			},
			wantHood: "Boa Viagem",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ToRecord(Details{Place: Place{Name: "x"}, Components: tt.comps}, tt.hint)
			assert.Equal(t, tt.wantCity, rec.City)
			assert.Equal(t, tt.wantHood, rec.Neighborhood)
			assert.Equal(t, types.OpenUnknown, rec.OpenNow)
			assert.Nil(t, rec.Location)
		})
	}
}
