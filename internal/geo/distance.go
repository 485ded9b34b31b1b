// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geo computes great-circle distances and formats them for display.
package geo

import (
	"fmt"
	"math"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Between returns the distance in kilometers between two points.
func Between(a, b types.GeoPoint) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// FormatDistance renders km as whole meters below one kilometer ("350m")
// and as one-decimal kilometers otherwise ("2.3km").
func FormatDistance(km float64) string {
	if km < 1 {
		m := math.Round(km * 1000)
		if m < 1000 {
			return fmt.Sprintf("%.0fm", m)
		}
	}
	return fmt.Sprintf("%.1fkm", km)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
