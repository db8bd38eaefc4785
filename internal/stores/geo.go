package stores

import (
	"math"
	"slices"
	"strings"
)

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// sortByDistance annotates each store with its distance from the user and
// orders nearest first. Stores without coordinates keep their relative order
// after every located store.
func sortByDistance(stores []StoreDTO, lat, lng float64) {
	for i := range stores {
		s := &stores[i]
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		d := math.Round(HaversineKm(lat, lng, *s.Latitude, *s.Longitude)*100) / 100
		s.DistanceKm = &d
	}
	slices.SortStableFunc(stores, func(a, b StoreDTO) int {
		switch {
		case a.DistanceKm == nil && b.DistanceKm == nil:
			return 0
		case a.DistanceKm == nil:
			return 1
		case b.DistanceKm == nil:
			return -1
		case *a.DistanceKm < *b.DistanceKm:
			return -1
		case *a.DistanceKm > *b.DistanceKm:
			return 1
		default:
			return 0
		}
	})
}

// filterByTags keeps stores with at least one tag containing any wanted tag,
// ignoring case.
func filterByTags(stores []StoreDTO, wanted []string) []StoreDTO {
	if len(wanted) == 0 {
		return stores
	}
	needles := make([]string, 0, len(wanted))
	for _, w := range wanted {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			needles = append(needles, w)
		}
	}
	if len(needles) == 0 {
		return stores
	}
	out := stores[:0:0]
	for _, s := range stores {
		if matchesAnyTag(s.Tags, needles) {
			out = append(out, s)
		}
	}
	return out
}

func matchesAnyTag(tags, needles []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
	}
	return false
}
