package services

import (
	"math"
	"sort"

	"travelsync/internal/models"
)

// Heuristic scoring tables for the local optimizer. No external calls:
// optimization has to work offline, with the AI summary as garnish.

// categoryWeights orders activity categories by how much travelers
// tend to prioritize them when a day runs short.
var categoryWeights = map[string]float64{
	"sightseeing": 1.0,
	"museum":      0.9,
	"outdoors":    0.85,
	"food":        0.8,
	"shopping":    0.5,
	"nightlife":   0.45,
}

// timeOfDayFit scores how well a category suits a time slot.
var timeOfDayFit = map[string]map[string]float64{
	"sightseeing": {"morning": 1.0, "afternoon": 0.8, "evening": 0.4},
	"museum":      {"morning": 0.9, "afternoon": 1.0, "evening": 0.3},
	"outdoors":    {"morning": 1.0, "afternoon": 0.7, "evening": 0.2},
	"food":        {"morning": 0.5, "afternoon": 0.7, "evening": 1.0},
	"shopping":    {"morning": 0.6, "afternoon": 1.0, "evening": 0.7},
	"nightlife":   {"morning": 0.0, "afternoon": 0.2, "evening": 1.0},
}

var slotOrder = map[string]int{"morning": 0, "afternoon": 1, "evening": 2}

// distancePenaltyPerKm shaves score for spread-out days.
const distancePenaltyPerKm = 0.01

// OptimizePlan reorders each location's activities into time-slot order
// with the better-fitting activity first within a slot, and returns the
// overall plan score. Input is not mutated.
func OptimizePlan(locations []models.Location) ([]models.Location, float64) {
	out := make([]models.Location, len(locations))
	copy(out, locations)

	total := 0.0
	for i := range out {
		activities := make([]models.Activity, len(out[i].Activities))
		copy(activities, out[i].Activities)

		sort.SliceStable(activities, func(a, b int) bool {
			sa, sb := slotOrder[activities[a].TimeOfDay], slotOrder[activities[b].TimeOfDay]
			if sa != sb {
				return sa < sb
			}
			return activityScore(activities[a]) > activityScore(activities[b])
		})

		for pos := range activities {
			activities[pos].Position = pos
			total += activityScore(activities[pos])
		}
		out[i].Activities = activities
	}

	total -= travelPenalty(out)
	return out, math.Round(total*100) / 100
}

func activityScore(a models.Activity) float64 {
	weight, ok := categoryWeights[a.Category]
	if !ok {
		weight = 0.6
	}
	fit := 0.7
	if fits, ok := timeOfDayFit[a.Category]; ok {
		if f, ok := fits[a.TimeOfDay]; ok {
			fit = f
		}
	}
	return weight * fit
}

// travelPenalty sums haversine distances between consecutive locations
// on the same day.
func travelPenalty(locations []models.Location) float64 {
	penalty := 0.0
	for i := 1; i < len(locations); i++ {
		prev, cur := locations[i-1], locations[i]
		if prev.Day != cur.Day {
			continue
		}
		penalty += haversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude) * distancePenaltyPerKm
	}
	return penalty
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
