package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelsync/internal/models"
)

func TestOptimizePlanOrdersBySlot(t *testing.T) {
	locations := []models.Location{
		{
			Name: "Old Town", Day: 1,
			Activities: []models.Activity{
				{Name: "Jazz bar", Category: "nightlife", TimeOfDay: "evening", Position: 0},
				{Name: "City walk", Category: "sightseeing", TimeOfDay: "morning", Position: 1},
				{Name: "Market lunch", Category: "food", TimeOfDay: "afternoon", Position: 2},
			},
		},
	}

	optimized, score := OptimizePlan(locations)
	require.Len(t, optimized, 1)
	require.Len(t, optimized[0].Activities, 3)

	names := []string{
		optimized[0].Activities[0].Name,
		optimized[0].Activities[1].Name,
		optimized[0].Activities[2].Name,
	}
	assert.Equal(t, []string{"City walk", "Market lunch", "Jazz bar"}, names)

	for i, act := range optimized[0].Activities {
		assert.Equal(t, i, act.Position)
	}
	assert.Greater(t, score, 0.0)
}

func TestOptimizePlanPrefersBetterFitWithinSlot(t *testing.T) {
	locations := []models.Location{
		{
			Name: "Center", Day: 1,
			Activities: []models.Activity{
				{Name: "Brunch", Category: "food", TimeOfDay: "morning"},
				{Name: "Viewpoint", Category: "sightseeing", TimeOfDay: "morning"},
			},
		},
	}

	optimized, _ := OptimizePlan(locations)
	// sightseeing scores 1.0 in the morning, food only 0.4.
	assert.Equal(t, "Viewpoint", optimized[0].Activities[0].Name)
	assert.Equal(t, "Brunch", optimized[0].Activities[1].Name)
}

func TestOptimizePlanDoesNotMutateInput(t *testing.T) {
	locations := []models.Location{
		{
			Name: "A", Day: 1,
			Activities: []models.Activity{
				{Name: "Late show", Category: "nightlife", TimeOfDay: "evening", Position: 0},
				{Name: "Hike", Category: "outdoors", TimeOfDay: "morning", Position: 1},
			},
		},
	}

	_, _ = OptimizePlan(locations)

	assert.Equal(t, "Late show", locations[0].Activities[0].Name)
	assert.Equal(t, 0, locations[0].Activities[0].Position)
}

func TestOptimizePlanIsDeterministic(t *testing.T) {
	locations := []models.Location{
		{
			Name: "B", Day: 1,
			Activities: []models.Activity{
				{Name: "Museum", Category: "museum", TimeOfDay: "afternoon"},
				{Name: "Gallery", Category: "museum", TimeOfDay: "afternoon"},
				{Name: "Park", Category: "outdoors", TimeOfDay: "morning"},
			},
		},
	}

	first, firstScore := OptimizePlan(locations)
	second, secondScore := OptimizePlan(locations)

	assert.Equal(t, firstScore, secondScore)
	for i := range first[0].Activities {
		assert.Equal(t, first[0].Activities[i].Name, second[0].Activities[i].Name)
	}
}

func TestTravelPenaltyReducesSpreadOutDays(t *testing.T) {
	compact := []models.Location{
		{Name: "A", Day: 1, Latitude: 48.8566, Longitude: 2.3522,
			Activities: []models.Activity{{Name: "x", Category: "food", TimeOfDay: "evening"}}},
		{Name: "B", Day: 1, Latitude: 48.8606, Longitude: 2.3376,
			Activities: []models.Activity{{Name: "y", Category: "food", TimeOfDay: "evening"}}},
	}
	spread := []models.Location{
		{Name: "A", Day: 1, Latitude: 48.8566, Longitude: 2.3522,
			Activities: []models.Activity{{Name: "x", Category: "food", TimeOfDay: "evening"}}},
		{Name: "B", Day: 1, Latitude: 43.2965, Longitude: 5.3698,
			Activities: []models.Activity{{Name: "y", Category: "food", TimeOfDay: "evening"}}},
	}

	_, compactScore := OptimizePlan(compact)
	_, spreadScore := OptimizePlan(spread)
	assert.Greater(t, compactScore, spreadScore)
}

func TestTravelPenaltyIgnoresDayBoundaries(t *testing.T) {
	locations := []models.Location{
		{Name: "A", Day: 1, Latitude: 48.8566, Longitude: 2.3522,
			Activities: []models.Activity{{Name: "x", Category: "food", TimeOfDay: "evening"}}},
		{Name: "B", Day: 2, Latitude: 43.2965, Longitude: 5.3698,
			Activities: []models.Activity{{Name: "y", Category: "food", TimeOfDay: "evening"}}},
	}

	assert.Equal(t, 0.0, travelPenalty(locations))
}

func TestHaversineKm(t *testing.T) {
	// Paris to Marseille is roughly 660km.
	d := haversineKm(48.8566, 2.3522, 43.2965, 5.3698)
	assert.InDelta(t, 660, d, 10)

	assert.Equal(t, 0.0, haversineKm(48.8566, 2.3522, 48.8566, 2.3522))
}
