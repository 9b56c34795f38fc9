package services

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelsync/internal/models"
)

func newTestExportService(t *testing.T) (*ExportService, uint) {
	t.Helper()

	itineraries, store, _ := newTestItineraryService(nil)
	created, err := itineraries.Create(1, &models.CreateItineraryRequest{
		Title:       "Lisbon escape",
		Destination: "Lisbon",
		Days:        2,
	})
	require.NoError(t, err)

	require.NoError(t, store.ReplacePlan(created.ID, []models.Location{
		{
			Name: "Alfama", Day: 1,
			Activities: []models.Activity{
				{Name: "Castle", Category: "sightseeing", TimeOfDay: "morning", Position: 0, DurationMi: 120},
				{Name: "Fado", Category: "nightlife", TimeOfDay: "evening", Position: 1, DurationMi: 90},
			},
		},
		{
			Name: "Belem", Day: 2,
			Activities: []models.Activity{
				{Name: "Monastery", Category: "museum", TimeOfDay: "morning", Position: 0, DurationMi: 60},
			},
		},
	}))

	return NewExportService(itineraries), created.ID
}

func TestExportJSON(t *testing.T) {
	svc, id := newTestExportService(t)

	data, err := svc.ExportJSON(id)
	require.NoError(t, err)

	var decoded models.ItineraryResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Lisbon escape", decoded.Title)
	require.Len(t, decoded.Locations, 2)
	assert.Len(t, decoded.Locations[0].Activities, 2)
}

func TestExportCSV(t *testing.T) {
	svc, id := newTestExportService(t)

	data, err := svc.ExportCSV(id)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)

	// Header plus one row per activity.
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "Alfama", "0", "Castle", "sightseeing", "morning", "120", ""}, records[1])
	assert.Equal(t, []string{"2", "Belem", "0", "Monastery", "museum", "morning", "60", ""}, records[3])
}

func TestExportMissingItinerary(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.ExportJSON(9999)
	assert.ErrorIs(t, err, ErrItineraryNotFound)

	_, err = svc.ExportCSV(9999)
	assert.ErrorIs(t, err, ErrItineraryNotFound)
}

func TestExportFilename(t *testing.T) {
	svc, _ := newTestExportService(t)

	name := svc.Filename(&models.ItineraryResponse{ID: 12}, "csv")
	assert.Equal(t, "itinerary-12.csv", name)
}
