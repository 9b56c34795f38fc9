package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"travelsync/internal/models"
)

// ExportService renders an itinerary for download. CSV rows are one
// activity each; JSON is the full nested plan.
type ExportService struct {
	itineraries *ItineraryService
}

func NewExportService(itineraries *ItineraryService) *ExportService {
	return &ExportService{itineraries: itineraries}
}

func (s *ExportService) ExportJSON(id uint) ([]byte, error) {
	itinerary, err := s.itineraries.Get(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(itinerary, "", "  ")
}

var csvHeader = []string{"day", "location", "position", "activity", "category", "time_of_day", "duration_minutes", "notes"}

func (s *ExportService) ExportCSV(id uint) ([]byte, error) {
	itinerary, err := s.itineraries.Get(id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, loc := range itinerary.Locations {
		for _, act := range loc.Activities {
			record := []string{
				strconv.Itoa(loc.Day),
				loc.Name,
				strconv.Itoa(act.Position),
				act.Name,
				act.Category,
				act.TimeOfDay,
				strconv.Itoa(act.DurationMi),
				act.Notes,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds the download name for the given format.
func (s *ExportService) Filename(itinerary *models.ItineraryResponse, format string) string {
	return fmt.Sprintf("itinerary-%d.%s", itinerary.ID, format)
}
