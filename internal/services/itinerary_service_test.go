package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelsync/internal/models"
	"travelsync/internal/repositories/postgres"
)

// fakeItineraryStore is an in-memory ItineraryStore.
type fakeItineraryStore struct {
	itineraries map[uint]*models.Itinerary
	nextID      uint
}

func newFakeItineraryStore() *fakeItineraryStore {
	return &fakeItineraryStore{itineraries: make(map[uint]*models.Itinerary), nextID: 1}
}

func (f *fakeItineraryStore) Create(it *models.Itinerary) error {
	it.ID = f.nextID
	f.nextID++
	f.itineraries[it.ID] = it
	return nil
}

func (f *fakeItineraryStore) FindByID(id uint) (*models.Itinerary, error) {
	it, ok := f.itineraries[id]
	if !ok {
		return nil, postgres.ErrItineraryNotFound
	}
	copied := *it
	return &copied, nil
}

func (f *fakeItineraryStore) FindByShareCode(code string) (*models.Itinerary, error) {
	for _, it := range f.itineraries {
		if it.ShareCode == code {
			copied := *it
			return &copied, nil
		}
	}
	return nil, postgres.ErrItineraryNotFound
}

func (f *fakeItineraryStore) FindByOwner(ownerID uint) ([]models.Itinerary, error) {
	var out []models.Itinerary
	for _, it := range f.itineraries {
		if it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeItineraryStore) Update(it *models.Itinerary) error {
	if _, ok := f.itineraries[it.ID]; !ok {
		return postgres.ErrItineraryNotFound
	}
	f.itineraries[it.ID] = it
	return nil
}

func (f *fakeItineraryStore) Delete(id uint) error {
	if _, ok := f.itineraries[id]; !ok {
		return postgres.ErrItineraryNotFound
	}
	delete(f.itineraries, id)
	return nil
}

func (f *fakeItineraryStore) ReplacePlan(itineraryID uint, locations []models.Location) error {
	it, ok := f.itineraries[itineraryID]
	if !ok {
		return postgres.ErrItineraryNotFound
	}
	it.Locations = locations
	return nil
}

// fakePublisher records activity events.
type fakePublisher struct {
	events []string
}

func (f *fakePublisher) PublishActivity(eventType string, userID uint, payload interface{}) error {
	f.events = append(f.events, eventType)
	return nil
}

func newTestItineraryService(ai *AIService) (*ItineraryService, *fakeItineraryStore, *fakePublisher) {
	store := newFakeItineraryStore()
	publisher := &fakePublisher{}
	return NewItineraryService(store, ai, publisher), store, publisher
}

func TestCreateItinerary(t *testing.T) {
	svc, _, publisher := newTestItineraryService(nil)

	created, err := svc.Create(7, &models.CreateItineraryRequest{
		Title:       "Summer trip",
		Destination: "Tokyo",
		Days:        5,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), created.OwnerID)
	assert.True(t, strings.HasPrefix(created.ShareCode, "trip-"))
	assert.Contains(t, publisher.events, "itinerary.created")
}

func TestGetByShareCode(t *testing.T) {
	svc, _, _ := newTestItineraryService(nil)

	created, err := svc.Create(1, &models.CreateItineraryRequest{
		Title:       "Weekend",
		Destination: "Porto",
		Days:        2,
	})
	require.NoError(t, err)

	found, err := svc.GetByShareCode(created.ShareCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByShareCode("trip-unknown")
	assert.ErrorIs(t, err, ErrItineraryNotFound)
}

func TestUpdateItineraryOwnership(t *testing.T) {
	svc, _, _ := newTestItineraryService(nil)

	created, err := svc.Create(1, &models.CreateItineraryRequest{
		Title:       "Mine",
		Destination: "Oslo",
		Days:        3,
	})
	require.NoError(t, err)

	newTitle := "Stolen"
	_, err = svc.Update(2, created.ID, &models.UpdateItineraryRequest{Title: &newTitle})
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := svc.Update(1, created.ID, &models.UpdateItineraryRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Stolen", updated.Title)
}

func TestDeleteItinerary(t *testing.T) {
	svc, _, publisher := newTestItineraryService(nil)

	created, err := svc.Create(1, &models.CreateItineraryRequest{
		Title:       "Short",
		Destination: "Riga",
		Days:        1,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(2, created.ID), ErrNotOwner)
	require.NoError(t, svc.Delete(1, created.ID))
	assert.Contains(t, publisher.events, "itinerary.deleted")

	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, ErrItineraryNotFound)
}

func TestGenerateItinerary(t *testing.T) {
	ai := newTestAIService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(samplePlanJSON)))
	})
	svc, store, publisher := newTestItineraryService(ai)

	created, err := svc.Generate(context.Background(), 3, &models.GenerateItineraryRequest{
		Destination: "Paris",
		Days:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), created.OwnerID)
	assert.Equal(t, "1 days in Paris", created.Title)
	require.Len(t, store.itineraries[created.ID].Locations, 1)
	assert.Contains(t, publisher.events, "itinerary.generated")
}

func TestOptimizeItinerary(t *testing.T) {
	svc, store, publisher := newTestItineraryService(nil)

	created, err := svc.Create(1, &models.CreateItineraryRequest{
		Title:       "Paris days",
		Destination: "Paris",
		Days:        1,
	})
	require.NoError(t, err)

	require.NoError(t, store.ReplacePlan(created.ID, []models.Location{
		{
			Name: "Center", Day: 1,
			Activities: []models.Activity{
				{Name: "Dinner", Category: "food", TimeOfDay: "evening", Position: 0},
				{Name: "Walk", Category: "sightseeing", TimeOfDay: "morning", Position: 1},
			},
		},
	}))

	result, err := svc.Optimize(context.Background(), 1, created.ID)
	require.NoError(t, err)
	assert.Greater(t, result.Score, 0.0)
	require.NotNil(t, result.Itinerary)

	acts := store.itineraries[created.ID].Locations[0].Activities
	assert.Equal(t, "Walk", acts[0].Name)
	assert.Equal(t, "Dinner", acts[1].Name)
	assert.Contains(t, publisher.events, "itinerary.optimized")

	_, err = svc.Optimize(context.Background(), 2, created.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}
