package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"travelsync/internal/models"
	"travelsync/internal/repositories/postgres"

	"github.com/google/uuid"
)

var (
	ErrItineraryNotFound = errors.New("itinerary not found")
	ErrNotOwner          = errors.New("itinerary belongs to another user")
)

// ItineraryStore is the persistence surface the itinerary service needs.
type ItineraryStore interface {
	Create(itinerary *models.Itinerary) error
	FindByID(id uint) (*models.Itinerary, error)
	FindByShareCode(code string) (*models.Itinerary, error)
	FindByOwner(ownerID uint) ([]models.Itinerary, error)
	Update(itinerary *models.Itinerary) error
	Delete(id uint) error
	ReplacePlan(itineraryID uint, locations []models.Location) error
}

// ActivityPublisher emits audit events; implemented by the kafka
// producer.
type ActivityPublisher interface {
	PublishActivity(eventType string, userID uint, payload interface{}) error
}

type ItineraryService struct {
	repo      ItineraryStore
	ai        *AIService
	publisher ActivityPublisher
}

func NewItineraryService(repo ItineraryStore, ai *AIService, publisher ActivityPublisher) *ItineraryService {
	return &ItineraryService{
		repo:      repo,
		ai:        ai,
		publisher: publisher,
	}
}

func (s *ItineraryService) Create(userID uint, req *models.CreateItineraryRequest) (*models.ItineraryResponse, error) {
	itinerary := models.Itinerary{
		OwnerID:     userID,
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		Days:        req.Days,
		Notes:       req.Notes,
		ShareCode:   newShareCode(),
	}

	if err := s.repo.Create(&itinerary); err != nil {
		return nil, err
	}

	s.publish("itinerary.created", userID, map[string]interface{}{
		"itinerary_id": itinerary.ID,
		"destination":  itinerary.Destination,
	})

	return itineraryResponse(&itinerary), nil
}

// Generate builds a complete itinerary from an AI-produced plan.
func (s *ItineraryService) Generate(ctx context.Context, userID uint, req *models.GenerateItineraryRequest) (*models.ItineraryResponse, error) {
	locations, err := s.ai.GeneratePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	itinerary := models.Itinerary{
		OwnerID:     userID,
		Title:       fmt.Sprintf("%d days in %s", req.Days, req.Destination),
		Destination: req.Destination,
		Days:        req.Days,
		ShareCode:   newShareCode(),
	}
	if err := s.repo.Create(&itinerary); err != nil {
		return nil, err
	}
	if err := s.repo.ReplacePlan(itinerary.ID, locations); err != nil {
		return nil, err
	}

	s.publish("itinerary.generated", userID, map[string]interface{}{
		"itinerary_id": itinerary.ID,
		"destination":  req.Destination,
		"days":         req.Days,
	})

	return s.Get(itinerary.ID)
}

func (s *ItineraryService) Get(id uint) (*models.ItineraryResponse, error) {
	itinerary, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, postgres.ErrItineraryNotFound) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}
	return itineraryResponse(itinerary), nil
}

func (s *ItineraryService) GetByShareCode(code string) (*models.ItineraryResponse, error) {
	itinerary, err := s.repo.FindByShareCode(code)
	if err != nil {
		if errors.Is(err, postgres.ErrItineraryNotFound) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}
	return s.Get(itinerary.ID)
}

func (s *ItineraryService) List(userID uint) ([]models.ItineraryResponse, error) {
	itineraries, err := s.repo.FindByOwner(userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ItineraryResponse, len(itineraries))
	for i := range itineraries {
		out[i] = *itineraryResponse(&itineraries[i])
	}
	return out, nil
}

func (s *ItineraryService) Update(userID, id uint, req *models.UpdateItineraryRequest) (*models.ItineraryResponse, error) {
	itinerary, err := s.ownedItinerary(userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		itinerary.Title = *req.Title
	}
	if req.Destination != nil {
		itinerary.Destination = *req.Destination
	}
	if req.StartDate != nil {
		itinerary.StartDate = *req.StartDate
	}
	if req.Days != nil {
		itinerary.Days = *req.Days
	}
	if req.Notes != nil {
		itinerary.Notes = *req.Notes
	}

	if err := s.repo.Update(itinerary); err != nil {
		return nil, err
	}

	s.publish("itinerary.updated", userID, map[string]interface{}{"itinerary_id": id})
	return itineraryResponse(itinerary), nil
}

func (s *ItineraryService) Delete(userID, id uint) error {
	if _, err := s.ownedItinerary(userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.publish("itinerary.deleted", userID, map[string]interface{}{"itinerary_id": id})
	return nil
}

// Optimize reorders each day's activities using the local scoring
// tables and asks the model for a narrative summary of the result.
func (s *ItineraryService) Optimize(ctx context.Context, userID, id uint) (*models.OptimizeResponse, error) {
	itinerary, err := s.ownedItinerary(userID, id)
	if err != nil {
		return nil, err
	}

	full, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	optimized, score := OptimizePlan(full.Locations)
	if err := s.repo.ReplacePlan(id, optimized); err != nil {
		return nil, err
	}

	summary := ""
	if s.ai != nil {
		summary = s.ai.Summarize(ctx, itinerary)
	}

	s.publish("itinerary.optimized", userID, map[string]interface{}{
		"itinerary_id": id,
		"score":        score,
	})

	result, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return &models.OptimizeResponse{
		ItineraryID: id,
		Score:       score,
		Summary:     summary,
		Itinerary:   result,
	}, nil
}

func (s *ItineraryService) ownedItinerary(userID, id uint) (*models.Itinerary, error) {
	itinerary, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, postgres.ErrItineraryNotFound) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}
	if itinerary.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return itinerary, nil
}

func (s *ItineraryService) publish(eventType string, userID uint, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActivity(eventType, userID, payload); err != nil {
		slog.Warn("failed to publish activity event", "type", eventType, "error", err)
	}
}

func itineraryResponse(it *models.Itinerary) *models.ItineraryResponse {
	return &models.ItineraryResponse{
		ID:          it.ID,
		OwnerID:     it.OwnerID,
		Title:       it.Title,
		Destination: it.Destination,
		StartDate:   it.StartDate,
		Days:        it.Days,
		ShareCode:   it.ShareCode,
		Notes:       it.Notes,
		Locations:   it.Locations,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// newShareCode returns a short join code for collaboration rooms.
func newShareCode() string {
	return "trip-" + strings.Split(uuid.New().String(), "-")[0]
}
