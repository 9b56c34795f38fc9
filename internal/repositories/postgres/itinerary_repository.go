package postgres

import (
	"errors"
	"fmt"

	"travelsync/internal/models"

	"gorm.io/gorm"
)

var ErrItineraryNotFound = errors.New("itinerary not found")

type ItineraryRepository struct {
	db *gorm.DB
}

func NewItineraryRepository(db *gorm.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

func (r *ItineraryRepository) Create(itinerary *models.Itinerary) error {
	if err := r.db.Create(itinerary).Error; err != nil {
		return fmt.Errorf("failed to create itinerary: %w", err)
	}
	return nil
}

// FindByID loads an itinerary with its locations and activities, the
// shape the planner UI and exporter both consume.
func (r *ItineraryRepository) FindByID(id uint) (*models.Itinerary, error) {
	var itinerary models.Itinerary
	err := r.db.
		Preload("Locations", func(db *gorm.DB) *gorm.DB {
			return db.Order("locations.day, locations.id")
		}).
		Preload("Locations.Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("activities.position")
		}).
		First(&itinerary, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}
	return &itinerary, nil
}

func (r *ItineraryRepository) FindByShareCode(code string) (*models.Itinerary, error) {
	var itinerary models.Itinerary
	err := r.db.Where("share_code = ?", code).First(&itinerary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}
	return &itinerary, nil
}

func (r *ItineraryRepository) FindByOwner(ownerID uint) ([]models.Itinerary, error) {
	var itineraries []models.Itinerary
	err := r.db.Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&itineraries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	return itineraries, nil
}

func (r *ItineraryRepository) Update(itinerary *models.Itinerary) error {
	result := r.db.Save(itinerary)
	if result.Error != nil {
		return fmt.Errorf("failed to update itinerary: %w", result.Error)
	}
	return nil
}

func (r *ItineraryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var locationIDs []uint
		if err := tx.Model(&models.Location{}).
			Where("itinerary_id = ?", id).
			Pluck("id", &locationIDs).Error; err != nil {
			return err
		}

		if len(locationIDs) > 0 {
			if err := tx.Where("location_id IN ?", locationIDs).
				Delete(&models.Activity{}).Error; err != nil {
				return err
			}
			if err := tx.Where("itinerary_id = ?", id).
				Delete(&models.Location{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Itinerary{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItineraryNotFound
		}
		return nil
	})
}

// ReplacePlan swaps an itinerary's locations and activities for a newly
// generated or optimized plan in one transaction.
func (r *ItineraryRepository) ReplacePlan(itineraryID uint, locations []models.Location) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var locationIDs []uint
		if err := tx.Model(&models.Location{}).
			Where("itinerary_id = ?", itineraryID).
			Pluck("id", &locationIDs).Error; err != nil {
			return err
		}
		if len(locationIDs) > 0 {
			if err := tx.Where("location_id IN ?", locationIDs).
				Delete(&models.Activity{}).Error; err != nil {
				return err
			}
			if err := tx.Where("itinerary_id = ?", itineraryID).
				Delete(&models.Location{}).Error; err != nil {
				return err
			}
		}

		// Optimized plans arrive as previously-loaded rows; clear their
		// keys so they insert as fresh records instead of colliding with
		// the soft-deleted originals.
		for i := range locations {
			locations[i].Model = gorm.Model{}
			locations[i].ItineraryID = itineraryID
			for j := range locations[i].Activities {
				locations[i].Activities[j].Model = gorm.Model{}
				locations[i].Activities[j].LocationID = 0
			}
			if err := tx.Create(&locations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
