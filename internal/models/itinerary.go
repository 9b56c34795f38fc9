package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Itinerary is a multi-day travel plan owned by one user and editable
// collaboratively through a share code.
type Itinerary struct {
	gorm.Model
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Title       string    `gorm:"not null" json:"title"`
	Destination string    `gorm:"not null" json:"destination"`
	StartDate   time.Time `json:"start_date"`
	Days        int       `json:"days"`
	// ShareCode doubles as the collaboration room id for this itinerary.
	ShareCode string `gorm:"uniqueIndex" json:"share_code"`
	Notes     string `json:"notes,omitempty"`

	Locations []Location `gorm:"constraint:OnDelete:CASCADE" json:"locations,omitempty"`
}

// Location is one place on an itinerary, holding the activities planned
// there.
type Location struct {
	gorm.Model
	ItineraryID uint    `gorm:"index;not null" json:"itinerary_id"`
	Name        string  `gorm:"not null" json:"name"`
	Day         int     `json:"day"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	Activities []Activity `gorm:"constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

// Activity is a single scheduled item at a location.
type Activity struct {
	gorm.Model
	LocationID uint   `gorm:"index;not null" json:"location_id"`
	Name       string `gorm:"not null" json:"name"`
	Category   string `json:"category"` // sightseeing, food, museum, outdoors, shopping, nightlife
	TimeOfDay  string `json:"time_of_day"`
	Position   int    `json:"position"` // order within the day
	DurationMi int    `json:"duration_minutes"`
	Notes      string `json:"notes,omitempty"`
}

/** -------------------- DTOs -------------------- */
type CreateItineraryRequest struct {
	Title       string    `json:"title" binding:"required,max=120"`
	Destination string    `json:"destination" binding:"required,max=120"`
	StartDate   time.Time `json:"start_date"`
	Days        int       `json:"days" binding:"required,min=1,max=60"`
	Notes       string    `json:"notes"`
}

type UpdateItineraryRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=120"`
	Destination *string    `json:"destination,omitempty" binding:"omitempty,max=120"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	Days        *int       `json:"days,omitempty" binding:"omitempty,min=1,max=60"`
	Notes       *string    `json:"notes,omitempty"`
}

type GenerateItineraryRequest struct {
	Destination string   `json:"destination" binding:"required,max=120"`
	Days        int      `json:"days" binding:"required,min=1,max=30"`
	Interests   []string `json:"interests"`
	Budget      string   `json:"budget"` // low, medium, high
}

type ItineraryResponse struct {
	ID          uint       `json:"id"`
	OwnerID     uint       `json:"owner_id"`
	Title       string     `json:"title"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"start_date"`
	Days        int        `json:"days"`
	ShareCode   string     `json:"share_code"`
	Notes       string     `json:"notes,omitempty"`
	Locations   []Location `json:"locations,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type OptimizeResponse struct {
	ItineraryID uint               `json:"itinerary_id"`
	Score       float64            `json:"score"`
	Summary     string             `json:"summary,omitempty"`
	Itinerary   *ItineraryResponse `json:"itinerary,omitempty"`
}
