package models

import "time"

type MangaStatus string

const (
	StatusOngoing   MangaStatus = "ONGOING"
	StatusCompleted MangaStatus = "COMPLETED"
	StatusHiatus    MangaStatus = "HIATUS"
	StatusCancelled MangaStatus = "CANCELLED"
)

// Manga is a catalog record stored in the local database.
// MangadexID links the record to the provider and is unique when set.
type Manga struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	MangadexID    *string     `json:"mangadexId"`
	Year          *int        `json:"year"`
	CoverImageURL *string     `json:"coverImageUrl"`
	Status        MangaStatus `json:"status,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
