package domain

import "github.com/shopspring/decimal"

type VenueType string

const (
	VenueTypeBadminton  VenueType = "badminton"
	VenueTypeFutsal     VenueType = "futsal"
	VenueTypeBasketball VenueType = "basketball"
	VenueTypeOther      VenueType = "other"
)

type Venue struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        VenueType `json:"type"`
	Location    string    `json:"location"`
	OpeningTime TimeOfDay `json:"opening_time"`
	ClosingTime TimeOfDay `json:"closing_time"`
	Active      bool      `json:"is_active"`
}

// Open reports whether [start, end) fits inside the venue's opening hours.
func (v Venue) Open(start, end TimeOfDay) bool {
	return start >= v.OpeningTime && end <= v.ClosingTime
}

type CourtStatus string

const (
	CourtStatusAvailable   CourtStatus = "available"
	CourtStatusUnavailable CourtStatus = "unavailable"
)

type Court struct {
	ID         int64           `json:"id"`
	VenueID    int64           `json:"venue_id"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	Capacity   int             `json:"capacity"`
	Status     CourtStatus     `json:"status"`
}

type Equipment struct {
	ID          int64           `json:"id"`
	VenueID     int64           `json:"venue_id"`
	Name        string          `json:"name"`
	Stock       int             `json:"stock"`
	RentalPrice decimal.Decimal `json:"rental_price"`
}
