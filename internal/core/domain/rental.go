package domain

import (
	"math"
	"time"
)

// CustomerSnapshot is the customer data frozen into a rental at creation time.
// Later edits to the customer do not change historical rentals.
type CustomerSnapshot struct {
	ID    string
	Name  string
	Phone string
}

// MovieSnapshot is the movie data frozen into a rental at creation time.
type MovieSnapshot struct {
	ID              string
	Title           string
	DailyRentalRate float64
}

// Rental links one customer and one movie at a point in time. It is created
// exactly once per successful transaction and never mutated afterwards,
// except to record the return.
type Rental struct {
	ID           string
	Customer     CustomerSnapshot
	Movie        MovieSnapshot
	DateOut      time.Time
	DateReturned *time.Time
	RentalFee    *float64
}

// CompleteReturn records the return time and computes the fee from the rate
// snapshot. A started day is billed in full; a rental shorter than a day is
// billed as one day.
func (r *Rental) CompleteReturn(at time.Time) error {
	if r.DateReturned != nil {
		return ErrAlreadyReturned
	}

	days := int(math.Ceil(at.Sub(r.DateOut).Hours() / 24))
	if days < 1 {
		days = 1
	}
	fee := float64(days) * r.Movie.DailyRentalRate

	r.DateReturned = &at
	r.RentalFee = &fee
	return nil
}
