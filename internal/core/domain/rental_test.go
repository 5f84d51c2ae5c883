package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCompleteReturn(t *testing.T) {
	dateOut := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rental := Rental{
		ID:      "rental-1",
		Movie:   MovieSnapshot{ID: "movie-1", Title: "Terminator", DailyRentalRate: 2.5},
		DateOut: dateOut,
	}

	returnedAt := dateOut.Add(3 * 24 * time.Hour)
	if err := rental.CompleteReturn(returnedAt); err != nil {
		t.Fatalf("CompleteReturn failed: %v", err)
	}

	if rental.DateReturned == nil || !rental.DateReturned.Equal(returnedAt) {
		t.Errorf("expected DateReturned %v, got %v", returnedAt, rental.DateReturned)
	}
	if rental.RentalFee == nil || *rental.RentalFee != 7.5 {
		t.Errorf("expected fee 7.5, got %v", rental.RentalFee)
	}
}

func TestCompleteReturn_PartialDayBilledInFull(t *testing.T) {
	dateOut := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rental := Rental{
		Movie:   MovieSnapshot{DailyRentalRate: 2},
		DateOut: dateOut,
	}

	// 36 hours out: the second day has started, so two days are billed.
	if err := rental.CompleteReturn(dateOut.Add(36 * time.Hour)); err != nil {
		t.Fatalf("CompleteReturn failed: %v", err)
	}
	if rental.RentalFee == nil || *rental.RentalFee != 4 {
		t.Errorf("expected fee 4 for 36 hours at rate 2, got %v", rental.RentalFee)
	}
}

func TestCompleteReturn_MinimumOneDay(t *testing.T) {
	dateOut := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rental := Rental{
		Movie:   MovieSnapshot{DailyRentalRate: 4},
		DateOut: dateOut,
	}

	if err := rental.CompleteReturn(dateOut.Add(2 * time.Hour)); err != nil {
		t.Fatalf("CompleteReturn failed: %v", err)
	}
	if rental.RentalFee == nil || *rental.RentalFee != 4 {
		t.Errorf("expected minimum one-day fee 4, got %v", rental.RentalFee)
	}
}

func TestCompleteReturn_AlreadyReturned(t *testing.T) {
	dateOut := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rental := Rental{
		Movie:   MovieSnapshot{DailyRentalRate: 2},
		DateOut: dateOut,
	}

	if err := rental.CompleteReturn(dateOut.Add(24 * time.Hour)); err != nil {
		t.Fatalf("first return failed: %v", err)
	}

	err := rental.CompleteReturn(dateOut.Add(48 * time.Hour))
	if !errors.Is(err, ErrAlreadyReturned) {
		t.Errorf("expected ErrAlreadyReturned, got: %v", err)
	}
	if *rental.RentalFee != 2 {
		t.Errorf("fee changed by second return: got %v", *rental.RentalFee)
	}
}
