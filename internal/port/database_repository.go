package port

import (
	"context"

	"github.com/vidly/rental/internal/core/domain"
)

type CatalogRepository interface {
	// GetMovie retrieves a movie by ID, returning (nil, nil) when it does not exist
	GetMovie(ctx context.Context, movieID string) (*domain.Movie, error)

	// GetCustomer retrieves a customer by ID, returning (nil, nil) when it does not exist
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
}

type InventoryRepository interface {
	// Reserve atomically decrements a movie's stock by one if any is left.
	// Returns domain.ErrOutOfStock when stock is zero and domain.ErrMovieNotFound
	// when the movie does not exist. The test-and-decrement is a single
	// conditional update, never a read followed by a write.
	Reserve(ctx context.Context, movieID string) error

	// Release atomically increments a movie's stock by one. Used to undo a
	// reservation when a later step fails, and by the return flow.
	Release(ctx context.Context, movieID string) error
}

type RentalRepository interface {
	// CreateRental inserts a new rental record. Pure append, no retries.
	CreateRental(ctx context.Context, rental domain.Rental) error

	// GetRental retrieves a rental by ID, returning (nil, nil) when it does not exist
	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)

	// CompleteReturn persists the return fields of a rental. Returns
	// domain.ErrAlreadyReturned when the record was already closed, so two
	// concurrent returns cannot both release stock.
	CompleteReturn(ctx context.Context, rental domain.Rental) error

	// ListRentals returns all rentals, most recent date_out first
	ListRentals(ctx context.Context) ([]domain.Rental, error)
}
