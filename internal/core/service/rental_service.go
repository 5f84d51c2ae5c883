package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vidly/rental/internal/clock"
	"github.com/vidly/rental/internal/core/domain"
	"github.com/vidly/rental/internal/port"
)

const defaultReleaseRetryBudget = 30 * time.Second

// RentalService coordinates the two-step rental transaction: reserve one unit
// of stock, then append the rental record. Each step is individually atomic;
// the service guarantees the visible combination is always "nothing happened"
// or "everything happened". When the record write fails after a successful
// reservation, the reservation is released before the caller sees the error.
type RentalService struct {
	catalog   port.CatalogRepository
	inventory port.InventoryRepository
	rentals   port.RentalRepository
	guard     port.RequestGuard
	journal   port.ReleaseJournal
	clock     clock.Clock

	releaseRetryBudget time.Duration
}

type RentalServiceOption func(*RentalService)

// WithReleaseRetryBudget bounds the in-process retry time for a stock release
// before the intent is handed to the journal.
func WithReleaseRetryBudget(d time.Duration) RentalServiceOption {
	return func(s *RentalService) {
		if d > 0 {
			s.releaseRetryBudget = d
		}
	}
}

func NewRentalService(
	catalog port.CatalogRepository,
	inventory port.InventoryRepository,
	rentals port.RentalRepository,
	guard port.RequestGuard,
	journal port.ReleaseJournal,
	clk clock.Clock,
	opts ...RentalServiceOption,
) *RentalService {
	svc := &RentalService{
		catalog:            catalog,
		inventory:          inventory,
		rentals:            rentals,
		guard:              guard,
		journal:            journal,
		clock:              clk,
		releaseRetryBudget: defaultReleaseRetryBudget,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type RentMovieInput struct {
	// RequestID is optional; when set, duplicate submissions are rejected.
	RequestID  string
	CustomerID string
	MovieID    string
}

// RentMovie runs one rental-creation attempt. Outcomes:
//   - nil error: stock decremented and rental recorded, both durable.
//   - domain.ErrCustomerNotFound / domain.ErrMovieNotFound: no side effect.
//   - domain.ErrOutOfStock: no side effect.
//   - domain.ErrDuplicateRequest: no side effect.
//   - domain.ErrTransactionFailed: the reservation has been released (or its
//     release durably journaled); state is as if the request never arrived.
//
// On every failure that leaves no durable state the request-ID claim is
// dropped again, so the caller may retry with the same ID.
func (s *RentalService) RentMovie(ctx context.Context, in RentMovieInput) (domain.Rental, error) {
	if in.RequestID != "" {
		ok, err := s.guard.ClaimRequest(ctx, in.RequestID)
		if err != nil {
			return domain.Rental{}, fmt.Errorf("request guard: %w", err)
		}
		if !ok {
			return domain.Rental{}, domain.ErrDuplicateRequest
		}
	}

	customer, err := s.catalog.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		s.releaseClaim(ctx, in.RequestID)
		return domain.Rental{}, fmt.Errorf("resolve customer: %w", err)
	}
	if customer == nil {
		s.releaseClaim(ctx, in.RequestID)
		return domain.Rental{}, domain.ErrCustomerNotFound
	}

	movie, err := s.catalog.GetMovie(ctx, in.MovieID)
	if err != nil {
		s.releaseClaim(ctx, in.RequestID)
		return domain.Rental{}, fmt.Errorf("resolve movie: %w", err)
	}
	if movie == nil {
		s.releaseClaim(ctx, in.RequestID)
		return domain.Rental{}, domain.ErrMovieNotFound
	}

	if err := s.inventory.Reserve(ctx, movie.ID); err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			outOfStockRejections.Inc()
			s.releaseClaim(ctx, in.RequestID)
			return domain.Rental{}, domain.ErrOutOfStock
		}
		if errors.Is(err, domain.ErrMovieNotFound) {
			s.releaseClaim(ctx, in.RequestID)
			return domain.Rental{}, domain.ErrMovieNotFound
		}
		// Reserve outcome unknown: the claim stays so a retry cannot take a
		// second unit for the same request.
		return domain.Rental{}, fmt.Errorf("%w: reserve stock: %v", domain.ErrTransactionFailed, err)
	}

	rental := domain.Rental{
		ID: uuid.New().String(),
		Customer: domain.CustomerSnapshot{
			ID:    customer.ID,
			Name:  customer.Name,
			Phone: customer.Phone,
		},
		Movie: domain.MovieSnapshot{
			ID:              movie.ID,
			Title:           movie.Title,
			DailyRentalRate: movie.DailyRentalRate,
		},
		DateOut: s.clock.Now(),
	}

	if err := s.rentals.CreateRental(ctx, rental); err != nil {
		compensationsRun.Inc()
		s.releaseOrJournal(ctx, movie.ID)
		s.releaseClaim(ctx, in.RequestID)
		return domain.Rental{}, fmt.Errorf("%w: create rental: %v", domain.ErrTransactionFailed, err)
	}

	rentalsCreated.Inc()
	return rental, nil
}

// ReturnMovie closes a rental: stamps the return, computes the fee from the
// rate snapshot and puts the unit back on the shelf. The rental record is the
// serialization point; stock is released only after the record says returned.
func (s *RentalService) ReturnMovie(ctx context.Context, rentalID string) (domain.Rental, error) {
	rental, err := s.rentals.GetRental(ctx, rentalID)
	if err != nil {
		return domain.Rental{}, fmt.Errorf("resolve rental: %w", err)
	}
	if rental == nil {
		return domain.Rental{}, domain.ErrRentalNotFound
	}

	if err := rental.CompleteReturn(s.clock.Now()); err != nil {
		return domain.Rental{}, err
	}

	if err := s.rentals.CompleteReturn(ctx, *rental); err != nil {
		if errors.Is(err, domain.ErrAlreadyReturned) {
			// A concurrent return won; it also owns the stock release.
			return domain.Rental{}, domain.ErrAlreadyReturned
		}
		return domain.Rental{}, fmt.Errorf("%w: complete return: %v", domain.ErrTransactionFailed, err)
	}

	s.releaseOrJournal(ctx, rental.Movie.ID)
	return *rental, nil
}

// ListRentals returns all rentals, most recent first.
func (s *RentalService) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	return s.rentals.ListRentals(ctx)
}

// releaseClaim drops the request-ID claim after a failed attempt that left no
// state behind. A release that fails is only logged: the claim carries a TTL,
// so the caller is blocked for a bounded time, not forever.
func (s *RentalService) releaseClaim(ctx context.Context, requestID string) {
	if requestID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.guard.ReleaseRequest(ctx, requestID); err != nil {
		log.Warn().Err(err).Str("request_id", requestID).
			Msg("request claim not released; retry blocked until the claim expires")
	}
}

// releaseOrJournal puts one unit of stock back, retrying with backoff until
// the retry budget runs out, then records a durable release intent for the
// reconciler. A reservation is never silently lost: losing one would leave
// stock decremented with no rental to show for it.
func (s *RentalService) releaseOrJournal(ctx context.Context, movieID string) {
	// The caller's context may already be cancelled; the release still has
	// to land.
	ctx = context.WithoutCancel(ctx)

	op := func() error {
		err := s.inventory.Release(ctx, movieID)
		if errors.Is(err, domain.ErrMovieNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = s.releaseRetryBudget

	err := backoff.Retry(op, bo)
	if err == nil {
		log.Info().Str("movie_id", movieID).Msg("stock release applied")
		return
	}

	if errors.Is(err, domain.ErrMovieNotFound) {
		compensationFailures.Inc()
		log.Error().Str("movie_id", movieID).
			Msg("stock release targets a missing movie; reservation cannot be undone")
		return
	}

	compensationFailures.Inc()
	if jerr := s.journal.AppendRelease(ctx, movieID); jerr != nil {
		log.Error().Err(err).AnErr("journal_error", jerr).Str("movie_id", movieID).
			Msg("stock release unconfirmed and journal unavailable; manual reconciliation required")
		return
	}
	log.Error().Err(err).Str("movie_id", movieID).
		Msg("stock release unconfirmed; intent journaled for reconciler")
}
