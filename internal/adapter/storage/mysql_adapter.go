package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vidly/rental/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetMovie(ctx context.Context, movieID string) (*domain.Movie, error) {
	var movie domain.Movie
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, genre, number_in_stock, daily_rental_rate
		FROM movies WHERE id = ?`, movieID,
	).Scan(&movie.ID, &movie.Title, &movie.Genre, &movie.NumberInStock, &movie.DailyRentalRate)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query movie: %w", err)
	}
	return &movie, nil
}

func (m *MySQLAdapter) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, phone, is_gold
		FROM customers WHERE id = ?`, customerID,
	).Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.IsGold)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &customer, nil
}

// Reserve is the single serialization point for a movie's stock. The predicate
// and the decrement execute as one statement, so two callers contending for
// the last copy cannot both succeed.
func (m *MySQLAdapter) Reserve(ctx context.Context, movieID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE movies
		SET number_in_stock = number_in_stock - 1
		WHERE id = ? AND number_in_stock > 0`, movieID,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// The predicate failed; distinguish a missing title from an empty shelf.
	var stock int
	err = m.db.QueryRowContext(ctx,
		`SELECT number_in_stock FROM movies WHERE id = ?`, movieID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMovieNotFound
	}
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	return domain.ErrOutOfStock
}

func (m *MySQLAdapter) Release(ctx context.Context, movieID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE movies
		SET number_in_stock = number_in_stock + 1
		WHERE id = ?`, movieID,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if rows == 0 {
		return domain.ErrMovieNotFound
	}
	return nil
}

func (m *MySQLAdapter) CreateRental(ctx context.Context, rental domain.Rental) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO rentals
			(id, customer_id, customer_name, customer_phone,
			 movie_id, movie_title, daily_rental_rate, date_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rental.ID,
		rental.Customer.ID, rental.Customer.Name, rental.Customer.Phone,
		rental.Movie.ID, rental.Movie.Title, rental.Movie.DailyRentalRate,
		rental.DateOut,
	)
	if err != nil {
		return fmt.Errorf("insert rental: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, customer_phone,
		       movie_id, movie_title, daily_rental_rate,
		       date_out, date_returned, rental_fee
		FROM rentals WHERE id = ?`, rentalID,
	)

	rental, err := scanRental(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rental: %w", err)
	}
	return rental, nil
}

// CompleteReturn closes the rental only if it is still open. The guard in the
// WHERE clause serializes concurrent returns of the same rental.
func (m *MySQLAdapter) CompleteReturn(ctx context.Context, rental domain.Rental) error {
	if rental.DateReturned == nil || rental.RentalFee == nil {
		return fmt.Errorf("complete return: rental %s has no return fields set", rental.ID)
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE rentals
		SET date_returned = ?, rental_fee = ?
		WHERE id = ? AND date_returned IS NULL`,
		*rental.DateReturned, *rental.RentalFee, rental.ID,
	)
	if err != nil {
		return fmt.Errorf("complete return: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete return: %w", err)
	}
	if rows == 0 {
		return domain.ErrAlreadyReturned
	}
	return nil
}

func (m *MySQLAdapter) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_name, customer_phone,
		       movie_id, movie_title, daily_rental_rate,
		       date_out, date_returned, rental_fee
		FROM rentals ORDER BY date_out DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("list rentals: %w", err)
		}
		rentals = append(rentals, *rental)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return rentals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	var (
		rental       domain.Rental
		dateReturned sql.NullTime
		rentalFee    sql.NullFloat64
	)

	err := row.Scan(
		&rental.ID,
		&rental.Customer.ID, &rental.Customer.Name, &rental.Customer.Phone,
		&rental.Movie.ID, &rental.Movie.Title, &rental.Movie.DailyRentalRate,
		&rental.DateOut, &dateReturned, &rentalFee,
	)
	if err != nil {
		return nil, err
	}

	if dateReturned.Valid {
		rental.DateReturned = &dateReturned.Time
	}
	if rentalFee.Valid {
		rental.RentalFee = &rentalFee.Float64
	}
	return &rental, nil
}
