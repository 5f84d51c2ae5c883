package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vidly/rental/internal/clock"
	"github.com/vidly/rental/internal/core/domain"
	"github.com/vidly/rental/internal/core/service"
)

type memStore struct {
	mu        sync.Mutex
	movies    map[string]domain.Movie
	customers map[string]domain.Customer
	rentals   map[string]domain.Rental
	claimed   map[string]bool
	journal   []string
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		movies:    make(map[string]domain.Movie),
		customers: make(map[string]domain.Customer),
		rentals:   make(map[string]domain.Rental),
		claimed:   make(map[string]bool),
	}
}

func (m *memStore) GetMovie(ctx context.Context, movieID string) (*domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.movies[movieID]
	if !ok {
		return nil, nil
	}
	return &movie, nil
}

func (m *memStore) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[customerID]
	if !ok {
		return nil, nil
	}
	return &customer, nil
}

func (m *memStore) Reserve(ctx context.Context, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.movies[movieID]
	if !ok {
		return domain.ErrMovieNotFound
	}
	if movie.NumberInStock == 0 {
		return domain.ErrOutOfStock
	}
	movie.NumberInStock--
	m.movies[movieID] = movie
	return nil
}

func (m *memStore) Release(ctx context.Context, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.movies[movieID]
	if !ok {
		return domain.ErrMovieNotFound
	}
	movie.NumberInStock++
	m.movies[movieID] = movie
	return nil
}

func (m *memStore) CreateRental(ctx context.Context, rental domain.Rental) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.rentals[rental.ID] = rental
	return nil
}

func (m *memStore) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.rentals[rentalID]
	if !ok {
		return nil, nil
	}
	return &rental, nil
}

func (m *memStore) CompleteReturn(ctx context.Context, rental domain.Rental) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rentals[rental.ID]
	if !ok {
		return domain.ErrRentalNotFound
	}
	if stored.DateReturned != nil {
		return domain.ErrAlreadyReturned
	}
	m.rentals[rental.ID] = rental
	return nil
}

func (m *memStore) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Rental, 0, len(m.rentals))
	for _, rental := range m.rentals {
		out = append(out, rental)
	}
	return out, nil
}

func (m *memStore) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[requestID] {
		return false, nil
	}
	m.claimed[requestID] = true
	return true, nil
}

func (m *memStore) ReleaseRequest(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, requestID)
	return nil
}

func (m *memStore) AppendRelease(ctx context.Context, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, movieID)
	return nil
}

func (m *memStore) NextRelease(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.journal) == 0 {
		return "", nil
	}
	movieID := m.journal[0]
	m.journal = m.journal[1:]
	return movieID, nil
}

func newTestHandler(store *memStore) *HTTPHandler {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := service.NewRentalService(store, store, store, store, store, clock.NewFixed(now),
		service.WithReleaseRetryBudget(100*time.Millisecond))
	return NewHTTPHandler(svc)
}

func seedStore(store *memStore, stock int) {
	store.movies["movie-1"] = domain.Movie{ID: "movie-1", Title: "Terminator", Genre: "action", NumberInStock: stock, DailyRentalRate: 2.5}
	store.customers["customer-1"] = domain.Customer{ID: "customer-1", Name: "John Smith", Phone: "12345678"}
}

func TestRent_Created(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"customer-1","movie_id":"movie-1"}`))
	rec := httptest.NewRecorder()

	h.Rentals(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp RentalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "Terminator", resp.Movie.Title)
	require.Equal(t, "John Smith", resp.Customer.Name)
	require.Nil(t, resp.DateReturned)

	require.Equal(t, 2, store.movies["movie-1"].NumberInStock)
}

func TestRent_InvalidReference(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"ghost","movie_id":"movie-1"}`))
	rec := httptest.NewRecorder()

	h.Rentals(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 3, store.movies["movie-1"].NumberInStock)
	require.Empty(t, store.rentals)
}

func TestRent_OutOfStock(t *testing.T) {
	store := newMemStore()
	seedStore(store, 0)
	h := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"customer-1","movie_id":"movie-1"}`))
	rec := httptest.NewRecorder()

	h.Rentals(rec, req)

	require.Equal(t, http.StatusGone, rec.Code)
	require.Empty(t, store.rentals)
}

func TestRent_DuplicateRequest(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	body := `{"request_id":"req-1","customer_id":"customer-1","movie_id":"movie-1"}`

	rec := httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, 2, store.movies["movie-1"].NumberInStock)
}

func TestRent_TransactionFailed(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	store.createErr = errors.New("write rejected")
	h := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"customer-1","movie_id":"movie-1"}`))
	rec := httptest.NewRecorder()

	h.Rentals(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// Compensation restored the reservation before the response was written.
	require.Equal(t, 3, store.movies["movie-1"].NumberInStock)
	require.Empty(t, store.rentals)
}

func TestRent_BadBody(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(`{"movie_id":"movie-1"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReturn_Flow(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"customer-1","movie_id":"movie-1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created RentalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	body := `{"rental_id":"` + created.ID + `"}`

	rec = httptest.NewRecorder()
	h.Return(rec, httptest.NewRequest(http.MethodPost, "/api/returns", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var returned RentalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&returned))
	require.NotNil(t, returned.DateReturned)
	require.NotNil(t, returned.RentalFee)
	require.Equal(t, 2.5, *returned.RentalFee)
	require.Equal(t, 3, store.movies["movie-1"].NumberInStock)

	// Second return is rejected.
	rec = httptest.NewRecorder()
	h.Return(rec, httptest.NewRequest(http.MethodPost, "/api/returns", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReturn_NotFound(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Return(rec, httptest.NewRequest(http.MethodPost, "/api/returns", strings.NewReader(`{"rental_id":"ghost"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRentals(t *testing.T) {
	store := newMemStore()
	seedStore(store, 3)
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodPost, "/api/rentals",
		strings.NewReader(`{"customer_id":"customer-1","movie_id":"movie-1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodGet, "/api/rentals", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rentals []RentalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rentals))
	require.Len(t, rentals, 1)
}

func TestRentals_MethodNotAllowed(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.Rentals(rec, httptest.NewRequest(http.MethodDelete, "/api/rentals", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
