package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vidly/rental/internal/core/domain"
	"github.com/vidly/rental/internal/core/service"
)

type HTTPHandler struct {
	rentalService *service.RentalService
}

func NewHTTPHandler(rentalService *service.RentalService) *HTTPHandler {
	return &HTTPHandler{rentalService: rentalService}
}

type RentRequest struct {
	RequestID  string `json:"request_id,omitempty"`
	CustomerID string `json:"customer_id"`
	MovieID    string `json:"movie_id"`
}

type ReturnRequest struct {
	RentalID string `json:"rental_id"`
}

type CustomerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type MovieResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DailyRentalRate float64 `json:"daily_rental_rate"`
}

type RentalResponse struct {
	ID           string           `json:"id"`
	Customer     CustomerResponse `json:"customer"`
	Movie        MovieResponse    `json:"movie"`
	DateOut      time.Time        `json:"date_out"`
	DateReturned *time.Time       `json:"date_returned,omitempty"`
	RentalFee    *float64         `json:"rental_fee,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func (h *HTTPHandler) Rentals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.rent(w, r)
	case http.MethodGet:
		h.listRentals(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) rent(w http.ResponseWriter, r *http.Request) {
	var req RentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if req.CustomerID == "" || req.MovieID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "missing required fields"})
		return
	}

	rental, err := h.rentalService.RentMovie(r.Context(), service.RentMovieInput{
		RequestID:  req.RequestID,
		CustomerID: req.CustomerID,
		MovieID:    req.MovieID,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "something failed"

		switch {
		case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrMovieNotFound):
			status = http.StatusBadRequest
			message = "invalid customer or movie"
		case errors.Is(err, domain.ErrOutOfStock):
			status = http.StatusGone
			message = "movie not in stock"
		case errors.Is(err, domain.ErrDuplicateRequest):
			status = http.StatusConflict
			message = "duplicate request"
		default:
			log.Error().Err(err).Str("customer_id", req.CustomerID).Str("movie_id", req.MovieID).
				Msg("rental transaction failed")
		}

		writeJSON(w, status, ErrorResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusCreated, toRentalResponse(rental))
}

func (h *HTTPHandler) listRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.rentalService.ListRentals(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listing rentals failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "something failed"})
		return
	}

	out := make([]RentalResponse, 0, len(rentals))
	for _, rental := range rentals {
		out = append(out, toRentalResponse(rental))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if req.RentalID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "missing required fields"})
		return
	}

	rental, err := h.rentalService.ReturnMovie(r.Context(), req.RentalID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "something failed"

		switch {
		case errors.Is(err, domain.ErrRentalNotFound):
			status = http.StatusNotFound
			message = "rental not found"
		case errors.Is(err, domain.ErrAlreadyReturned):
			status = http.StatusConflict
			message = "rental already returned"
		default:
			log.Error().Err(err).Str("rental_id", req.RentalID).Msg("return failed")
		}

		writeJSON(w, status, ErrorResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusOK, toRentalResponse(rental))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toRentalResponse(rental domain.Rental) RentalResponse {
	return RentalResponse{
		ID: rental.ID,
		Customer: CustomerResponse{
			ID:    rental.Customer.ID,
			Name:  rental.Customer.Name,
			Phone: rental.Customer.Phone,
		},
		Movie: MovieResponse{
			ID:              rental.Movie.ID,
			Title:           rental.Movie.Title,
			DailyRentalRate: rental.Movie.DailyRentalRate,
		},
		DateOut:      rental.DateOut,
		DateReturned: rental.DateReturned,
		RentalFee:    rental.RentalFee,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
