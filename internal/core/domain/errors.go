package domain

import "errors"

var (
	ErrMovieNotFound     = errors.New("invalid movie")
	ErrCustomerNotFound  = errors.New("invalid customer")
	ErrRentalNotFound    = errors.New("rental not found")
	ErrOutOfStock        = errors.New("movie not in stock")
	ErrAlreadyReturned   = errors.New("rental already returned")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrTransactionFailed = errors.New("rental transaction failed")
)
