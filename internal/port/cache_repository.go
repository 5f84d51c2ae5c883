package port

import "context"

type RequestGuard interface {
	// ClaimRequest marks a request ID as seen, returns false if already claimed
	ClaimRequest(ctx context.Context, requestID string) (bool, error)

	// ReleaseRequest drops a claim so the same request ID may be retried.
	// Called when the attempt left no durable state behind.
	ReleaseRequest(ctx context.Context, requestID string) error
}

type ReleaseJournal interface {
	// AppendRelease durably records that one unit of stock for the movie is
	// owed back. Used when an in-process release cannot be confirmed; a
	// journaled intent must never be dropped.
	AppendRelease(ctx context.Context, movieID string) error

	// NextRelease pops the oldest pending release, returning "" when the
	// journal is empty
	NextRelease(ctx context.Context) (string, error)
}
