package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vidly/rental/internal/core/domain"
	"github.com/vidly/rental/internal/port"
)

// ReleaseReconciler drains journaled stock releases in the background. An
// entry lands in the journal only when an in-process release exhausted its
// retries, so every entry corresponds to exactly one reservation that is
// still owed back.
type ReleaseReconciler struct {
	journal   port.ReleaseJournal
	inventory port.InventoryRepository
	interval  time.Duration
}

func NewReleaseReconciler(journal port.ReleaseJournal, inventory port.InventoryRepository, interval time.Duration) *ReleaseReconciler {
	return &ReleaseReconciler{
		journal:   journal,
		inventory: inventory,
		interval:  interval,
	}
}

// Run drains the journal on a fixed interval until the context is cancelled.
func (r *ReleaseReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain applies pending releases until the journal is empty or a release
// fails. A failed release is pushed back so the next pass retries it.
func (r *ReleaseReconciler) Drain(ctx context.Context) {
	for {
		movieID, err := r.journal.NextRelease(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reconciler: reading release journal failed")
			return
		}
		if movieID == "" {
			return
		}

		err = r.inventory.Release(ctx, movieID)
		if err == nil {
			log.Info().Str("movie_id", movieID).Msg("reconciler: journaled stock release applied")
			continue
		}

		if errors.Is(err, domain.ErrMovieNotFound) {
			// Nothing left to release against; dropping the entry is the
			// only option, but it stays visible in the logs.
			log.Error().Str("movie_id", movieID).
				Msg("reconciler: journaled release targets a missing movie, dropping")
			continue
		}

		if jerr := r.journal.AppendRelease(ctx, movieID); jerr != nil {
			log.Error().Err(err).AnErr("journal_error", jerr).Str("movie_id", movieID).
				Msg("reconciler: release failed and requeue failed; manual reconciliation required")
		} else {
			log.Warn().Err(err).Str("movie_id", movieID).
				Msg("reconciler: release failed, requeued")
		}
		return
	}
}
