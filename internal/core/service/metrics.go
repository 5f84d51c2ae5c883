package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rentalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentals_created_total",
		Help: "Rentals committed (stock decremented and record written).",
	})

	outOfStockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_out_of_stock_total",
		Help: "Rental requests rejected because the title had no stock.",
	})

	compensationsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_compensations_total",
		Help: "Stock releases run to undo a reservation after a failed record write.",
	})

	// A non-zero value here means a reservation could not be undone in
	// process and was escalated. It is a consistency alarm, not an
	// ordinary error count.
	compensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_compensation_failures_total",
		Help: "Stock releases that exhausted in-process retries and were journaled or escalated.",
	})
)
