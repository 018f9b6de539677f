// Package metrics exposes the run counters and the optional scrape endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks directory pages fetched and persisted.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_pages_fetched_total",
		Help: "The total number of directory result pages fetched and saved.",
	})
	// RequestErrors tracks upstream requests that resulted in an error.
	RequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_request_errors_total",
		Help: "The total number of failed upstream requests.",
	})
	// ListingsConsolidated tracks canonical businesses emitted.
	ListingsConsolidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_listings_consolidated_total",
		Help: "The total number of canonical businesses emitted.",
	})
	// DetailsFetched tracks successful detail enrichments.
	DetailsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_details_fetched_total",
		Help: "The total number of successful detail fetches.",
	})
	// ReviewsScraped tracks extracted review rows.
	ReviewsScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_reviews_scraped_total",
		Help: "The total number of review rows extracted.",
	})
	// BusinessesSaved tracks businesses that reached the SAVED state.
	BusinessesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_businesses_saved_total",
		Help: "The total number of businesses harvested and checkpointed.",
	})
	// BusinessesFailed tracks businesses that ended a run in FAILED.
	BusinessesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_businesses_failed_total",
		Help: "The total number of businesses that failed harvesting.",
	})
	// BusinessesSkipped tracks checkpoint and low-score skips.
	BusinessesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_businesses_skipped_total",
		Help: "The total number of businesses skipped.",
	})
)
