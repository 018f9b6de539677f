// Package detail enriches canonical businesses with extended attributes,
// photo metadata, and the capped native-review batch.
package detail

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/metrics"
	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/places"
	"github.com/atxeats/harvester/internal/venue"
)

// DetailsAPI is the slice of the places client the enricher needs.
type DetailsAPI interface {
	Details(ctx context.Context, placeID string) (places.DetailsResult, error)
}

// Config bounds the enrichment loop.
type Config struct {
	// RequestDelay is the fixed politeness wait between detail requests.
	RequestDelay time.Duration
}

// Enricher issues one detail request per canonical business.
type Enricher struct {
	api    DetailsAPI
	pause  pace.Pauser
	cfg    Config
	logger *zap.Logger
}

// Batch is the exploded output for one business: the singleton record plus
// one row per photo attribution and per native review.
type Batch struct {
	Record  venue.DetailRecord
	Photos  []venue.PhotoAttribution
	Reviews []venue.NativeReview
}

// New constructs an Enricher.
func New(api DetailsAPI, pause pace.Pauser, cfg Config, logger *zap.Logger) *Enricher {
	if pause == nil {
		pause = pace.Timer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{api: api, pause: pause, cfg: cfg, logger: logger}
}

// EnrichAll fetches details for every canonical business, sequentially, with
// a fixed delay between requests. A failed fetch yields a record whose
// FetchStatus is "failed" so attempted-and-failed stays distinguishable from
// never-attempted.
func (e *Enricher) EnrichAll(ctx context.Context, businesses []venue.Listing) []Batch {
	batches := make([]Batch, 0, len(businesses))
	for i, biz := range businesses {
		if ctx.Err() != nil {
			return batches
		}
		batches = append(batches, e.enrichOne(ctx, biz))
		if i < len(businesses)-1 {
			e.pause.Pause(ctx, e.cfg.RequestDelay)
		}
	}
	return batches
}

func (e *Enricher) enrichOne(ctx context.Context, biz venue.Listing) Batch {
	result, err := e.api.Details(ctx, biz.BusinessID)
	if err != nil {
		metrics.RequestErrors.Inc()
		e.logger.Warn("detail fetch failed",
			zap.String("business_id", biz.BusinessID),
			zap.String("name", biz.Name),
			zap.Error(err))
		return Batch{Record: venue.DetailRecord{
			BusinessID:  biz.BusinessID,
			Name:        biz.Name,
			FetchStatus: venue.DetailFetchFailed,
		}}
	}
	metrics.DetailsFetched.Inc()

	// Each section is extracted independently so a malformed one never
	// corrupts or blocks the others for the same business.
	batch := Batch{
		Record:  e.extractRecord(biz, result),
		Photos:  e.extractPhotos(biz.BusinessID, result.Photos),
		Reviews: e.extractReviews(biz.BusinessID, result.Reviews),
	}
	return batch
}

func (e *Enricher) extractRecord(biz venue.Listing, result places.DetailsResult) venue.DetailRecord {
	record := venue.DetailRecord{
		BusinessID:  biz.BusinessID,
		Name:        biz.Name,
		Phone:       result.FormattedPhone,
		Website:     result.Website,
		FetchStatus: venue.DetailFetchOK,
	}
	if result.Name != "" {
		record.Name = result.Name
	}
	if result.EditorialSummary != nil {
		record.Summary = result.EditorialSummary.Overview
	}
	if result.OpeningHours != nil {
		record.HoursText = strings.Join(result.OpeningHours.WeekdayText, venue.HoursSeparator)
	}
	return record
}

func (e *Enricher) extractPhotos(businessID string, photos []places.Photo) []venue.PhotoAttribution {
	var rows []venue.PhotoAttribution
	for _, photo := range photos {
		if photo.PhotoReference == "" {
			e.logger.Debug("skipping photo without reference", zap.String("business_id", businessID))
			continue
		}
		if len(photo.HTMLAttributions) == 0 {
			rows = append(rows, venue.PhotoAttribution{
				BusinessID:     businessID,
				PhotoReference: photo.PhotoReference,
				Width:          photo.Width,
				Height:         photo.Height,
			})
			continue
		}
		for _, attr := range photo.HTMLAttributions {
			rows = append(rows, venue.PhotoAttribution{
				BusinessID:     businessID,
				PhotoReference: photo.PhotoReference,
				Width:          photo.Width,
				Height:         photo.Height,
				Attribution:    attr,
			})
		}
	}
	return rows
}

func (e *Enricher) extractReviews(businessID string, reviews []places.Review) []venue.NativeReview {
	var rows []venue.NativeReview
	for _, review := range reviews {
		if review.Text == "" && review.AuthorName == "" {
			continue
		}
		rows = append(rows, venue.NativeReview{
			BusinessID:   businessID,
			Author:       review.AuthorName,
			Rating:       review.Rating,
			Text:         review.Text,
			RelativeTime: review.RelativeTimeDescription,
		})
	}
	return rows
}
