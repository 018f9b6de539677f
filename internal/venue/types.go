// Package venue defines the core records shared across the harvesting
// pipeline: raw and canonical listings, detail records, and scraped reviews.
package venue

import (
	"strings"
	"time"
)

// TagSeparator joins multi-valued tag fields into a single column.
const TagSeparator = "|"

// HoursSeparator joins weekday opening-hours lines into one field.
const HoursSeparator = "||"

// Listing is one raw directory observation: one row per
// (business, grid cell, page) before consolidation, one row per business
// after.
type Listing struct {
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	PriceLevel  int     `json:"price_level"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TagList     string  `json:"tag_list"`
	CellID      string  `json:"cell_id"`
}

// Tags splits TagList on the separator, dropping empty entries.
func (l Listing) Tags() []string {
	if l.TagList == "" {
		return nil
	}
	parts := strings.Split(l.TagList, TagSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// QueryPage is the transient result of one paginated directory fetch. It is
// flattened into Listings on write and never mutated afterwards.
type QueryPage struct {
	Category      string    `json:"category"`
	CellID        string    `json:"grid_point_id"`
	PageIndex     int       `json:"page_index"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
	Listings      []Listing `json:"results"`
}

// DetailFetchStatus distinguishes attempted-and-failed detail fetches from
// businesses that were never attempted.
type DetailFetchStatus string

// Detail fetch outcomes persisted alongside each record.
const (
	DetailFetchOK     DetailFetchStatus = "ok"
	DetailFetchFailed DetailFetchStatus = "failed"
)

// DetailRecord carries the extended per-business attributes, 1:1 with a
// canonical listing.
type DetailRecord struct {
	BusinessID  string
	Name        string
	Phone       string
	Website     string
	Summary     string
	HoursText   string
	FetchStatus DetailFetchStatus
}

// PhotoAttribution is one exploded photo-metadata row.
type PhotoAttribution struct {
	BusinessID     string
	PhotoReference string
	Width          int
	Height         int
	Attribution    string
}

// NativeReview is one review from the capped native batch the detail API
// returns.
type NativeReview struct {
	BusinessID   string
	Author       string
	Rating       float64
	Text         string
	RelativeTime string
}

// Target is the harvester's input key for one business.
type Target struct {
	BusinessID  string
	Name        string
	CommentsURL string
	MatchScore  float64
}

// Key returns the checkpoint key for the target. Matching is
// case-insensitive, so keys are lowercased.
func (t Target) Key() string {
	if t.BusinessID != "" {
		return strings.ToLower(t.BusinessID)
	}
	return strings.ToLower(t.Name)
}

// RawComment is the first-pass harvest output: trimmed display text plus the
// raw markup kept for the offline structured re-parse.
type RawComment struct {
	BusinessID string
	Name       string
	MatchScore float64
	Text       string
	HTML       string
	ScrapedAt  time.Time
}

// ScrapedReview is the structured second-pass record, append-only and never
// mutated.
type ScrapedReview struct {
	BusinessID   string
	Author       string
	Rating       float64
	Text         string
	RelativeTime string
	ScrapedAt    time.Time
}
