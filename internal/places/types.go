// Package places implements the directory API client and the paginated
// per-cell fetch loop.
package places

import "github.com/paulmach/orb"

// NearbyRequest describes one bounded-radius search.
type NearbyRequest struct {
	Location     orb.Point
	RadiusMeters int
	Category     string
	PageToken    string
}

// NearbyResponse is the directory API's nearby-search payload.
type NearbyResponse struct {
	Results       []PlaceResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
}

// PlaceResult is one raw search hit.
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	BusinessStatus   string   `json:"business_status"`
	PriceLevel       int      `json:"price_level"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Vicinity         string   `json:"vicinity"`
	Geometry         Geometry `json:"geometry"`
	Types            []string `json:"types"`
}

// Geometry nests the result coordinates.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a bare coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DetailsResponse is the detail API payload for a single place.
type DetailsResponse struct {
	Result DetailsResult `json:"result"`
	Status string        `json:"status"`
}

// DetailsResult splits by cardinality: scalar fields, a weekday-hours list,
// a photo list, and a capped native-review list.
type DetailsResult struct {
	PlaceID          string            `json:"place_id"`
	Name             string            `json:"name"`
	FormattedPhone   string            `json:"formatted_phone_number"`
	Website          string            `json:"website"`
	EditorialSummary *EditorialSummary `json:"editorial_summary"`
	OpeningHours     *OpeningHours     `json:"opening_hours"`
	Photos           []Photo           `json:"photos"`
	Reviews          []Review          `json:"reviews"`
}

// EditorialSummary is the short venue blurb.
type EditorialSummary struct {
	Overview string `json:"overview"`
}

// OpeningHours carries the weekday text lines.
type OpeningHours struct {
	WeekdayText []string `json:"weekday_text"`
}

// Photo is one photo-metadata entry with its attributions.
type Photo struct {
	PhotoReference   string   `json:"photo_reference"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	HTMLAttributions []string `json:"html_attributions"`
}

// Review is one native review from the detail response.
type Review struct {
	AuthorName              string  `json:"author_name"`
	Rating                  float64 `json:"rating"`
	Text                    string  `json:"text"`
	RelativeTimeDescription string  `json:"relative_time_description"`
}

// API status values the client treats as success.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)
