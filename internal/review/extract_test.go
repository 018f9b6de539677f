package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atxeats/harvester/internal/venue"
)

const expandedPage = `<html><body>
<div class="comment-content">
  <span class="comment-author">Alice</span>
  <div class="star-rating"><span style="width: 80%"></span></div>
  <span class="comment-time">2 weeks ago</span>
  Great brisket, worth the wait.
</div>
<div class="comment-content">   </div>
<div class="comment-content">
  <span class="comment-author">Bob</span>
  <div class="star-rating"><span style="width: 100%"></span></div>
  <span class="comment-time">a month ago</span>
  Best tacos in town.
</div>
</body></html>`

func TestExtractRaw(t *testing.T) {
	at := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	target := venue.Target{BusinessID: "biz-1", Name: "Franklin Barbecue", MatchScore: 0.95}

	rows, err := ExtractRaw(expandedPage, target, at)
	require.NoError(t, err)
	require.Len(t, rows, 2, "whitespace-only comments are dropped")

	first := rows[0]
	require.Equal(t, "biz-1", first.BusinessID)
	require.Equal(t, "Franklin Barbecue", first.Name)
	require.InDelta(t, 0.95, first.MatchScore, 1e-9)
	require.Contains(t, first.Text, "Great brisket")
	require.Contains(t, first.HTML, `class="comment-content"`)
	require.Equal(t, at, first.ScrapedAt)

	require.Contains(t, rows[1].Text, "Best tacos")
}

func TestParseStructured(t *testing.T) {
	at := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	target := venue.Target{BusinessID: "biz-1", Name: "Franklin Barbecue"}

	rows, err := ExtractRaw(expandedPage, target, at)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	review, err := ParseStructured(rows[0])
	require.NoError(t, err)
	require.Equal(t, "biz-1", review.BusinessID)
	require.Equal(t, "Alice", review.Author)
	require.InDelta(t, 4.0, review.Rating, 1e-9)
	require.Equal(t, "2 weeks ago", review.RelativeTime)
	require.Equal(t, "Great brisket, worth the wait.", review.Text)
	require.Equal(t, at, review.ScrapedAt)
}

func TestParseStructured_MissingMetadata(t *testing.T) {
	raw := venue.RawComment{
		BusinessID: "biz-2",
		Text:       "Plain comment",
		HTML:       `<div class="comment-content">Plain comment</div>`,
	}

	review, err := ParseStructured(raw)
	require.NoError(t, err)
	require.Empty(t, review.Author)
	require.Zero(t, review.Rating)
	require.Empty(t, review.RelativeTime)
	require.Equal(t, "Plain comment", review.Text)
}

func TestStarWidthToRating(t *testing.T) {
	tests := []struct {
		style string
		want  float64
	}{
		{"width: 80%", 4.0},
		{"width: 100%", 5.0},
		{"width: 0%", 0.0},
		{"width:90%", 4.5},
		{"height: 10px", 0.0},
	}
	for _, tc := range tests {
		require.InDelta(t, tc.want, starWidthToRating(tc.style), 1e-9, tc.style)
	}
}
