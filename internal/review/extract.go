// Package review harvests comment text from business pages with a headless
// browser, in two passes: a cheap raw capture during the crawl, then an
// offline structured re-parse that never re-fetches a page.
package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/atxeats/harvester/internal/venue"
)

const (
	commentSelector = ".comment-content"
	authorSelector  = ".comment-author"
	starSelector    = ".star-rating [style]"
	timeSelector    = ".comment-time"
)

var widthPercent = regexp.MustCompile(`width:\s*([0-9.]+)%`)

// ExtractRaw parses a fully expanded page snapshot and returns one RawComment
// per comment element. Elements whose trimmed text is empty are dropped. The
// original markup is kept on each row for the offline structured re-parse.
func ExtractRaw(pageHTML string, target venue.Target, scrapedAt time.Time) ([]venue.RawComment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var rows []venue.RawComment
	doc.Find(commentSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			html = ""
		}
		rows = append(rows, venue.RawComment{
			BusinessID: target.BusinessID,
			Name:       target.Name,
			MatchScore: target.MatchScore,
			Text:       text,
			HTML:       html,
			ScrapedAt:  scrapedAt,
		})
	})
	return rows, nil
}

// ParseStructured re-parses one captured comment's markup into a structured
// review. Missing author or time nodes yield empty fields, not errors; a
// missing star element yields a zero rating.
func ParseStructured(raw venue.RawComment) (venue.ScrapedReview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return venue.ScrapedReview{}, fmt.Errorf("parse comment markup: %w", err)
	}

	review := venue.ScrapedReview{
		BusinessID:   raw.BusinessID,
		Author:       strings.TrimSpace(doc.Find(authorSelector).First().Text()),
		RelativeTime: strings.TrimSpace(doc.Find(timeSelector).First().Text()),
		ScrapedAt:    raw.ScrapedAt,
	}

	if style, ok := doc.Find(starSelector).First().Attr("style"); ok {
		review.Rating = starWidthToRating(style)
	}

	// The comment body is the element text with the metadata nodes removed.
	body := doc.Find(commentSelector).First().Clone()
	body.Find(authorSelector + ", " + timeSelector + ", .star-rating").Remove()
	review.Text = strings.TrimSpace(body.Text())
	if review.Text == "" {
		review.Text = raw.Text
	}
	return review, nil
}

// starWidthToRating converts a percentage-width star bar to a 0-5 rating:
// "width: 80%" is 4.0.
func starWidthToRating(style string) float64 {
	m := widthPercent.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return pct * 5 / 100
}
