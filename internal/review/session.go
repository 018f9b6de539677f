package review

import (
	"context"
	"errors"
	"time"
)

// ErrControlGone reports that a clickable control was absent or did not
// respond within its timeout. The harvester treats it as "no more comments to
// expand", not as a failure.
var ErrControlGone = errors.New("control not clickable")

// Session is one live browser page. Implementations are not safe for
// concurrent use; the harvest loop is strictly sequential.
type Session interface {
	// Navigate loads the URL and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching the selector, waiting at most
	// timeout for it to become visible. Returns ErrControlGone when it does
	// not.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// Snapshot returns the current outer HTML of the page.
	Snapshot(ctx context.Context) (string, error)
	// Close releases the page. Safe to call more than once.
	Close()
}

// SessionFactory opens fresh browser pages. One page is opened per business
// so a renderer crash poisons at most one unit of work.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}
