package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atxeats/harvester/internal/pace"
	"github.com/atxeats/harvester/internal/venue"
)

const harvestPage = `<html><body>
<div class="comment-content">So good.</div>
<div class="comment-content">Would eat again.</div>
</body></html>`

type fakeFinder struct {
	target venue.Target
	err    error
	calls  int
}

func (f *fakeFinder) Find(_ context.Context, biz venue.Listing) (venue.Target, error) {
	f.calls++
	if f.err != nil {
		return venue.Target{}, f.err
	}
	target := f.target
	if target.BusinessID == "" {
		target.BusinessID = biz.BusinessID
	}
	return target, nil
}

type fakeSession struct {
	html           string
	clickableTimes int // negative means always clickable
	clicks         int
	navErr         error
	closed         bool
}

func (s *fakeSession) Navigate(context.Context, string) error { return s.navErr }

func (s *fakeSession) Click(context.Context, string, time.Duration) error {
	if s.clickableTimes >= 0 && s.clicks >= s.clickableTimes {
		return ErrControlGone
	}
	s.clicks++
	return nil
}

func (s *fakeSession) Snapshot(context.Context) (string, error) { return s.html, nil }

func (s *fakeSession) Close() { s.closed = true }

type fakeFactory struct {
	sessions []*fakeSession
	next     int
}

func (f *fakeFactory) NewSession(context.Context) (Session, error) {
	if f.next >= len(f.sessions) {
		return nil, fmt.Errorf("no session scripted")
	}
	s := f.sessions[f.next]
	f.next++
	return s, nil
}

type memorySink struct {
	appends map[string][]venue.RawComment
	err     error
}

func (m *memorySink) Append(_ context.Context, name string, rows []venue.RawComment) error {
	if m.err != nil {
		return m.err
	}
	if m.appends == nil {
		m.appends = make(map[string][]venue.RawComment)
	}
	m.appends[name] = append(m.appends[name], rows...)
	return nil
}

type memoryCheckpoint struct {
	done map[string]bool
	err  error
}

func (m *memoryCheckpoint) Contains(key string) bool { return m.done[key] }

func (m *memoryCheckpoint) MarkDone(key string) error {
	if m.err != nil {
		return m.err
	}
	if m.done == nil {
		m.done = make(map[string]bool)
	}
	m.done[key] = true
	return nil
}

type countingPauser struct {
	pauses []time.Duration
}

func (p *countingPauser) Pause(_ context.Context, d time.Duration) {
	p.pauses = append(p.pauses, d)
}

func testConfig() Config {
	return Config{
		LoadMoreSelector: ".load-more",
		ExpandIterations: 5,
		ClickTimeout:     time.Second,
		SettleDelay:      2 * time.Second,
		PolitenessDelay:  3 * time.Second,
		MinMatchScore:    0.6,
	}
}

func newTestHarvester(t *testing.T, finder *fakeFinder, factory *fakeFactory, sink *memorySink, cp *memoryCheckpoint, pauser pace.Pauser) *Harvester {
	t.Helper()
	if pauser == nil {
		pauser = pace.Nop{}
	}
	h, err := NewHarvester(finder, factory, sink, cp, pauser, nil, testConfig(), nil)
	require.NoError(t, err)
	return h
}

func TestHarvestAll_SavedAndCheckpointed(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Franklin Barbecue", CommentsURL: "http://x/comments/", MatchScore: 0.95}}
	session := &fakeSession{html: harvestPage, clickableTimes: 0}
	factory := &fakeFactory{sessions: []*fakeSession{session}}
	sink := &memorySink{}
	cp := &memoryCheckpoint{}
	h := newTestHarvester(t, finder, factory, sink, cp, nil)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "Biz-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, StateSaved, outcomes[0].State)
	require.Equal(t, 2, outcomes[0].Rows)
	require.Len(t, sink.appends["Franklin Barbecue"], 2)
	require.True(t, cp.done["biz-1"], "checkpoint key is lowercased")
	require.True(t, session.closed)
}

func TestHarvestAll_ResumeSkipsCheckpointed(t *testing.T) {
	finder := &fakeFinder{}
	cp := &memoryCheckpoint{done: map[string]bool{"biz-1": true}}
	h := newTestHarvester(t, finder, &fakeFactory{}, &memorySink{}, cp, nil)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "BIZ-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSkipped, outcomes[0].State)
	require.Zero(t, finder.calls, "a skipped business issues no requests")
}

func TestHarvestAll_LowScoreSkippedNotCheckpointed(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Random Cafe", CommentsURL: "http://x/comments/", MatchScore: 0.31}}
	factory := &fakeFactory{}
	cp := &memoryCheckpoint{}
	h := newTestHarvester(t, finder, factory, &memorySink{}, cp, nil)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSkipped, outcomes[0].State)
	require.Empty(t, cp.done, "a low-score skip stays retryable")
	require.Zero(t, factory.next, "no browser page is opened")
}

func TestHarvestAll_ExpansionCappedAtConfiguredClicks(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Franklin Barbecue", CommentsURL: "http://x/comments/", MatchScore: 0.95}}
	// The control never disappears; only the cap ends expansion.
	session := &fakeSession{html: harvestPage, clickableTimes: -1}
	factory := &fakeFactory{sessions: []*fakeSession{session}}
	pauser := &countingPauser{}
	h := newTestHarvester(t, finder, factory, &memorySink{}, &memoryCheckpoint{}, pauser)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSaved, outcomes[0].State)
	require.Equal(t, 5, session.clicks)

	// Five settle pauses, one after each click; no politeness pause after the
	// final business.
	require.Len(t, pauser.pauses, 5)
	for _, d := range pauser.pauses {
		require.Equal(t, 2*time.Second, d)
	}
}

func TestHarvestAll_ControlGoneEndsExpansionEarly(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Franklin Barbecue", CommentsURL: "http://x/comments/", MatchScore: 0.95}}
	session := &fakeSession{html: harvestPage, clickableTimes: 2}
	factory := &fakeFactory{sessions: []*fakeSession{session}}
	h := newTestHarvester(t, finder, factory, &memorySink{}, &memoryCheckpoint{}, nil)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSaved, outcomes[0].State)
	require.Equal(t, 2, session.clicks)
}

func TestHarvestAll_SaveFailureNotCheckpointed(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Franklin Barbecue", CommentsURL: "http://x/comments/", MatchScore: 0.95}}
	session := &fakeSession{html: harvestPage, clickableTimes: 0}
	factory := &fakeFactory{sessions: []*fakeSession{session}}
	sink := &memorySink{err: errors.New("disk full")}
	cp := &memoryCheckpoint{}
	h := newTestHarvester(t, finder, factory, sink, cp, nil)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateFailed, outcomes[0].State)
	require.ErrorContains(t, outcomes[0].Err, "disk full")
	require.Empty(t, cp.done)
	require.True(t, session.closed, "the page is released even on failure")
}

func TestHarvestAll_FailureDoesNotStopRun(t *testing.T) {
	finder := &fakeFinder{target: venue.Target{Name: "Franklin Barbecue", CommentsURL: "http://x/comments/", MatchScore: 0.95}}
	bad := &fakeSession{navErr: errors.New("net::ERR_TIMED_OUT")}
	good := &fakeSession{html: harvestPage, clickableTimes: 0}
	factory := &fakeFactory{sessions: []*fakeSession{bad, good}}
	cp := &memoryCheckpoint{}
	pauser := &countingPauser{}
	h := newTestHarvester(t, finder, factory, &memorySink{}, cp, pauser)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
		{BusinessID: "biz-2", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateFailed, outcomes[0].State)
	require.Equal(t, StateSaved, outcomes[1].State)
	require.False(t, cp.done["biz-1"])
	require.True(t, cp.done["biz-2"])
	require.Contains(t, pauser.pauses, 3*time.Second, "politeness pause between businesses")
}

func TestHarvestAll_LowScoreSkipStillPaced(t *testing.T) {
	// A low-score skip has already hit the search endpoint, so it owes the
	// same politeness pause as any other processed business.
	finder := &fakeFinder{target: venue.Target{Name: "Random Cafe", CommentsURL: "http://x/comments/", MatchScore: 0.31}}
	pauser := &countingPauser{}
	h := newTestHarvester(t, finder, &fakeFactory{}, &memorySink{}, &memoryCheckpoint{}, pauser)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
		{BusinessID: "biz-2", Name: "Franklin Barbecue"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSkipped, outcomes[0].State)
	require.Equal(t, []time.Duration{3 * time.Second}, pauser.pauses)
}

func TestHarvestAll_CheckpointSkipNotPaced(t *testing.T) {
	finder := &fakeFinder{}
	cp := &memoryCheckpoint{done: map[string]bool{"biz-1": true, "biz-2": true}}
	pauser := &countingPauser{}
	h := newTestHarvester(t, finder, &fakeFactory{}, &memorySink{}, cp, pauser)

	outcomes, err := h.HarvestAll(context.Background(), []venue.Listing{
		{BusinessID: "biz-1", Name: "Franklin Barbecue"},
		{BusinessID: "biz-2", Name: "Taco Bell"},
	})
	require.NoError(t, err)
	require.Equal(t, StateSkipped, outcomes[0].State)
	require.Equal(t, StateSkipped, outcomes[1].State)
	require.Empty(t, pauser.pauses, "checkpoint skips issue no requests and need no pause")
}

func TestHarvestAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newTestHarvester(t, &fakeFinder{}, &fakeFactory{}, &memorySink{}, &memoryCheckpoint{}, nil)

	outcomes, err := h.HarvestAll(ctx, []venue.Listing{{BusinessID: "biz-1"}})
	require.Error(t, err)
	require.Empty(t, outcomes)
}
