package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserConfig controls the shared headless browser.
type BrowserConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// Visible runs a headful browser for debugging selector issues.
	Visible bool
}

// Browser owns a chromedp exec allocator and opens one page per business.
type Browser struct {
	cfg         BrowserConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewBrowser starts a headless Chrome allocator.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Visible {
		opts = append(opts, chromedp.Flag("headless", false))
	} else {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}, nil
}

// Close tears down the allocator and every page opened from it.
func (b *Browser) Close() {
	b.allocCancel()
}

// NewSession opens a fresh page context.
func (b *Browser) NewSession(_ context.Context) (Session, error) {
	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	return &chromedpSession{
		cfg:    b.cfg,
		ctx:    taskCtx,
		cancel: taskCancel,
	}, nil
}

type chromedpSession struct {
	cfg    BrowserConfig
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bound(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Click waits briefly for the control; a deadline here means the control is
// gone, which ends expansion rather than failing the business.
func (s *chromedpSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := s.bound(ctx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrControlGone
		}
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Snapshot(ctx context.Context) (string, error) {
	runCtx, cancel := s.bound(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot page: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Close() {
	s.cancel()
}

// bound ties a chromedp run to both the session's browser context and the
// caller's context, with a timeout.
func (s *chromedpSession) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, timeoutCancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, timeoutCancel)
	return runCtx, func() {
		stop()
		timeoutCancel()
	}
}

func (s *chromedpSession) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}
