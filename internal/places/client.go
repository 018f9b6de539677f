package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ClientConfig captures the parameters of the HTTP client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the directory and detail endpoints. It is used strictly
// sequentially; there is no concurrent request path.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a configured Client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// NearbySearch issues one radius query. The page token is threaded in
// explicitly so the pagination state machine stays testable without a live
// API.
func (c *Client) NearbySearch(ctx context.Context, req NearbyRequest) (NearbyResponse, error) {
	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	if req.PageToken != "" {
		// A token query repeats the original search; other parameters are
		// ignored by the API.
		q.Set("pagetoken", req.PageToken)
	} else {
		q.Set("location", fmt.Sprintf("%f,%f", req.Location.Lat(), req.Location.Lon()))
		q.Set("radius", strconv.Itoa(req.RadiusMeters))
		q.Set("type", req.Category)
	}

	var resp NearbyResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/nearbysearch/json?"+q.Encode(), &resp); err != nil {
		return NearbyResponse{}, err
	}
	if resp.Status != statusOK && resp.Status != statusZeroResults {
		return NearbyResponse{}, fmt.Errorf("nearby search status %q", resp.Status)
	}
	return resp, nil
}

// Details fetches the extended attributes for one place.
func (c *Client) Details(ctx context.Context, placeID string) (DetailsResult, error) {
	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("place_id", placeID)

	var resp DetailsResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/details/json?"+q.Encode(), &resp); err != nil {
		return DetailsResult{}, err
	}
	if resp.Status != statusOK {
		return DetailsResult{}, fmt.Errorf("details status %q", resp.Status)
	}
	return resp.Result, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", zap.Error(cerr))
		}
	}()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
