// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Crawler Crawler `mapstructure:"crawler"`
	Places  Places  `mapstructure:"places"`
	Review  Review  `mapstructure:"review"`
	Output  Output  `mapstructure:"output"`
	Backup  Backup  `mapstructure:"backup"`
	Metrics Metrics `mapstructure:"metrics"`
	Logging Logging `mapstructure:"logging"`
}

// Crawler governs grid generation and the directory crawl.
type Crawler struct {
	CenterLat           float64       `mapstructure:"center_lat"`
	CenterLng           float64       `mapstructure:"center_lng"`
	TotalRadiusMiles    float64       `mapstructure:"total_radius_miles"`
	PointRadiusMiles    float64       `mapstructure:"point_radius_miles"`
	Categories          []string      `mapstructure:"categories"`
	PageCap             int           `mapstructure:"page_cap"`
	ResultCap           int           `mapstructure:"result_cap"`
	TokenDelay          time.Duration `mapstructure:"token_delay"`
	RequestDelay        time.Duration `mapstructure:"request_delay"`
	MaxSubdivisionDepth int           `mapstructure:"max_subdivision_depth"`
	Resume              bool          `mapstructure:"resume"`
}

// Places configures the directory API client.
type Places struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// Review configures the comments-source harvester.
type Review struct {
	SourceBaseURL    string        `mapstructure:"source_base_url"`
	Location         string        `mapstructure:"location"`
	ExpandIterations int           `mapstructure:"expand_iterations"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	MinMatchScore    float64       `mapstructure:"min_match_score"`
	LoadMoreSelector string        `mapstructure:"load_more_selector"`
	ClickTimeout     time.Duration `mapstructure:"click_timeout"`
	NavTimeout       time.Duration `mapstructure:"nav_timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	ShowBrowser      bool          `mapstructure:"show_browser"`
}

// Output sets the root of the runtime file tree.
type Output struct {
	Dir string `mapstructure:"dir"`
}

// Backup controls the snapshot mirror.
type Backup struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// Metrics controls the optional metrics/health endpoint.
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// Logging selects the encoder and verbosity of the run logger.
type Logging struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.center_lat", 30.2672)
	v.SetDefault("crawler.center_lng", -97.7431)
	v.SetDefault("crawler.total_radius_miles", 5.0)
	v.SetDefault("crawler.point_radius_miles", 0.5)
	v.SetDefault("crawler.categories", []string{"restaurant"})
	v.SetDefault("crawler.page_cap", 3)
	v.SetDefault("crawler.result_cap", 60)
	v.SetDefault("crawler.token_delay", "2s")
	v.SetDefault("crawler.request_delay", "1s")
	v.SetDefault("crawler.max_subdivision_depth", 2)
	v.SetDefault("crawler.resume", true)
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("places.timeout_seconds", 15)
	v.SetDefault("places.user_agent", "atx-harvester/0.1")
	v.SetDefault("review.source_base_url", "https://www.restaurantji.com")
	v.SetDefault("review.location", "Austin, TX")
	v.SetDefault("review.expand_iterations", 5)
	v.SetDefault("review.settle_delay", "2s")
	v.SetDefault("review.request_delay", "3s")
	v.SetDefault("review.min_match_score", 0.6)
	v.SetDefault("review.load_more_selector", ".load-more")
	v.SetDefault("review.click_timeout", "5s")
	v.SetDefault("review.nav_timeout", "45s")
	v.SetDefault("review.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	v.SetDefault("review.show_browser", false)
	v.SetDefault("output.dir", "out")
	v.SetDefault("backup.prefix", "backups")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.TotalRadiusMiles <= 0 {
		return fmt.Errorf("crawler.total_radius_miles must be > 0")
	}
	if c.Crawler.PointRadiusMiles <= 0 {
		return fmt.Errorf("crawler.point_radius_miles must be > 0")
	}
	if c.Crawler.PointRadiusMiles > c.Crawler.TotalRadiusMiles {
		return fmt.Errorf("crawler.point_radius_miles must not exceed crawler.total_radius_miles")
	}
	if len(c.Crawler.Categories) == 0 {
		return fmt.Errorf("crawler.categories must include at least one category")
	}
	if c.Crawler.PageCap <= 0 {
		return fmt.Errorf("crawler.page_cap must be > 0")
	}
	if c.Crawler.ResultCap <= 0 {
		return fmt.Errorf("crawler.result_cap must be > 0")
	}
	if c.Crawler.MaxSubdivisionDepth < 0 {
		return fmt.Errorf("crawler.max_subdivision_depth must be >= 0")
	}
	if c.Places.BaseURL == "" {
		return fmt.Errorf("places.base_url must be set")
	}
	if c.Places.TimeoutSeconds <= 0 {
		return fmt.Errorf("places.timeout_seconds must be > 0")
	}
	if c.Review.ExpandIterations <= 0 {
		return fmt.Errorf("review.expand_iterations must be > 0")
	}
	if c.Review.MinMatchScore < 0 || c.Review.MinMatchScore > 1 {
		return fmt.Errorf("review.min_match_score must be within [0, 1]")
	}
	if c.Review.SourceBaseURL == "" {
		return fmt.Errorf("review.source_base_url must be set")
	}
	if c.Review.LoadMoreSelector == "" {
		return fmt.Errorf("review.load_more_selector must be set")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// RequestTimeout converts the Places timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Places.TimeoutSeconds) * time.Second
}
