package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.InDelta(t, 30.2672, cfg.Crawler.CenterLat, 1e-9)
	require.InDelta(t, -97.7431, cfg.Crawler.CenterLng, 1e-9)
	require.InDelta(t, 5.0, cfg.Crawler.TotalRadiusMiles, 1e-9)
	require.InDelta(t, 0.5, cfg.Crawler.PointRadiusMiles, 1e-9)
	require.Equal(t, []string{"restaurant"}, cfg.Crawler.Categories)
	require.Equal(t, 3, cfg.Crawler.PageCap)
	require.Equal(t, 60, cfg.Crawler.ResultCap)
	require.Equal(t, 2*time.Second, cfg.Crawler.TokenDelay)
	require.True(t, cfg.Crawler.Resume)

	require.Equal(t, 5, cfg.Review.ExpandIterations)
	require.Equal(t, 2*time.Second, cfg.Review.SettleDelay)
	require.Equal(t, 3*time.Second, cfg.Review.RequestDelay)
	require.InDelta(t, 0.6, cfg.Review.MinMatchScore, 1e-9)
	require.Equal(t, ".load-more", cfg.Review.LoadMoreSelector)

	require.Equal(t, "info", cfg.Logging.Level)

	require.Equal(t, 15*time.Second, cfg.RequestTimeout())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawler:
  total_radius_miles: 2.0
  point_radius_miles: 1.0
  categories: [restaurant, cafe]
review:
  min_match_score: 0.7
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 2.0, cfg.Crawler.TotalRadiusMiles, 1e-9)
	require.InDelta(t, 1.0, cfg.Crawler.PointRadiusMiles, 1e-9)
	require.Equal(t, []string{"restaurant", "cafe"}, cfg.Crawler.Categories)
	require.InDelta(t, 0.7, cfg.Review.MinMatchScore, 1e-9)
	require.Equal(t, 3, cfg.Crawler.PageCap, "untouched keys keep their defaults")
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawler:
  point_radius_miles: 9.0
`), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "point_radius_miles")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero total radius", func(c *Config) { c.Crawler.TotalRadiusMiles = 0 }},
		{"no categories", func(c *Config) { c.Crawler.Categories = nil }},
		{"zero page cap", func(c *Config) { c.Crawler.PageCap = 0 }},
		{"score above one", func(c *Config) { c.Review.MinMatchScore = 1.5 }},
		{"missing source url", func(c *Config) { c.Review.SourceBaseURL = "" }},
		{"missing selector", func(c *Config) { c.Review.LoadMoreSelector = "" }},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
