package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// inTempDir runs the test from an empty directory so no stray config.yaml or .env is picked up.
func inTempDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(42), cfg.Grouping.Seed)
	assert.Equal(t, "@every 6h", cfg.Schedule.Cron)
	assert.Len(t, cfg.Data.ChatFiles, 6)
}

func TestLoadFile(t *testing.T) {
	inTempDir(t)
	path := writeConfig(t, `
data:
  dir: /srv/clubs
  event_feeds:
    - club_id: 1
      url: https://example.org/coding.xml
scoring:
  model: award
  weights:
    event_impact: 0.25
    voting: 0.15
normalize:
  platforms:
    Mastodon:
      per_follower: 0.05
      follower_cap: 3
      platform_cap: 5
grouping:
  seed: 7
workers: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/clubs", cfg.Data.Dir)
	assert.Equal(t, "clubs.json", cfg.Data.Clubs)
	assert.Equal(t, uint64(7), cfg.Grouping.Seed)
	assert.Equal(t, 2, cfg.Workers)

	m, err := cfg.Scoring.BuildModel()
	require.NoError(t, err)
	assert.Equal(t, score.ModelAward, m.Name)
	assert.InDelta(t, 0.25, m.WeightMap()["event_impact"], 1e-9)

	p := cfg.Data.Paths()
	require.Len(t, p.EventFeeds, 1)
	assert.Equal(t, 1, p.EventFeeds[0].ClubID)
	assert.Equal(t, "chat", p.ChatDir)

	opts := cfg.Normalize.Options()
	assert.Contains(t, opts.Platforms, "mastodon")
	assert.Contains(t, opts.Platforms, "instagram")
}

func TestLoadDefaultFile(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(DefaultFile, []byte("workers: 9\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	inTempDir(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("CLUBRADAR_DATA_DIR", "/env/data")
	t.Setenv("CLUBRADAR_OUTPUT_DIR", "/env/out")
	t.Setenv("CLUBRADAR_DB_PATH", "")
	t.Setenv("CLUBRADAR_LOG_LEVEL", "debug")
	t.Setenv("CLUBRADAR_SEED", "1234")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.Data.Dir)
	assert.Equal(t, "/env/out", cfg.Output.Dir)
	assert.Empty(t, cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint64(1234), cfg.Grouping.Seed)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.True(t, cfg.Telemetry.Enabled())
}

func TestDotEnv(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(".env", []byte("CLUBRADAR_OUTPUT_DIR=/from/dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CLUBRADAR_OUTPUT_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Output.Dir)
}

func TestBadSeed(t *testing.T) {
	inTempDir(t)
	t.Setenv("CLUBRADAR_SEED", "-1")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"weights", func(c *Config) { c.Scoring.Weights = map[string]float64{"social_media": 0.9} }, "scoring"},
		{"unknown sub-score", func(c *Config) { c.Scoring.Weights = map[string]float64{"vibes": 0} }, "unknown sub-score"},
		{"unknown model", func(c *Config) { c.Scoring.Model = "elo" }, "unknown scoring model"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"cron", func(c *Config) { c.Schedule.Cron = "every day" }, "schedule.cron"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"slack", func(c *Config) { c.Alerts.Slack.Enabled = true }, "alerts.slack"},
		{"data dir", func(c *Config) { c.Data.Dir = "" }, "data.dir"},
		{"zero platform cap", func(c *Config) {
			c.Normalize.Platforms = map[string]ScaleOverride{"instagram": {PlatformCap: ptr(0.0)}}
		}, "normalize.platforms.instagram: platform_cap"},
		{"negative bonus", func(c *Config) {
			c.Normalize.Platforms = map[string]ScaleOverride{"linkedin": {TextBonus: ptr(-1.0)}}
		}, "must not be negative"},
		{"unknown keyword category", func(c *Config) {
			c.Analysis.ExtraKeywords = map[string][]string{"events": {"fest"}}
		}, `unknown category "events"`},
		{"empty keyword", func(c *Config) {
			c.Analysis.ExtraKeywords = map[string][]string{"event": {"fest", " "}}
		}, "analysis.extra_keywords.event: empty keyword"},
		{"duplicate chat club", func(c *Config) {
			c.Data.ChatFiles = map[string]int{"a.txt": 1, "b.txt": 1}
		}, "a.txt and b.txt both map to club 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestPartialScaleOverride(t *testing.T) {
	inTempDir(t)
	path := writeConfig(t, `
normalize:
  platforms:
    Instagram:
      per_follower: 0.02
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	def := normalize.DefaultOptions().Platforms[normalize.Instagram]
	got := cfg.Normalize.Options().Platforms[normalize.Instagram]
	assert.InDelta(t, 0.02, got.PerFollower, 1e-9)
	assert.Equal(t, def.FollowerCap, got.FollowerCap)
	assert.Equal(t, def.PlatformCap, got.PlatformCap)
	assert.Equal(t, def.TextBonus, got.TextBonus)
	assert.Equal(t, def.ContentKeywords, got.ContentKeywords)

	rec := &club.SocialRecord{SocialMedia: map[string]club.PlatformProfile{
		normalize.Instagram: {Followers: "400"},
	}}
	social := normalize.New(cfg.Normalize.Options()).Normalize(1, rec)
	// 400 followers saturate the follower cap of 5; no bio earns the fallback 1.
	assert.InDelta(t, 6.0, social.Platforms[normalize.Instagram].PlatformScore, 1e-9)
	assert.InDelta(t, 6.0, social.SocialScore, 1e-9)
}

func TestChatFilesReplaceDefaults(t *testing.T) {
	inTempDir(t)
	path := writeConfig(t, `
data:
  chat_files:
    coding.txt: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"coding.txt": 1}, cfg.Data.ChatFiles)
}
