package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
	"github.com/elonfeng/clubradar/pkg/source"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "config.yaml"

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Data      DataConfig      `yaml:"data"`
	Output    OutputConfig    `yaml:"output"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Grouping  GroupingConfig  `yaml:"grouping"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Workers   int             `yaml:"workers"`
}

// DatabaseConfig configures SQLite run history. An empty path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataConfig locates the input files. Relative file names resolve against Dir.
type DataConfig struct {
	Dir        string         `yaml:"dir"`
	Clubs      string         `yaml:"clubs"`
	Events     string         `yaml:"events"`
	Votes      string         `yaml:"votes"`
	Social     string         `yaml:"social"`
	ChatDir    string         `yaml:"chat_dir"`
	ChatFiles  map[string]int `yaml:"chat_files"`
	EventFeeds []FeedConfig   `yaml:"event_feeds"`
}

// FeedConfig is one club's RSS or Atom event feed.
type FeedConfig struct {
	ClubID int    `yaml:"club_id"`
	URL    string `yaml:"url"`
}

// Paths converts the data section into snapshot paths.
func (d DataConfig) Paths() source.Paths {
	p := source.Paths{
		Dir:        d.Dir,
		ClubsFile:  d.Clubs,
		EventsFile: d.Events,
		VotesFile:  d.Votes,
		SocialFile: d.Social,
		ChatDir:    d.ChatDir,
		ChatFiles:  d.ChatFiles,
	}
	for _, f := range d.EventFeeds {
		p.EventFeeds = append(p.EventFeeds, source.EventFeed{ClubID: f.ClubID, URL: f.URL})
	}
	return p
}

// OutputConfig configures where artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ScoringConfig selects the scoring model and optional weight overrides.
type ScoringConfig struct {
	Model   string             `yaml:"model"`
	Weights map[string]float64 `yaml:"weights"`
}

// BuildModel returns the configured model.
func (s ScoringConfig) BuildModel() (score.Model, error) {
	return score.NewModel(s.Model, s.Weights)
}

// NormalizeConfig overrides per-platform scales.
type NormalizeConfig struct {
	Platforms   map[string]ScaleOverride `yaml:"platforms"`
	Boilerplate []string                 `yaml:"boilerplate"`
}

// ScaleOverride changes only the fields it sets. Unset fields keep the
// platform's built-in value, or the fallback scale's for other platforms.
type ScaleOverride struct {
	PerFollower     *float64 `yaml:"per_follower"`
	FollowerCap     *float64 `yaml:"follower_cap"`
	TextMinLength   *int     `yaml:"text_min_length"`
	TextBonus       *float64 `yaml:"text_bonus"`
	TextFallback    *float64 `yaml:"text_fallback"`
	PlatformCap     *float64 `yaml:"platform_cap"`
	ContentBonus    *float64 `yaml:"content_bonus"`
	ContentKeywords []string `yaml:"content_keywords"`
}

func (o ScaleOverride) apply(s normalize.Scale) normalize.Scale {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.PerFollower, o.PerFollower)
	set(&s.FollowerCap, o.FollowerCap)
	set(&s.TextBonus, o.TextBonus)
	set(&s.TextFallback, o.TextFallback)
	set(&s.PlatformCap, o.PlatformCap)
	set(&s.ContentBonus, o.ContentBonus)
	if o.TextMinLength != nil {
		s.TextMinLength = *o.TextMinLength
	}
	if o.ContentKeywords != nil {
		s.ContentKeywords = o.ContentKeywords
	}
	return s
}

// Options converts the section into normalizer options.
func (n NormalizeConfig) Options() normalize.Options {
	opts := normalize.DefaultOptions()
	for name, o := range n.Platforms {
		name = strings.ToLower(name)
		base, ok := opts.Platforms[name]
		if !ok {
			base = opts.Fallback
		}
		opts.Platforms[name] = o.apply(base)
	}
	if len(n.Boilerplate) > 0 {
		opts.Boilerplate = n.Boilerplate
	}
	return opts
}

// AnalysisConfig extends the chat keyword sets.
type AnalysisConfig struct {
	ExtraKeywords map[string][]string `yaml:"extra_keywords"`
}

// Classifier returns the chat keyword classifier.
func (a AnalysisConfig) Classifier() *engagement.Classifier {
	extra := make(map[engagement.Category][]string, len(a.ExtraKeywords))
	for cat, kws := range a.ExtraKeywords {
		extra[engagement.Category(cat)] = kws
	}
	return engagement.NewClassifier(extra)
}

// GroupingConfig configures rule grouping and text clustering.
type GroupingConfig struct {
	Rules            []grouping.Rule `yaml:"rules"`
	MaxClusters      int             `yaml:"max_clusters"`
	MaxFeatures      int             `yaml:"max_features"`
	MaxIterations    int             `yaml:"max_iterations"`
	Seed             uint64          `yaml:"seed"`
	SimilarThreshold float64         `yaml:"similar_threshold"`
}

// Options converts the section into grouper options.
func (g GroupingConfig) Options() grouping.Options {
	return grouping.Options{
		Rules:            g.Rules,
		MaxClusters:      g.MaxClusters,
		MaxFeatures:      g.MaxFeatures,
		MaxIterations:    g.MaxIterations,
		Seed:             g.Seed,
		SimilarThreshold: g.SimilarThreshold,
	}
}

// ScheduleConfig configures the daemon.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Top     int           `yaml:"top"`
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Headers        string `yaml:"headers"` // "k1=v1,k2=v2"
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./clubradar.db"},
		Data: DataConfig{
			Dir:       "./data",
			Clubs:     "clubs.json",
			Events:    "events.json",
			Votes:     "voting_data.json",
			Social:    "social_media_data.json",
			ChatDir:   "chat",
			ChatFiles: source.DefaultChatFiles(),
		},
		Output:   OutputConfig{Dir: "./output"},
		Scoring:  ScoringConfig{Model: score.ModelComprehensive},
		Grouping: GroupingConfig{MaxClusters: 3, MaxFeatures: 100, MaxIterations: 100, Seed: 42, SimilarThreshold: 0.3},
		Schedule: ScheduleConfig{Cron: "@every 6h"},
		Alerts:   AlertsConfig{Top: 5},
		Server:   ServerConfig{Port: 8080},
		Log:      LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{
			ServiceName:    "clubradar",
			ServiceVersion: "dev",
		},
		Workers: 4,
	}
}

// Load builds the configuration: defaults, then the YAML file, then .env and
// environment overrides. An empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// yaml.v3 merges into a non-nil map; a configured chat_files replaces the defaults.
		cfg.Data.ChatFiles = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Data.ChatFiles == nil {
			cfg.Data.ChatFiles = source.DefaultChatFiles()
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CLUBRADAR_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("CLUBRADAR_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v, ok := os.LookupEnv("CLUBRADAR_DB_PATH"); ok {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CLUBRADAR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CLUBRADAR_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CLUBRADAR_SEED: %w", err)
		}
		cfg.Grouping.Seed = seed
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.Telemetry.Headers = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	return nil
}

func (n NormalizeConfig) validate() []error {
	opts := n.Options()
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(n.Platforms)) {
		if err := opts.Platforms[strings.ToLower(name)].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("normalize.platforms.%s: %w", name, err))
		}
	}
	return errs
}

func (a AnalysisConfig) validate() []error {
	var errs []error
	for _, cat := range slices.Sorted(maps.Keys(a.ExtraKeywords)) {
		if !slices.Contains(engagement.Categories(), engagement.Category(cat)) {
			errs = append(errs, fmt.Errorf("analysis.extra_keywords: unknown category %q (one of %v)", cat, engagement.Categories()))
			continue
		}
		for _, kw := range a.ExtraKeywords[cat] {
			if strings.TrimSpace(kw) == "" {
				errs = append(errs, fmt.Errorf("analysis.extra_keywords.%s: empty keyword", cat))
				break
			}
		}
	}
	return errs
}

func (d DataConfig) validate() []error {
	var errs []error
	owner := make(map[int]string, len(d.ChatFiles))
	for _, name := range slices.Sorted(maps.Keys(d.ChatFiles)) {
		id := d.ChatFiles[name]
		if first, dup := owner[id]; dup {
			errs = append(errs, fmt.Errorf("data.chat_files: %s and %s both map to club %d", first, name, id))
			continue
		}
		owner[id] = name
	}
	return errs
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Scoring.BuildModel(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	if c.Grouping.MaxClusters < 0 || c.Grouping.MaxFeatures < 0 || c.Grouping.MaxIterations < 0 {
		errs = append(errs, errors.New("grouping limits must not be negative"))
	}
	errs = append(errs, c.Normalize.validate()...)
	errs = append(errs, c.Analysis.validate()...)
	errs = append(errs, c.Data.validate()...)
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.slack.webhook_url is required when enabled"))
	}
	if c.Alerts.Discord.Enabled && c.Alerts.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.discord.webhook_url is required when enabled"))
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("alerts.webhook.url is required when enabled"))
	}
	return errors.Join(errs...)
}
