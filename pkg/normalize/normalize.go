// Package normalize converts platform-specific social signals to a common 0-10 scale.
package normalize

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/elonfeng/clubradar/pkg/club"
)

// MaxScore bounds every normalized score.
const MaxScore = 10.0

// Scale describes how one platform's raw signals map onto points.
type Scale struct {
	PerFollower     float64  `yaml:"per_follower" json:"per_follower"`
	FollowerCap     float64  `yaml:"follower_cap" json:"follower_cap"`
	TextMinLength   int      `yaml:"text_min_length" json:"text_min_length"`
	TextBonus       float64  `yaml:"text_bonus" json:"text_bonus"`
	TextFallback    float64  `yaml:"text_fallback" json:"text_fallback"`
	PlatformCap     float64  `yaml:"platform_cap" json:"platform_cap"`
	ContentBonus    float64  `yaml:"content_bonus" json:"content_bonus"`
	ContentKeywords []string `yaml:"content_keywords" json:"content_keywords,omitempty"`
}

// Validate rejects scales that would zero or invert a platform's score.
func (s Scale) Validate() error {
	var errs []error
	if s.PlatformCap <= 0 {
		errs = append(errs, fmt.Errorf("platform_cap must be > 0, got %g", s.PlatformCap))
	}
	if s.FollowerCap <= 0 {
		errs = append(errs, fmt.Errorf("follower_cap must be > 0, got %g", s.FollowerCap))
	}
	if s.PerFollower < 0 || s.TextBonus < 0 || s.TextFallback < 0 || s.ContentBonus < 0 || s.TextMinLength < 0 {
		errs = append(errs, errors.New("per_follower, text_min_length, text_bonus, text_fallback and content_bonus must not be negative"))
	}
	return errors.Join(errs...)
}

// Options configures a Normalizer.
type Options struct {
	// Platforms maps a platform name to its scale. Unknown platforms use Fallback.
	Platforms   map[string]Scale `yaml:"platforms"`
	Fallback    Scale            `yaml:"fallback"`
	Boilerplate []string         `yaml:"boilerplate"`
}

// Platform names with built-in scales.
const (
	Instagram = "instagram"
	LinkedIn  = "linkedin"
)

var instagramScale = Scale{
	PerFollower:     0.01,
	FollowerCap:     5.0,
	TextMinLength:   50,
	TextBonus:       3.0,
	TextFallback:    1.0,
	PlatformCap:     8.0,
	ContentBonus:    2.0,
	ContentKeywords: []string{"official", "club", "community"},
}

// DefaultOptions returns the built-in per-platform scales.
//
// A lower-reach platform (linkedin) earns more per follower but saturates earlier,
// so both platforms contribute comparably.
func DefaultOptions() Options {
	return Options{
		Platforms: map[string]Scale{
			Instagram: instagramScale,
			LinkedIn: {
				PerFollower:   0.02,
				FollowerCap:   4.0,
				TextMinLength: 100,
				TextBonus:     4.0,
				TextFallback:  1.0,
				PlatformCap:   8.0,
				ContentBonus:  3.0,
			},
		},
		Fallback:    instagramScale,
		Boilerplate: []string{"n/a", "sign in", "join now", "log in", "sign up", "see more"},
	}
}

// Normalizer scores social records.
type Normalizer struct {
	opts Options
}

// New returns a normalizer. Missing pieces of opts fall back to DefaultOptions.
func New(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.Platforms == nil {
		opts.Platforms = def.Platforms
	}
	if opts.Fallback.PlatformCap == 0 {
		opts.Fallback = def.Fallback
	}
	if opts.Boilerplate == nil {
		opts.Boilerplate = def.Boilerplate
	}
	lowered := make([]string, len(opts.Boilerplate))
	for i, p := range opts.Boilerplate {
		lowered[i] = strings.ToLower(p)
	}
	opts.Boilerplate = lowered
	return &Normalizer{opts: opts}
}

// Scale returns the scale for platform.
func (n *Normalizer) Scale(platform string) Scale {
	if s, ok := n.opts.Platforms[strings.ToLower(platform)]; ok {
		return s
	}
	return n.opts.Fallback
}

var sentinels = map[string]bool{"": true, "-": true, strings.ToLower(club.Unavailable): true}

// ParseFollowers converts a scraped follower count to a non-negative int.
// Thousands separators are stripped and decimals truncate. Sentinels and any
// other non-numeric text give 0.
func ParseFollowers(raw string) int {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if sentinels[strings.ToLower(s)] {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampInt(float64(v))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clampInt(math.Trunc(f))
}

func clampInt(f float64) int {
	switch {
	case f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}

// FollowerScore is followers times the per-follower weight, capped.
func (s Scale) FollowerScore(followers int) float64 {
	return Clamp(min(float64(followers)*s.PerFollower, s.FollowerCap))
}

// qualityText reports whether text is long enough and not a sentinel or boilerplate.
func (n *Normalizer) qualityText(text string, minLength int) bool {
	if len(text) <= minLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range n.opts.Boilerplate {
		if containsPhrase(lower, phrase) {
			return false
		}
	}
	return true
}

// containsPhrase matches multi-word phrases as substrings and single words as
// whole words, so "n/a" does not match inside "design/art".
func containsPhrase(lower, phrase string) bool {
	if strings.ContainsFunc(phrase, unicode.IsSpace) {
		return strings.Contains(lower, phrase)
	}
	for field := range strings.FieldsSeq(lower) {
		if strings.Trim(field, wordPunct) == phrase {
			return true
		}
	}
	return false
}

const wordPunct = ".,;:!?\"'()[]{}"

// TextScore awards the platform's bonus for quality about/bio text, the fallback otherwise.
func (n *Normalizer) TextScore(platform, text string) float64 {
	s := n.Scale(platform)
	if n.qualityText(text, s.TextMinLength) {
		return s.TextBonus
	}
	return s.TextFallback
}

// ContentBonus awards the platform's content bonus when the text is quality text
// that mentions one of the scale's content keywords (any text, when none are set).
func (n *Normalizer) ContentBonus(platform, text string) float64 {
	s := n.Scale(platform)
	if s.ContentBonus == 0 || !n.qualityText(text, s.TextMinLength) {
		return 0
	}
	if len(s.ContentKeywords) == 0 {
		return s.ContentBonus
	}
	lower := strings.ToLower(text)
	for _, kw := range s.ContentKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return s.ContentBonus
		}
	}
	return 0
}

// PlatformScore is one platform's normalized signals.
type PlatformScore struct {
	Followers     int     `json:"followers"`
	FollowerScore float64 `json:"follower_score"`
	TextScore     float64 `json:"text_score"`
	PlatformScore float64 `json:"platform_score"`
	ContentBonus  float64 `json:"content_bonus"`
}

// SocialScore is a club's normalized social record.
type SocialScore struct {
	ClubID         int                      `json:"club_id"`
	Platforms      map[string]PlatformScore `json:"platforms"`
	TotalFollowers int                      `json:"total_followers"`
	SocialScore    float64                  `json:"social_media_score"`
}

// ContentBonus sums the per-platform content bonuses.
func (s SocialScore) ContentBonus() float64 {
	var total float64
	for _, p := range s.Platforms {
		total += p.ContentBonus
	}
	return total
}

// Followers returns the follower count on platform, or 0 when absent.
func (s SocialScore) Followers(platform string) int {
	return s.Platforms[platform].Followers
}

// Normalize scores one club's social record. A nil record yields an all-zero score.
func (n *Normalizer) Normalize(clubID int, rec *club.SocialRecord) SocialScore {
	out := SocialScore{ClubID: clubID, Platforms: map[string]PlatformScore{}}
	if rec == nil || len(rec.SocialMedia) == 0 {
		return out
	}

	var sum float64
	for _, name := range slices.Sorted(maps.Keys(rec.SocialMedia)) {
		profile := rec.SocialMedia[name]
		s := n.Scale(name)
		text := profile.Text()

		ps := PlatformScore{Followers: ParseFollowers(string(profile.Followers))}
		ps.FollowerScore = s.FollowerScore(ps.Followers)
		ps.TextScore = n.TextScore(name, text)
		ps.PlatformScore = Clamp(min(ps.FollowerScore+ps.TextScore, s.PlatformCap))
		ps.ContentBonus = n.ContentBonus(name, text)

		out.Platforms[name] = ps
		out.TotalFollowers += ps.Followers
		sum += ps.PlatformScore
	}
	out.SocialScore = Clamp(sum / float64(len(out.Platforms)))
	return out
}

// NormalizeAll scores every club in ids against the snapshot records.
func (n *Normalizer) NormalizeAll(ids []int, records map[string]club.SocialRecord) map[int]SocialScore {
	out := make(map[int]SocialScore, len(ids))
	for _, id := range ids {
		var rec *club.SocialRecord
		if r, ok := records[club.Key(id)]; ok {
			rec = &r
		}
		out[id] = n.Normalize(id, rec)
	}
	return out
}

// Clamp bounds v to [0, MaxScore]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, MaxScore)
}
