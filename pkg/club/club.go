package club

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Club is the descriptor record for a ranked organization.
type Club struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	SocialMedia map[string]string `json:"social_media"`
	FoundedYear int               `json:"founded_year"`
	MemberCount int               `json:"member_count"`
	Activities  []string          `json:"activities"`
	Keywords    []string          `json:"keywords"`
}

// Key formats a club id the way the scraped snapshot and chat analysis files key clubs.
func Key(id int) string { return fmt.Sprintf("club_%d", id) }

// Event is a single event record.
type Event struct {
	ID                 int     `json:"id"`
	ClubID             int     `json:"club_id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	Date               string  `json:"date"`
	Participants       int     `json:"participants"`
	DurationHours      float64 `json:"duration_hours"`
	ImpactScore        float64 `json:"impact_score"`
	CollaborationClubs []int   `json:"collaboration_clubs"`
	Description        string  `json:"description"`
}

// Collaborative reports whether another club co-hosted the event.
func (e Event) Collaborative() bool { return len(e.CollaborationClubs) > 0 }

// VoteTally is the survey vote summary: category -> club id -> votes.
type VoteTally struct {
	TotalVotes int                       `json:"total_votes"`
	Categories map[string]map[string]int `json:"categories"`
}

// Votes returns the votes a club received in one category.
func (v *VoteTally) Votes(category string, clubID int) int {
	if v == nil {
		return 0
	}
	return v.Categories[category][strconv.Itoa(clubID)]
}

// Unavailable is the sentinel the scraper writes when a field could not be read.
const Unavailable = "N/A"

// Followers is a follower count as scraped: either a JSON number or a string such as "1,234".
// The raw text is kept so that normalization decides how to interpret it.
type Followers string

// UnmarshalJSON accepts strings, numbers and null.
func (f *Followers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Followers(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Anything else (bool, object) is malformed input; keep it as unparseable text.
		*f = Followers(string(data))
		return nil
	}
	*f = Followers(n.String())
	return nil
}

// PlatformProfile is one platform's scraped profile for a club.
type PlatformProfile struct {
	Followers   Followers `json:"followers"`
	Bio         string    `json:"bio,omitempty"`
	About       string    `json:"about,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// Text returns the best available about/bio text, or the unavailable sentinel.
func (p PlatformProfile) Text() string {
	for _, s := range []string{p.About, p.Bio, p.Description} {
		if s != "" {
			return s
		}
	}
	return Unavailable
}

// SocialRecord is one club's entry in the scraped social snapshot.
type SocialRecord struct {
	ClubID      int                        `json:"club_id"`
	SocialMedia map[string]PlatformProfile `json:"social_media"`
}
