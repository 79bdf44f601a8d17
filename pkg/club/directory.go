package club

import "strings"

// Directory is a read-only view over the loaded club descriptors.
type Directory struct {
	clubs []Club
	byID  map[int]int
}

// NewDirectory indexes clubs by id. Later duplicates of an id are ignored.
func NewDirectory(clubs []Club) *Directory {
	d := &Directory{byID: make(map[int]int, len(clubs))}
	for _, c := range clubs {
		if _, dup := d.byID[c.ID]; dup {
			continue
		}
		d.byID[c.ID] = len(d.clubs)
		d.clubs = append(d.clubs, c)
	}
	return d
}

// All returns the clubs in input order.
func (d *Directory) All() []Club {
	out := make([]Club, len(d.clubs))
	copy(out, d.clubs)
	return out
}

// Len returns the number of clubs.
func (d *Directory) Len() int { return len(d.clubs) }

// Get returns the club with the given id.
func (d *Directory) Get(id int) (Club, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Club{}, false
	}
	return d.clubs[i], true
}

// ByCategory returns clubs whose category equals category.
func (d *Directory) ByCategory(category string) []Club {
	var out []Club
	for _, c := range d.clubs {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// ByActivity returns clubs that list the activity tag.
func (d *Directory) ByActivity(activity string) []Club {
	var out []Club
	for _, c := range d.clubs {
		for _, a := range c.Activities {
			if a == activity {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Search matches a keyword case-insensitively against name, description and keyword tags.
func (d *Directory) Search(keyword string) []Club {
	q := strings.ToLower(strings.TrimSpace(keyword))
	if q == "" {
		return nil
	}
	var out []Club
	for _, c := range d.clubs {
		if matchesClub(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matchesClub(c Club, q string) bool {
	if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
		return true
	}
	for _, kw := range c.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}

// Statistics summarizes the club set.
type Statistics struct {
	TotalClubs        int            `json:"total_clubs"`
	Categories        map[string]int `json:"categories"`
	TotalMembers      int            `json:"total_members"`
	AvgMembersPerClub float64        `json:"avg_members_per_club"`
	OldestClubYear    int            `json:"oldest_club_year"`
	NewestClubYear    int            `json:"newest_club_year"`
}

// Statistics computes category counts, member totals and founding year range.
func (d *Directory) Statistics() Statistics {
	stats := Statistics{Categories: make(map[string]int)}
	if len(d.clubs) == 0 {
		return stats
	}
	stats.TotalClubs = len(d.clubs)
	stats.OldestClubYear = d.clubs[0].FoundedYear
	stats.NewestClubYear = d.clubs[0].FoundedYear
	for _, c := range d.clubs {
		stats.Categories[c.Category]++
		stats.TotalMembers += c.MemberCount
		stats.OldestClubYear = min(stats.OldestClubYear, c.FoundedYear)
		stats.NewestClubYear = max(stats.NewestClubYear, c.FoundedYear)
	}
	stats.AvgMembersPerClub = float64(stats.TotalMembers) / float64(stats.TotalClubs)
	return stats
}
