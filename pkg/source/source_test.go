package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const clubsJSON = `{"clubs":[
  {"id":1,"name":"Coding Club","category":"technical","description":"code","social_media":{"instagram":"@code"},
   "founded_year":2018,"member_count":120,"activities":["hackathons"],"keywords":["coding"]},
  {"id":2,"name":"Rhythm","category":"performing_arts","description":"dance","founded_year":2015,"member_count":40}
]}`

func TestLoadClubs(t *testing.T) {
	dir := t.TempDir()
	clubs, err := LoadClubs(writeFile(t, dir, "clubs.json", clubsJSON))
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "@code", clubs[0].SocialMedia["instagram"])
	assert.Equal(t, []string{"hackathons"}, clubs[0].Activities)
}

func TestLoadClubsFailures(t *testing.T) {
	dir := t.TempDir()

	clubs, err := LoadClubs(filepath.Join(dir, "missing.json"))
	assert.Empty(t, clubs)
	assert.ErrorIs(t, err, ErrMissing)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageClubs, se.Stage)

	clubs, err = LoadClubs(writeFile(t, dir, "bad.json", `{"clubs": [`))
	assert.NotNil(t, clubs)
	assert.Empty(t, clubs)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = LoadClubs(writeFile(t, dir, "empty.json", `{}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadSecondarySources(t *testing.T) {
	dir := t.TempDir()

	events, err := LoadEvents(writeFile(t, dir, "events.json", `{"events":[
	  {"id":1,"club_id":1,"name":"Hackathon","type":"competition","date":"2024-03-01","participants":120,
	   "duration_hours":24,"impact_score":9,"collaboration_clubs":[2],"description":"24h"}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Collaborative())
	assert.Equal(t, 24.0, events[0].DurationHours)

	votes, err := LoadVotes(writeFile(t, dir, "votes.json", `{"vote_summary":{"total_votes":50,"categories":{"best":{"1":20}}}}`))
	require.NoError(t, err)
	require.NotNil(t, votes)
	assert.Equal(t, 20, votes.Votes("best", 1))

	social, err := LoadSocial(writeFile(t, dir, "social.json", `{
	  "club_1":{"club_id":1,"social_media":{"instagram":{"followers":"1,234","bio":"hi"},"linkedin":{"followers":87,"about":"N/A"}}}}`))
	require.NoError(t, err)
	rec := social["club_1"]
	assert.Equal(t, "1,234", string(rec.SocialMedia["instagram"].Followers))
	assert.Equal(t, "87", string(rec.SocialMedia["linkedin"].Followers))

	_, err = LoadVotes(filepath.Join(dir, "none.json"))
	assert.ErrorIs(t, err, ErrMissing)
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:club="https://clubradar.dev/ns/event">
<channel>
  <title>Coding Club events</title>
  <item>
    <title>Spring Hackathon</title>
    <category>competition</category>
    <category>coding</category>
    <pubDate>Sat, 02 Mar 2024 10:00:00 GMT</pubDate>
    <description>Build things</description>
    <club:participants>120</club:participants>
    <club:duration_hours>24</club:duration_hours>
    <club:impact_score>8.5</club:impact_score>
  </item>
  <item>
    <title>Study session</title>
  </item>
</channel>
</rss>`

func TestFeedReader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "feed.xml", feedXML)

	events, err := NewFeedReader().Read(context.Background(), EventFeed{ClubID: 1, URL: path})
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := events[0]
	assert.Equal(t, 1, ev.ClubID)
	assert.Equal(t, "Spring Hackathon", ev.Name)
	assert.Equal(t, "competition", ev.Type)
	assert.Equal(t, "2024-03-02", ev.Date)
	assert.Equal(t, 120, ev.Participants)
	assert.Equal(t, 24.0, ev.DurationHours)
	assert.Equal(t, 8.5, ev.ImpactScore)

	assert.Equal(t, "Study session", events[1].Name)
	assert.Zero(t, events[1].Participants)

	_, err = NewFeedReader().Read(context.Background(), EventFeed{URL: "/does/not/exist.xml"})
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clubs.json", clubsJSON)
	writeFile(t, dir, "events.json", `{"events":[{"id":7,"club_id":2,"name":"Show"}]}`)
	writeFile(t, dir, "social_media_data.json", `{"club_1":{"club_id":1,"social_media":{"instagram":{"followers":"10"}}}}`)
	feed := writeFile(t, dir, "feeds/coding.xml", feedXML)

	p := DefaultPaths(dir)
	p.EventFeeds = []EventFeed{{ClubID: 1, URL: feed}, {ClubID: 2, URL: filepath.Join(dir, "nope.xml")}}

	s := Load(context.Background(), p, NewFeedReader())

	assert.Equal(t, 2, s.Clubs.Len())
	// voting file and one feed are missing
	require.Len(t, s.Warnings, 2)
	assert.ErrorIs(t, s.Warnings[0], ErrMissing)
	var se *StageError
	require.ErrorAs(t, s.Warnings[1], &se)
	assert.Equal(t, StageFeeds, se.Stage)

	require.Len(t, s.Events, 3)
	assert.Equal(t, 8, s.Events[1].ID)
	assert.Equal(t, 9, s.Events[2].ID)
	assert.Len(t, s.EventsFor(1), 2)
	assert.Len(t, s.EventsFor(2), 1)

	assert.NotNil(t, s.SocialFor(1))
	assert.Nil(t, s.SocialFor(2))
	assert.Nil(t, s.Votes)

	require.Len(t, s.ChatFiles, 6)
	for _, cf := range s.ChatFiles {
		if cf.ClubID == 1 {
			assert.Equal(t, "Coding Club", cf.ClubName)
			assert.Equal(t, filepath.Join(dir, "chat", "SNUC Coding Club_chat.txt"), cf.Path)
		}
	}
}

func TestLoadSnapshotEmptyDir(t *testing.T) {
	s := Load(context.Background(), DefaultPaths(t.TempDir()), nil)
	assert.Equal(t, 0, s.Clubs.Len())
	assert.Len(t, s.Warnings, 4)
	assert.NotNil(t, s.Social)
	assert.NotNil(t, s.Events)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := truncate("aé fest", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}
