package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/score"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "clubradar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id int64, finished time.Time, leader int) *Run {
	return &Run{
		ID:           id,
		Model:        score.ModelComprehensive,
		StartedAt:    finished.Add(-time.Minute),
		FinishedAt:   finished,
		ClubCount:    2,
		GroupCount:   1,
		LeaderClubID: leader,
		Warnings:     []string{"events: missing"},
		Rankings: []score.Evaluation{
			{Rank: 1, ClubID: leader, ClubName: "Coding Club", Overall: 7.25, SubScores: map[string]float64{string(score.SocialMedia): 8}},
			{Rank: 2, ClubID: 9, ClubName: "Drama", Overall: 3.5, SubScores: map[string]float64{string(score.SocialMedia): 2}},
		},
		Groups: []grouping.Group{
			{Name: "Technical & Innovation", Description: "tech", ClubIDs: []int{leader}, Similarity: 0.75},
			{Name: grouping.CatchAllName, ClubIDs: []int{9}, Similarity: 0.5},
		},
		Clusters: []grouping.Group{
			{Name: "Cluster 1", ClubIDs: []int{leader, 9}, Similarity: 0.12},
		},
		Chat: map[int]engagement.Metrics{
			leader: {ClubID: leader, ClubName: "Coding Club", TotalMessages: 12, UniqueSenders: 3, EngagementScore: 4.2},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, testRun(100, now, 1)))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), latest.ID)
	assert.Equal(t, score.ModelComprehensive, latest.Model)
	assert.Equal(t, 1, latest.LeaderClubID)
	assert.Equal(t, []string{"events: missing"}, latest.Warnings)
	assert.True(t, latest.FinishedAt.Equal(now))

	rankings, err := s.ListRankings(ctx, 100)
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, 1, rankings[0].Rank)
	assert.Equal(t, "Coding Club", rankings[0].ClubName)
	assert.InDelta(t, 8.0, rankings[0].SubScores[string(score.SocialMedia)], 1e-9)
	assert.Equal(t, 9, rankings[1].ClubID)

	groups, err := s.ListGroups(ctx, 100, KindRule)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Technical & Innovation", groups[0].Name)
	assert.Equal(t, []int{9}, groups[1].ClubIDs)

	clusters, err := s.ListGroups(ctx, 100, KindCluster)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int{1, 9}, clusters[0].ClubIDs)

	m, err := s.GetChatMetrics(ctx, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, m.TotalMessages)
	assert.InDelta(t, 4.2, m.EngagementScore, 1e-9)

	_, err = s.GetChatMetrics(ctx, 100, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestRunEmpty(t *testing.T) {
	_, err := newTestStore(t).LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, s.SaveRun(ctx, testRun(int64(i+1), base.Add(time.Duration(i)*time.Hour), i+1)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)
	assert.Equal(t, int64(2), runs[1].ID)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.LeaderClubID)
}

func TestSaveRunIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := testRun(7, time.Now(), 1)
	run.Rankings = append(run.Rankings, run.Rankings[0]) // duplicate primary key
	require.Error(t, s.SaveRun(ctx, run))

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
