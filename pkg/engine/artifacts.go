package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
)

// Artifact file names under the output directory.
const (
	ChatFile     = "chat_analysis.json"
	SocialFile   = "social_metrics.json"
	RankingsFile = "rankings.json"
	GroupsFile   = "groups.json"
	ClustersFile = "clusters.json"
)

// Rankings is the rankings.json document.
type Rankings struct {
	Model       string             `json:"model"`
	Weights     map[string]float64 `json:"weights"`
	GeneratedAt time.Time          `json:"generated_at"`
	Rankings    []score.Evaluation `json:"rankings"`
}

// RankingsDocument returns the rankings artifact of the run.
func (r *Result) RankingsDocument() Rankings {
	return Rankings{
		Model:       r.Model.Name,
		Weights:     r.Model.WeightMap(),
		GeneratedAt: r.FinishedAt,
		Rankings:    r.Rankings(),
	}
}

// WriteArtifacts writes every output file into dir. Each file is replaced
// atomically so readers never observe a partial document.
func (r *Result) WriteArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	chat := make(map[string]engagement.Metrics, len(r.chat))
	for id, m := range r.chat {
		chat[club.Key(id)] = m
	}
	social := make(map[string]normalize.SocialScore, len(r.social))
	for id, s := range r.social {
		social[club.Key(id)] = s
	}

	groups := r.Groups()
	if groups == nil {
		groups = []grouping.Group{}
	}
	clusters := r.Clusters()
	if clusters == nil {
		clusters = []grouping.Group{}
	}

	artifacts := []struct {
		name string
		v    any
	}{
		{ChatFile, chat},
		{SocialFile, social},
		{RankingsFile, r.RankingsDocument()},
		{GroupsFile, groups},
		{ClustersFile, clusters},
	}
	for _, a := range artifacts {
		if err := writeJSON(filepath.Join(dir, a.name), a.v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ReadRankings reads a rankings.json document.
func ReadRankings(path string) (*Rankings, error) {
	var doc Rankings
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadGroups reads a groups.json or clusters.json document.
func ReadGroups(path string) ([]grouping.Group, error) {
	var groups []grouping.Group
	if err := readJSON(path, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
