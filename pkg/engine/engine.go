// Package engine runs one evaluation pass: chat analysis, social normalization,
// weighted scoring and grouping over an immutable source snapshot.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/clubradar/internal/id"
	"github.com/elonfeng/clubradar/internal/logger"
	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
	"github.com/elonfeng/clubradar/pkg/source"
)

// Options configures an Engine. Nil components fall back to their defaults.
type Options struct {
	Model      score.Model
	Normalizer *normalize.Normalizer
	Analyzer   *engagement.Analyzer
	Grouper    *grouping.Grouper
	// OutputDir receives the JSON artifacts. Empty disables writing.
	OutputDir string
	Workers   int
}

// Engine evaluates clubs.
type Engine struct {
	opts Options
}

// New creates an engine.
func New(opts Options) *Engine {
	if len(opts.Model.Weights) == 0 {
		opts.Model = score.Comprehensive()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(normalize.DefaultOptions())
	}
	if opts.Analyzer == nil {
		opts.Analyzer = engagement.NewAnalyzer(nil)
	}
	if opts.Grouper == nil {
		opts.Grouper = grouping.New(grouping.DefaultOptions())
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Engine{opts: opts}
}

// Model returns the scoring model the engine ranks with.
func (e *Engine) Model() score.Model { return e.opts.Model }

// Analyze runs only the chat stage.
func (e *Engine) Analyze(ctx context.Context, snap *source.Snapshot) (map[int]engagement.Metrics, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Stage: "chat"})
	sc := logger.StartSpan(ctx, "engine.analyze")
	defer sc.End()

	chat, err := e.opts.Analyzer.AnalyzeAll(sc.Context(), snap.ChatFiles, e.opts.Workers)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("analyze chats: %w", err)
	}
	sc.Span().SetAttributes(attribute.Int("chat.files", len(snap.ChatFiles)))
	return chat, nil
}

// Run evaluates every club in the snapshot. Missing or malformed sources
// degrade to zero contributions and are reported as warnings on the result.
// It fails only when ctx is done or artifacts cannot be written.
func (e *Engine) Run(ctx context.Context, snap *source.Snapshot) (*Result, error) {
	runID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: &runID, Component: "engine"})
	sc := logger.StartSpan(ctx, "engine.run")
	defer sc.End()
	ctx = sc.Context()

	r := &Result{
		RunID:     runID,
		Model:     e.opts.Model,
		StartedAt: time.Now().UTC(),
		snap:      snap,
		grouper:   e.opts.Grouper,
	}
	for _, w := range snap.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}

	chat, err := e.Analyze(ctx, snap)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}
	r.chat = chat

	clubs := snap.Clubs.All()
	r.social = e.normalize(ctx, clubs, snap)
	r.inputs = make([]score.Inputs, len(clubs))
	for i, c := range clubs {
		r.inputs[i] = r.inputsFor(c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.ranking = e.rank(gctx, r.inputs)
		return nil
	})
	g.Go(func() error {
		r.groups, r.clusters = e.group(gctx, clubs)
		return nil
	})
	if err := g.Wait(); err != nil {
		sc.RecordError(err)
		return nil, err
	}
	r.FinishedAt = time.Now().UTC()

	if e.opts.OutputDir != "" {
		if err := r.WriteArtifacts(e.opts.OutputDir); err != nil {
			sc.RecordError(err)
			return nil, err
		}
	}

	sc.Span().SetAttributes(
		attribute.Int("clubs", len(clubs)),
		attribute.Int("groups", len(r.groups)),
		attribute.Int("warnings", len(r.Warnings)),
	)
	attrs := []any{"clubs", len(clubs), "groups", len(r.groups), "warnings", len(r.Warnings),
		"duration", r.FinishedAt.Sub(r.StartedAt)}
	if leader, ok := r.Leader(); ok {
		attrs = append(attrs, "leader", leader.ClubName, "leader_score", leader.Overall)
	}
	slog.InfoContext(ctx, "evaluation run complete", attrs...)
	return r, nil
}

func (e *Engine) normalize(ctx context.Context, clubs []club.Club, snap *source.Snapshot) map[int]normalize.SocialScore {
	sc := logger.StartSpan(ctx, "engine.normalize")
	defer sc.End()

	ids := make([]int, len(clubs))
	for i, c := range clubs {
		ids[i] = c.ID
	}
	out := e.opts.Normalizer.NormalizeAll(ids, snap.Social)
	slog.DebugContext(logger.WithLogFields(ctx, logger.LogFields{Stage: "normalize"}),
		"social records normalized", "clubs", len(out))
	return out
}

func (e *Engine) rank(ctx context.Context, inputs []score.Inputs) []score.Evaluation {
	sc := logger.StartSpan(ctx, "engine.rank")
	defer sc.End()
	sc.Span().SetAttributes(attribute.String("model", e.opts.Model.Name))

	ranking := e.opts.Model.Rank(inputs)
	slog.DebugContext(logger.WithLogFields(ctx, logger.LogFields{Stage: "rank"}),
		"clubs ranked", "model", e.opts.Model.Name, "clubs", len(ranking))
	return ranking
}

func (e *Engine) group(ctx context.Context, clubs []club.Club) (groups, clusters []grouping.Group) {
	sc := logger.StartSpan(ctx, "engine.group")
	defer sc.End()

	groups = e.opts.Grouper.Groups(clubs)
	clusters = e.opts.Grouper.Clusters(clubs)
	slog.DebugContext(logger.WithLogFields(ctx, logger.LogFields{Stage: "group"}),
		"clubs grouped", "groups", len(groups), "clusters", len(clusters))
	return groups, clusters
}
