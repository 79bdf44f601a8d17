package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/invopop/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/clubradar/internal/config"
	"github.com/elonfeng/clubradar/internal/logger"
	"github.com/elonfeng/clubradar/internal/scheduler"
	"github.com/elonfeng/clubradar/internal/store"
	"github.com/elonfeng/clubradar/internal/telemetry"
	"github.com/elonfeng/clubradar/pkg/alert"
	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/engine"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/normalize"
	"github.com/elonfeng/clubradar/pkg/score"
	"github.com/elonfeng/clubradar/pkg/server"
	"github.com/elonfeng/clubradar/pkg/source"
)

// app holds what every command needs after configuration is loaded.
type app struct {
	cfg   *config.Config
	tel   *telemetry.Telemetry
	feeds *source.FeedReader
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Setup(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	return &app{cfg: cfg, tel: tel, feeds: source.NewFeedReader()}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}
}

func (a *app) load(ctx context.Context) *source.Snapshot {
	return source.Load(ctx, a.cfg.Data.Paths(), a.feeds)
}

// buildEngine wires the configured components. modelName overrides the configured model.
func (a *app) buildEngine(modelName string, writeArtifacts bool) (*engine.Engine, error) {
	sc := a.cfg.Scoring
	if modelName != "" && !strings.EqualFold(modelName, sc.Model) {
		sc = config.ScoringConfig{Model: modelName}
	}
	model, err := sc.BuildModel()
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		Model:      model,
		Normalizer: normalize.New(a.cfg.Normalize.Options()),
		Analyzer:   engagement.NewAnalyzer(a.cfg.Analysis.Classifier()),
		Grouper:    grouping.New(a.cfg.Grouping.Options()),
		Workers:    a.cfg.Workers,
	}
	if writeArtifacts {
		opts.OutputDir = a.cfg.Output.Dir
	}
	return engine.New(opts), nil
}

func (a *app) openStore() (store.Store, error) {
	if a.cfg.Database.Path == "" {
		return nil, nil
	}
	db, err := store.New(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func (a *app) buildAlertManager() *alert.Manager {
	var notifiers []alert.Notifier

	if a.cfg.Alerts.Slack.Enabled && a.cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(a.cfg.Alerts.Slack.WebhookURL))
	}
	if a.cfg.Alerts.Discord.Enabled && a.cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(a.cfg.Alerts.Discord.WebhookURL))
	}
	if a.cfg.Alerts.Webhook.Enabled && a.cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(a.cfg.Alerts.Webhook.URL, a.cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// evaluate runs the engine once over a fresh snapshot.
func (a *app) evaluate(ctx context.Context, modelName string) (*engine.Result, error) {
	eng, err := a.buildEngine(modelName, false)
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx, a.load(ctx))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func runAnalyze(ctx context.Context, jsonOutput bool) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	eng, err := a.buildEngine("", false)
	if err != nil {
		return err
	}
	snap := a.load(ctx)
	metrics, err := eng.Analyze(ctx, snap)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"clubs":      metrics,
			"comparison": engagement.Compare(metrics),
		})
	}

	if len(metrics) == 0 {
		fmt.Println("no chat logs configured (see data.chat_files)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLUB\tMESSAGES\tSENDERS\tEVENTS\tRESPONSE\tENGAGEMENT")
	for _, id := range slices.Sorted(maps.Keys(metrics)) {
		m := metrics[id]
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\t%.2f\n",
			m.ClubName, humanize.Comma(int64(m.TotalMessages)), m.UniqueSenders,
			m.Content.EventRelated, m.Responses.ResponseRatePercentage, m.EngagementScore)
	}
	return w.Flush()
}

func runRank(ctx context.Context, modelName, group string, jsonOutput bool, limit int) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.evaluate(ctx, modelName)
	if err != nil {
		return err
	}
	printWarnings(result.Warnings)

	ranking := result.Rankings()
	if group != "" {
		if ranking, err = result.GroupRankings(group); err != nil {
			return err
		}
	}
	if limit > 0 && limit < len(ranking) {
		ranking = ranking[:limit]
	}

	if jsonOutput {
		doc := result.RankingsDocument()
		doc.Rankings = ranking
		return printJSON(doc)
	}

	if len(ranking) == 0 {
		fmt.Println("no clubs to rank (check data.dir and clubs.json)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := []string{"RANK", "CLUB", "OVERALL"}
	for _, wt := range result.Model.Weights {
		header = append(header, strings.ToUpper(string(wt.Component)))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, ev := range ranking {
		row := []string{humanize.Ordinal(ev.Rank), ev.ClubName, fmt.Sprintf("%.2f", ev.Overall)}
		for _, wt := range result.Model.Weights {
			row = append(row, fmt.Sprintf("%.2f", ev.SubScores[string(wt.Component)]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func runGroups(ctx context.Context, jsonOutput, clusters bool) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.evaluate(ctx, "")
	if err != nil {
		return err
	}
	printWarnings(result.Warnings)

	groups := result.Groups()
	if clusters {
		groups = result.Clusters()
	}
	if jsonOutput {
		if groups == nil {
			groups = []grouping.Group{}
		}
		return printJSON(groups)
	}

	if len(groups) == 0 {
		fmt.Println("no groups found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tCLUBS\tSIMILARITY\tMEMBERS")
	for _, g := range groups {
		var names []string
		for _, id := range g.ClubIDs {
			if c, ok := result.Club(id); ok {
				names = append(names, c.Name)
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\n", g.Name, len(g.ClubIDs), g.Similarity, strings.Join(names, ", "))
	}
	return w.Flush()
}

func runAnalytics(ctx context.Context, arg string) error {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid club id %q", arg)
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.evaluate(ctx, "")
	if err != nil {
		return err
	}
	analytics, err := result.Analytics(id)
	if err != nil {
		return err
	}
	return printJSON(analytics)
}

func runEvaluate(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	eng, err := a.buildEngine("", true)
	if err != nil {
		return err
	}
	db, err := a.openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sched := scheduler.New(scheduler.Options{
		Engine: eng,
		Load:   a.load,
		Store:  db,
		Alerts: a.buildAlertManager(),
		Top:    a.cfg.Alerts.Top,
	})
	result, err := sched.RunOnce(ctx)
	if result == nil {
		return err
	}
	printWarnings(result.Warnings)

	fmt.Fprintf(os.Stderr, "run %d: %s clubs ranked with %s model, %d groups, in %s\n",
		result.RunID, humanize.Comma(int64(len(result.Rankings()))), result.Model.Name,
		len(result.Groups()), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	if leader, ok := result.Leader(); ok {
		fmt.Fprintf(os.Stderr, "leader: %s (%.2f)\n", leader.ClubName, leader.Overall)
	}
	fmt.Fprintf(os.Stderr, "artifacts written to %s\n", a.cfg.Output.Dir)
	return err
}

func runHistory(ctx context.Context, limit int) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	db, err := a.openStore()
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("run history is disabled (database.path is empty)")
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs stored yet (try: clubradar evaluate)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tFINISHED\tMODEL\tCLUBS\tGROUPS\tLEADER\tWARNINGS")
	for _, r := range runs {
		leader := "-"
		if rankings, err := db.ListRankings(ctx, r.ID); err == nil && len(rankings) > 0 {
			leader = rankings[0].ClubName
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%d\n",
			r.ID, humanize.Time(r.FinishedAt), r.Model, r.ClubCount, r.GroupCount, leader, len(r.Warnings))
	}
	return w.Flush()
}

// artifacts maps a schema name to a value of the artifact's type.
var artifacts = map[string]any{
	"rankings":  engine.Rankings{},
	"groups":    []grouping.Group{},
	"clusters":  []grouping.Group{},
	"chat":      map[string]engagement.Metrics{},
	"social":    map[string]normalize.SocialScore{},
	"dashboard": engine.Dashboard{},
	"analytics": engine.Analytics{},
	"model":     score.Model{},
}

const schemaNames = "rankings|groups|clusters|chat|social|dashboard|analytics|model"

func artifactNames() []string {
	return slices.Sorted(maps.Keys(artifacts))
}

func runSchema(name string) error {
	v, ok := artifacts[name]
	if !ok {
		return fmt.Errorf("unknown artifact %q (one of %s)", name, strings.Join(artifactNames(), ", "))
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return printJSON(reflector.Reflect(v))
}

func runServe(ctx context.Context, port int) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}
	db, err := a.openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	result, err := a.evaluate(ctx, "")
	if err != nil {
		return err
	}
	printWarnings(result.Warnings)

	srv := server.New(db, port)
	srv.SetResult(result)
	return srv.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}
	eng, err := a.buildEngine("", true)
	if err != nil {
		return err
	}
	db, err := a.openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	srv := server.New(db, port)
	sched := scheduler.New(scheduler.Options{
		Engine:  eng,
		Load:    a.load,
		Store:   db,
		Alerts:  a.buildAlertManager(),
		Publish: srv.SetResult,
		Spec:    a.cfg.Schedule.Cron,
		Top:     a.cfg.Alerts.Top,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	err = g.Wait()
	fmt.Fprintln(os.Stderr, "shutting down...")
	return err
}
