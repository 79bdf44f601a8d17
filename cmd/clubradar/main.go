package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elonfeng/clubradar/pkg/score"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clubradar",
		Short:         "Rank student clubs from chat, social, event and survey signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(analyzeCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(groupsCmd())
	root.AddCommand(analyticsCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func analyzeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze chat logs only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func rankCmd() *cobra.Command {
	var (
		model      string
		group      string
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the club ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), model, group, jsonOutput, limit)
		},
	}

	cmd.Flags().StringVar(&model, "model", "",
		"scoring model: "+strings.Join(score.Models(), " or ")+" (default: from config)")
	cmd.Flags().StringVar(&group, "group", "", "rank only the members of this group")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "max clubs to show (0: all)")
	return cmd
}

func groupsCmd() *cobra.Command {
	var (
		jsonOutput bool
		clusters   bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show club groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(cmd.Context(), jsonOutput, clusters)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&clusters, "clusters", false, "show the text-similarity clusters instead")
	return cmd
}

func analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics <club-id>",
		Short: "Show everything known about one club as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(cmd.Context(), args[0])
		},
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run a full evaluation: write artifacts, store the run and send alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context())
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored evaluation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [" + schemaNames + "]",
		Short:     "Print the JSON Schema of an output artifact",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: artifactNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "rankings"
			if len(args) == 1 {
				name = args[0]
			}
			return runSchema(name)
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Evaluate once and serve the result over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
