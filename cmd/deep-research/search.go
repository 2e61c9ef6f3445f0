// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one scored web search",
	Long: `Search sends a single query through the search gateway (Google first,
DuckDuckGo on failure) and prints the scored hits ordered as returned.
No language model is involved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query must not be empty")
		}
		backend, _ := cmd.Flags().GetString("backend")
		asJSON, _ := cmd.Flags().GetBool("json")

		gateway, err := search.NewGatewayFromConfig(cfg.Search, nil, logger, search.NewMetrics(prometheus.NewRegistry()))
		if err != nil {
			return err
		}
		hits, err := gateway.Search(cmd.Context(), query, cfg.Search.MaxResults, backend)
		if err != nil {
			return err
		}
		logger.Debug("search finished", zap.String("query", query), zap.Int("hits", len(hits)))

		if asJSON {
			return search.FormatJSON(hits, cmd.OutOrStdout())
		}
		search.FormatTable(hits, cmd.OutOrStdout())
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("max-results", 5, "maximum number of results to return")
	searchCmd.Flags().String("backend", "", "force one backend: google or duckduckgo")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	bindFlags(searchCmd.Flags(), map[string]string{"max-results": "search.max_results"})

	rootCmd.AddCommand(searchCmd)
}
