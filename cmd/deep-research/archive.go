// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse research sessions recorded in the SQLite archive",
	Long: `Archive reads the SQLite database that research writes to when
output.archive (or --archive) is set. Use subcommands to list sessions,
show one session in full, or export matching sessions.`,
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.List(cmd.Context(), listOptsFromFlags(cmd))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return archive.Encode(cmd.OutOrStdout(), summaries, "json")
		}
		formatSummaries(cmd.OutOrStdout(), summaries)
		return nil
	},
}

// --- show subcommand ---

var archiveShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return writeSnapshot(cmd.OutOrStdout(), snap, format)
	},
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full snapshots of matching sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		format, _ := cmd.Flags().GetString("format")
		return store.Export(cmd.Context(), cmd.OutOrStdout(), format, listOptsFromFlags(cmd))
	},
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.Output.Archive
	}
	if path == "" {
		return nil, fmt.Errorf("no archive configured: pass --db or set output.archive")
	}
	return archive.Open(path)
}

func listOptsFromFlags(cmd *cobra.Command) archive.ListOptions {
	query, _ := cmd.Flags().GetString("query")
	url, _ := cmd.Flags().GetString("url")
	limit, _ := cmd.Flags().GetInt("limit")
	return archive.ListOptions{Query: query, URL: url, Limit: limit}
}

func formatSummaries(w io.Writer, summaries []archive.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-8s  %-4s  %-5s  %s\n",
		"ID", "Started", "State", "Iter", "Hits", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s  %-19s  %-8s  %-4d  %-5d  %s\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.State, s.Iterations, s.HitCount, s.Query)
	}

	fmt.Fprintf(w, "\n%d sessions\n", len(summaries))
}

func init() {
	archiveCmd.PersistentFlags().String("db", "", "archive database path (default: output.archive)")

	for _, c := range []*cobra.Command{archiveListCmd, archiveExportCmd} {
		c.Flags().String("query", "", "keep sessions whose query contains this text")
		c.Flags().String("url", "", "keep sessions that collected this URL")
		c.Flags().Int("limit", 0, "maximum number of sessions (0 = all)")
	}
	archiveListCmd.Flags().Bool("json", false, "output the listing as JSON")
	archiveShowCmd.Flags().String("format", "yaml", "output format: yaml, json, or markdown")
	archiveExportCmd.Flags().String("format", "yaml", "output format: yaml or json")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	rootCmd.AddCommand(archiveCmd)
}
