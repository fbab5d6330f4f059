package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"ai-compass/internal/community"
	"ai-compass/internal/config"
	"ai-compass/internal/repos"
	"ai-compass/internal/search"

	"github.com/spf13/cobra"
)

var (
	searchThreads bool
	searchLimit   int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank the local catalog against a query without the LLM",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		r := repos.NewFileRepos(newFileAdapter(cfg), nil)
		query := strings.Join(args, " ")

		var items []search.Item
		if searchThreads {
			views, err := community.NewService(r.Users, r.Audit).List(community.Filter{})
			if err != nil {
				return err
			}
			items = search.ThreadItems(views)
		} else {
			tools, err := r.Tools.List()
			if err != nil {
				return err
			}
			visible := tools[:0]
			for _, t := range tools {
				if !t.Hidden {
					visible = append(visible, t)
				}
			}
			items = search.ToolItems(visible)
		}

		matches := search.Rank(query, items, searchLimit)
		if searchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		}

		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "no matches")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSCORE\tTITLE")
		for _, m := range matches {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\n", m.ID, m.Score, m.Title)
		}
		return tw.Flush()
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchThreads, "threads", false, "search community threads instead of tools")
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.ToolLimit, "maximum results, 0 for all")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}
