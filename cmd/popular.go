package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/pkg/upstash"
)

var popularCount int

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "Show the most searched queries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		ca := cache.New(upstash.NewClient(cfg.Upstash.URL, cfg.Upstash.Token))

		queries, err := ca.TopQueries(ctx, popularCount)
		if err != nil {
			return eris.Wrap(err, "popular queries")
		}
		if len(queries) == 0 {
			fmt.Fprintln(os.Stderr, "No popular queries yet.")
			return nil
		}

		formatPopular(os.Stdout, queries)
		return nil
	},
}

func init() {
	popularCmd.Flags().IntVar(&popularCount, "count", 10, "number of queries to show")
	rootCmd.AddCommand(popularCmd)
}

func formatPopular(out io.Writer, queries []cache.PopularQuery) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNT\tQUERY")
	_, _ = fmt.Fprintln(w, "-----\t-----")
	for _, q := range queries {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", q.Count, q.Query)
	}
	_ = w.Flush()
}
