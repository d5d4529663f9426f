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

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit and miss counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		ca := cache.New(upstash.NewClient(cfg.Upstash.URL, cfg.Upstash.Token))

		metrics, err := ca.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}

		formatCacheStats(os.Stdout, metrics)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func formatCacheStats(out io.Writer, m cache.Metrics) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cache hits:\t%d\n", m.Hits)
	_, _ = fmt.Fprintf(w, "Cache misses:\t%d\n", m.Misses)
	if total := m.Hits + m.Misses; total > 0 {
		_, _ = fmt.Fprintf(w, "Hit rate:\t%.1f%%\n", 100*float64(m.Hits)/float64(total))
	}
	_ = w.Flush()
}
