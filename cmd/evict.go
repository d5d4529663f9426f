package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/internal/normalize"
	"github.com/sells-group/realty-search/pkg/upstash"
)

var evictCmd = &cobra.Command{
	Use:   "evict <query>",
	Short: "Drop the cached result for a query so the next search recomputes it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		norm, err := normalize.Normalize(args[0])
		if err != nil {
			return eris.Wrap(err, "normalize query")
		}

		ca := cache.New(upstash.NewClient(cfg.Upstash.URL, cfg.Upstash.Token))
		ca.Evict(ctx, norm.Key)

		fmt.Fprintf(os.Stderr, "Evicted %s\n", norm.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evictCmd)
}
