package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/realty-search/internal/model"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Run one search and print the streamed answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "ask")
		if err != nil {
			return err
		}
		defer env.Close()

		events, err := env.Pipeline.Run(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "start run")
		}

		if askJSON {
			return renderEventsJSON(os.Stdout, events)
		}
		renderEvents(os.Stdout, os.Stderr, events)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print raw events as JSON lines")
	rootCmd.AddCommand(askCmd)
}

// renderEventsJSON writes each event as one JSON line, useful for piping
// into jq or replaying a run.
func renderEventsJSON(out io.Writer, events <-chan model.Event) error {
	enc := json.NewEncoder(out)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return eris.Wrap(err, "encode event")
		}
	}
	return nil
}

// renderEvents writes a human-readable transcript: progress and errors go
// to errOut, the answer and extracted data to out.
func renderEvents(out, errOut io.Writer, events <-chan model.Event) {
	var streamed bool

	for ev := range events {
		switch ev.Type {
		case model.EventStatus:
			fmt.Fprintf(errOut, "-- %v\n", ev.Data)

		case model.EventDomainReject:
			if data, ok := ev.Data.(model.DomainRejectData); ok {
				fmt.Fprintln(out, data.Reason)
				if len(data.Suggestions) > 0 {
					fmt.Fprintln(out, "\nTry asking:")
					for _, s := range data.Suggestions {
						fmt.Fprintf(out, "  - %s\n", s)
					}
				}
			}

		case model.EventClarification:
			if data, ok := ev.Data.(model.ClarificationData); ok {
				fmt.Fprintln(out, data.Question)
			}

		case model.EventSources:
			if sources, ok := ev.Data.([]model.ScoredSource); ok {
				trusted := 0
				for _, s := range sources {
					if s.Trusted {
						trusted++
					}
				}
				fmt.Fprintf(errOut, "-- %d sources (%d trusted)\n", len(sources), trusted)
			}

		case model.EventAnswerDelta:
			fmt.Fprint(out, ev.Data)
			streamed = true

		case model.EventKPIs:
			if streamed {
				fmt.Fprintln(out)
				streamed = false
			}
			if kpis, ok := ev.Data.(*model.MarketKPIs); ok {
				formatKPIs(out, kpis)
			}

		case model.EventTrends:
			if streamed {
				fmt.Fprintln(out)
				streamed = false
			}
			if trends, ok := ev.Data.([]model.TrendMetric); ok {
				formatTrends(out, trends)
			}

		case model.EventComps:
			if streamed {
				fmt.Fprintln(out)
				streamed = false
			}
			if comps, ok := ev.Data.([]model.CompListing); ok {
				formatComps(out, comps)
			}

		case model.EventConfidence:
			if streamed {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "\nConfidence: %v%%\n", ev.Data)

		case model.EventError:
			fmt.Fprintf(errOut, "error: %v\n", ev.Data)
		}
	}
}

// formatKPIs writes populated market indicators in schema order.
func formatKPIs(out io.Writer, kpis *model.MarketKPIs) {
	if kpis.Empty() {
		return
	}
	fmt.Fprintln(out, "\nMarket data:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, v := range []*model.KPIValue{
		kpis.MedianPrice, kpis.PricePerSqft, kpis.ActiveListings,
		kpis.DaysOnMarket, kpis.SaleToListRatio, kpis.InventoryChange,
		kpis.YoYPriceChange, kpis.MedianRent,
	} {
		if v == nil || v.Value == nil {
			continue
		}
		val := *v.Value
		if v.Direction != "" && v.Direction != "unknown" {
			val += " (" + v.Direction + ")"
		}
		detail := ""
		if v.Detail != nil {
			detail = *v.Detail
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", v.Label, val, detail)
	}
	_ = w.Flush()
}

func formatTrends(out io.Writer, trends []model.TrendMetric) {
	fmt.Fprintln(out, "\nTrends:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, tr := range trends {
		change := ""
		if tr.ChangePct != nil {
			change = fmt.Sprintf("%+.1f%%", *tr.ChangePct)
		}
		_, _ = fmt.Fprintf(w, "  %s\t%g -> %g %s\t%s\n",
			tr.Label, tr.Previous, tr.Current, tr.Unit, change)
	}
	_ = w.Flush()
}

func formatComps(out io.Writer, comps []model.CompListing) {
	fmt.Fprintln(out, "\nComparable listings:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range comps {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s bd\t%s ba\t%s sqft\t%s\n",
			strOr(c.Address, "(no address)"), strOr(c.Price, "n/a"),
			strOr(c.Beds, "?"), strOr(c.Baths, "?"), strOr(c.Sqft, "?"),
			strOr(c.Status, ""))
	}
	_ = w.Flush()
}

func strOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
