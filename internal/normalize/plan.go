package normalize

import (
	"strconv"
	"strings"

	"github.com/sells-group/realty-search/internal/model"
)

// intentRules is evaluated in order; each matching group contributes one
// intent. Order fixes the output, keeping plans deterministic.
var intentRules = []struct {
	intent string
	terms  []string
}{
	{"prices", []string{"price", "value", "worth", "median", "average", "sqft", "affordability"}},
	{"rentals", []string{"rent"}},
	{"transactions", []string{"buy", "sell"}},
	{"financing", []string{"mortgage", "rate"}},
	{"inventory", []string{"inventory", "listing", "sale"}},
	{"trends", []string{"trend", "forecast", "appreciation"}},
	{"comps", []string{"comps", "comparable"}},
}

// BuildPlan derives the intent-routing plan for a query: which intents it
// touches, which widgets the presentation layer should prepare, and the
// detected geographic/temporal scope. Pure keyword routing over the
// canonical tokens plus the raw text for temporal cues that normalization
// drops.
func BuildPlan(query string, n Normalized) model.QueryPlan {
	present := make(map[string]bool, len(n.Tokens))
	for _, t := range n.Tokens {
		present[t] = true
	}

	var intents []string
	for _, rule := range intentRules {
		for _, term := range rule.terms {
			if present[term] {
				intents = append(intents, rule.intent)
				break
			}
		}
	}
	if len(intents) == 0 {
		intents = []string{"overview"}
	}

	widgets := []string{"answer", "sources", "confidence"}
	if n.Category == model.CategoryMarketData {
		widgets = append(widgets, "kpis", "trends")
	}
	for _, it := range intents {
		if it == "comps" {
			widgets = append(widgets, "comps")
			break
		}
	}

	return model.QueryPlan{
		Intents:   intents,
		Location:  model.PlanLocation{State: n.Location},
		Timeframe: timeframe(query, n.Tokens),
		Widgets:   widgets,
	}
}

func timeframe(query string, tokens []string) model.PlanTimeframe {
	tf := model.PlanTimeframe{Horizon: "current"}

	for _, t := range tokens {
		if len(t) == 4 {
			if y, err := strconv.Atoi(t); err == nil && y >= 1900 && y <= 2100 {
				tf.Year = y
				break
			}
		}
	}

	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "forecast") || strings.Contains(lower, "predict") ||
		strings.Contains(lower, "next year") || strings.Contains(lower, "will "):
		tf.Horizon = "forecast"
	case strings.Contains(lower, "history") || strings.Contains(lower, "historical") ||
		strings.Contains(lower, "last year") || strings.Contains(lower, " was "):
		tf.Horizon = "historical"
	}
	return tf
}
