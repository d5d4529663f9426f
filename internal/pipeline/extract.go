package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/pkg/anthropic"
)

const kpiSystemPrompt = `You are a real estate data extractor. Read the provided source text and extract
market KPIs (Key Performance Indicators) as structured JSON.

Return JSON only in this exact schema:
{
  "median_price":      {"value": "$294,900" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": "up 3.47% YoY" or null},
  "price_per_sqft":    {"value": "$183" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": null},
  "active_listings":   {"value": "46.8K" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": "up 2.44% YoY" or null},
  "days_on_market":    {"value": "68" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": "up 6.25% YoY" or null},
  "sale_to_list_ratio":{"value": "100%" or null, "direction": "flat"|"unknown", "detail": null},
  "inventory_change":  {"value": "-11.49% MoM" or null, "direction": "down"|"unknown", "detail": null},
  "yoy_price_change":  {"value": "3.47%" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": null},
  "median_rent":       {"value": "$1,685" or null, "direction": "up"|"down"|"flat"|"unknown", "detail": null}
}

Rules:
- Only extract values that are EXPLICITLY stated in the text. Do NOT calculate or infer.
- If a value is not mentioned, set it to null.
- "direction" indicates the trend: "up" if increasing, "down" if decreasing, "flat" if stable, "unknown" if unclear.
- "detail" is an optional short note like "up 4.7% YoY" or "down 11.49% MoM".
- Use the exact numbers from the text, don't round or modify them.`

const trendsSystemPrompt = `You are a real estate data extractor. From the source text, extract metrics
that have BOTH a current value and a previous/year-ago value, suitable for a comparison chart.

Return JSON only:
{
  "trends": [
    {"label": "Median Home Price", "current": 294900, "previous": 285000, "unit": "$", "change_pct": 3.47},
    {"label": "Days on Market", "current": 68, "previous": 64, "unit": " days", "change_pct": 6.25}
  ]
}

Rules:
- Only include metrics where BOTH current AND previous values are explicitly stated or calculable from a percentage change.
- "current" and "previous" must be raw numbers (no $ or % signs, no commas).
- "unit" is the display prefix/suffix: "$" for dollars, "%" for percentages, " days" for days.
- "change_pct" is the percentage change from previous to current.
- Return an empty array if no comparison data is found.
- Maximum 5 trends.`

const compsSystemPrompt = `You are a real estate data extractor. From the source text, find any
individual property listings mentioned (specific homes for sale, recently sold, etc.).

Return JSON only:
{
  "listings": [
    {"address": "123 Main St, Pittsburgh PA", "price": "$350,000", "sqft": "1,800", "beds": "3", "baths": "2", "status": "for sale"},
    {"address": "456 Oak Ave, Philadelphia PA", "price": "$275,000", "sqft": "1,200", "beds": "2", "baths": "1", "status": "sold"}
  ]
}

Rules:
- Only extract SPECIFIC properties with at least a price OR address mentioned.
- Do NOT extract aggregate/market-level stats (like "median home price is $294K").
- If a field is not mentioned for a listing, set it to null.
- "status" should be "for sale", "sold", "pending", or null if unknown.
- Return an empty array if no individual listings are found.
- Maximum 10 listings.`

const (
	maxTrends = 5
	maxComps  = 10
)

// extraction aggregates the three structured extractors' output.
type extraction struct {
	KPIs   *model.MarketKPIs
	Trends []model.TrendMetric
	Comps  []model.CompListing
}

// coverage is the fraction of expected structured fields that extraction
// populated: the eight KPI slots plus one each for trends and comps.
func (e extraction) coverage() float64 {
	n := e.KPIs.Populated()
	if len(e.Trends) > 0 {
		n++
	}
	if len(e.Comps) > 0 {
		n++
	}
	return float64(n) / float64(model.KPIFieldCount+2)
}

// extractStructured runs the KPI, trend, and comp extractors concurrently
// over the same source text, emitting each event as its extractor finishes.
// Schema-invalid output from any extractor leaves its fields empty; it never
// fails the run.
func (p *Pipeline) extractStructured(ctx context.Context, sources []model.ScoredSource, emit emitFunc) (extraction, model.TokenUsage) {
	if len(sources) == 0 {
		return extraction{}, model.TokenUsage{}
	}

	blob := sourceBlob(sources)

	var (
		mu    sync.Mutex
		ext   extraction
		usage model.TokenUsage
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		text, u, ok := p.extractJSON(gCtx, "kpis", kpiSystemPrompt, blob)
		mu.Lock()
		usage.Add(u)
		mu.Unlock()
		if !ok {
			return nil
		}
		kpis := parseKPIs(text)
		if kpis == nil {
			return nil
		}
		mu.Lock()
		ext.KPIs = kpis
		mu.Unlock()
		emit(model.Event{Type: model.EventKPIs, Data: kpis})
		return nil
	})

	g.Go(func() error {
		text, u, ok := p.extractJSON(gCtx, "trends", trendsSystemPrompt, blob)
		mu.Lock()
		usage.Add(u)
		mu.Unlock()
		if !ok {
			return nil
		}
		trends := parseTrends(text)
		if len(trends) == 0 {
			return nil
		}
		mu.Lock()
		ext.Trends = trends
		mu.Unlock()
		emit(model.Event{Type: model.EventTrends, Data: trends})
		return nil
	})

	g.Go(func() error {
		text, u, ok := p.extractJSON(gCtx, "comps", compsSystemPrompt, blob)
		mu.Lock()
		usage.Add(u)
		mu.Unlock()
		if !ok {
			return nil
		}
		comps := parseComps(text)
		if len(comps) == 0 {
			return nil
		}
		mu.Lock()
		ext.Comps = comps
		mu.Unlock()
		emit(model.Event{Type: model.EventComps, Data: comps})
		return nil
	})

	_ = g.Wait()

	return ext, usage
}

// extractJSON runs a single extraction call. ok reports whether the call
// itself succeeded; validating the returned text is the caller's parse step.
func (p *Pipeline) extractJSON(ctx context.Context, extractor, system, blob string) (string, model.TokenUsage, bool) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Pipeline.ExtractTimeoutSecs)*time.Second)
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.HaikuModel,
		MaxTokens: int64(p.cfg.Pipeline.ExtractMaxTokens),
		System:    anthropic.BuildCachedSystemBlocks(system),
		Messages: []anthropic.Message{
			{Role: "user", Content: blob},
		},
		Temperature: temp(0),
	})
	if err != nil {
		zap.L().Warn("pipeline: extraction call failed",
			zap.String("extractor", extractor),
			zap.Error(err),
		)
		return "", model.TokenUsage{}, false
	}

	return extractText(resp), p.attribute(p.cfg.Anthropic.HaikuModel, resp.Usage), true
}

// sourceBlob flattens the ranked sources into the extraction prompt body.
func sourceBlob(sources []model.ScoredSource) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("[%s] %s\n%s", s.Domain, s.Title, s.Snippet))
	}
	return strings.Join(parts, "\n\n")
}

// rawKPI tolerates the value shapes the model actually returns: strings,
// bare numbers, or null.
type rawKPI struct {
	Value     any     `json:"value"`
	Direction string  `json:"direction"`
	Detail    *string `json:"detail"`
}

// toKPI validates one extracted slot. Slots without a usable value stay nil.
func (r *rawKPI) toKPI(label string) *model.KPIValue {
	if r == nil || r.Value == nil {
		return nil
	}

	var value string
	switch v := r.Value.(type) {
	case string:
		value = v
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil
	}
	if value == "" {
		return nil
	}

	direction := r.Direction
	switch direction {
	case "up", "down", "flat", "unknown":
	default:
		direction = "unknown"
	}

	return &model.KPIValue{Label: label, Value: &value, Direction: direction, Detail: r.Detail}
}

func parseKPIs(text string) *model.MarketKPIs {
	text = cleanJSON(text)

	var raw struct {
		MedianPrice     *rawKPI `json:"median_price"`
		PricePerSqft    *rawKPI `json:"price_per_sqft"`
		ActiveListings  *rawKPI `json:"active_listings"`
		DaysOnMarket    *rawKPI `json:"days_on_market"`
		SaleToListRatio *rawKPI `json:"sale_to_list_ratio"`
		InventoryChange *rawKPI `json:"inventory_change"`
		YoYPriceChange  *rawKPI `json:"yoy_price_change"`
		MedianRent      *rawKPI `json:"median_rent"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	kpis := &model.MarketKPIs{
		MedianPrice:     raw.MedianPrice.toKPI("Median Price"),
		PricePerSqft:    raw.PricePerSqft.toKPI("Price Per Sqft"),
		ActiveListings:  raw.ActiveListings.toKPI("Active Listings"),
		DaysOnMarket:    raw.DaysOnMarket.toKPI("Days On Market"),
		SaleToListRatio: raw.SaleToListRatio.toKPI("Sale To List Ratio"),
		InventoryChange: raw.InventoryChange.toKPI("Inventory Change"),
		YoYPriceChange:  raw.YoYPriceChange.toKPI("YoY Price Change"),
		MedianRent:      raw.MedianRent.toKPI("Median Rent"),
	}
	if kpis.Empty() {
		return nil
	}
	return kpis
}

func parseTrends(text string) []model.TrendMetric {
	text = cleanJSON(text)

	var raw struct {
		Trends []struct {
			Label     string   `json:"label"`
			Current   *float64 `json:"current"`
			Previous  *float64 `json:"previous"`
			Unit      string   `json:"unit"`
			ChangePct *float64 `json:"change_pct"`
		} `json:"trends"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	out := make([]model.TrendMetric, 0, len(raw.Trends))
	for _, t := range raw.Trends {
		// Both values are required for a comparison to mean anything.
		if t.Current == nil || t.Previous == nil {
			continue
		}
		label := t.Label
		if label == "" {
			label = "Metric"
		}
		out = append(out, model.TrendMetric{
			Label:     label,
			Current:   *t.Current,
			Previous:  *t.Previous,
			Unit:      t.Unit,
			ChangePct: t.ChangePct,
		})
		if len(out) == maxTrends {
			break
		}
	}
	return out
}

func parseComps(text string) []model.CompListing {
	text = cleanJSON(text)

	var raw struct {
		Listings []model.CompListing `json:"listings"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	out := make([]model.CompListing, 0, len(raw.Listings))
	for _, c := range raw.Listings {
		if !c.Usable() {
			continue
		}
		out = append(out, c)
		if len(out) == maxComps {
			break
		}
	}
	return out
}
