// Package retrieve runs the two-pass web search: an advanced pass restricted
// to registry domains, then a broad basic pass when the trusted pass comes
// back thin.
package retrieve

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/config"
	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/internal/resilience"
	"github.com/sells-group/realty-search/internal/trust"
	"github.com/sells-group/realty-search/pkg/tavily"
)

// Retriever fetches raw web results for a query. The int return is the
// number of search calls that completed, for per-query cost attribution.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]model.RawResult, int, error)
}

type tavilyRetriever struct {
	search   tavily.Client
	registry *trust.Registry
	cfg      config.RetrievalConfig
}

// New creates a Retriever backed by the Tavily search API.
func New(search tavily.Client, registry *trust.Registry, cfg config.RetrievalConfig) Retriever {
	return &tavilyRetriever{search: search, registry: registry, cfg: cfg}
}

// Retrieve returns deduplicated results for the query. The trusted pass
// must succeed; a broad-pass failure degrades to whatever the trusted pass
// produced. An empty result set is valid.
func (r *tavilyRetriever) Retrieve(ctx context.Context, query string) ([]model.RawResult, int, error) {
	trusted, err := r.searchOnce(ctx, tavily.SearchRequest{
		Query:          query,
		SearchDepth:    tavily.DepthAdvanced,
		MaxResults:     r.cfg.MaxTrustedResults,
		IncludeDomains: r.registry.AllowedDomains(),
	})
	if err != nil {
		return nil, 0, eris.Wrap(err, "retrieve: trusted search")
	}

	results := dedupe(trusted)
	if r.countTrusted(results) >= r.cfg.MinTrustedResults {
		return results, 1, nil
	}

	zap.L().Info("retrieve: broadening search",
		zap.String("query", query),
		zap.Int("trusted_results", r.countTrusted(results)),
	)

	broad, err := r.searchOnce(ctx, tavily.SearchRequest{
		Query:       query,
		SearchDepth: tavily.DepthBasic,
		MaxResults:  r.cfg.MaxBroadResults,
	})
	if err != nil {
		// Keep whatever the trusted pass produced.
		zap.L().Warn("retrieve: broad search failed", zap.String("query", query), zap.Error(err))
		return results, 1, nil
	}

	return dedupe(append(results, broad...)), 2, nil
}

// searchOnce executes a single search with a per-call timeout, retrying
// transient failures per config.
func (r *tavilyRetriever) searchOnce(ctx context.Context, req tavily.SearchRequest) ([]model.RawResult, error) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts: r.cfg.SearchRetries + 1,
		OnRetry:     resilience.RetryLogger("tavily", "search"),
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*tavily.SearchResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.SearchTimeoutSecs)*time.Second)
		defer cancel()
		return r.search.Search(callCtx, req)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.RawResult, 0, len(resp.Results))
	for _, res := range resp.Results {
		out = append(out, model.RawResult{
			Title:       res.Title,
			URL:         res.URL,
			Snippet:     res.Content,
			Relevance:   res.Score,
			PublishedAt: parsePublished(res.PublishedDate),
		})
	}
	return out, nil
}

func (r *tavilyRetriever) countTrusted(results []model.RawResult) int {
	n := 0
	for _, res := range results {
		if r.registry.Trusted(trust.ExtractDomain(res.URL)) {
			n++
		}
	}
	return n
}

// publishedFormats are tried in order; Tavily is not consistent about
// timestamp shapes across sources.
var publishedFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

func parsePublished(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range publishedFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// canonicalURL lowercases host and path and drops query, fragment, and any
// trailing slash so near-duplicate links collapse to one entry.
func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	return strings.ToLower(u.Host + strings.TrimRight(u.Path, "/"))
}

// dedupe drops results whose canonical URL has already been seen,
// preserving first-seen order.
func dedupe(results []model.RawResult) []model.RawResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]model.RawResult, 0, len(results))
	for _, res := range results {
		key := canonicalURL(res.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, res)
	}
	return out
}
