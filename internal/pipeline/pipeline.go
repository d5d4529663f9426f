// Package pipeline orchestrates a question-answering run end to end:
// domain gating, query planning, cache lookup, retrieval, scoring,
// concurrent answer generation and market-data extraction, confidence
// estimation, and the cache write. Progress and results stream to the
// caller as typed events on an ordered channel.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/internal/confidence"
	"github.com/sells-group/realty-search/internal/config"
	"github.com/sells-group/realty-search/internal/cost"
	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/internal/normalize"
	"github.com/sells-group/realty-search/internal/retrieve"
	"github.com/sells-group/realty-search/internal/scorer"
	"github.com/sells-group/realty-search/internal/store"
	"github.com/sells-group/realty-search/pkg/anthropic"
)

// Input validation errors, returned synchronously by Run before any event
// is emitted.
var (
	ErrEmptyQuery   = eris.New("pipeline: query is empty")
	ErrQueryTooLong = eris.New("pipeline: query exceeds maximum length")
)

// emitFunc delivers one event to the run's stream. A false return means the
// caller's context is done and no further events can be delivered.
type emitFunc func(model.Event) bool

// Pipeline runs queries through the full retrieval and generation flow.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	retriever retrieve.Retriever
	scorer    *scorer.Scorer
	cache     *cache.Cache
	anthropic anthropic.Client
	costCalc  *cost.Calculator
}

// New creates a Pipeline. st may be nil when run history is not wanted;
// ca may wrap a nil client when caching is disabled.
func New(cfg *config.Config, st store.Store, retriever retrieve.Retriever, sc *scorer.Scorer, ca *cache.Cache, aiClient anthropic.Client) *Pipeline {
	if ca == nil {
		ca = cache.New(nil)
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		retriever: retriever,
		scorer:    sc,
		cache:     ca,
		anthropic: aiClient,
		costCalc:  cost.NewCalculator(cost.DefaultRates()),
	}
}

// Run validates the query and starts a producer goroutine that feeds the
// returned channel. The channel closes once the run reaches a terminal
// state. Canceling ctx stops event delivery and aborts in-flight work.
func (p *Pipeline) Run(ctx context.Context, query string) (<-chan model.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit := p.cfg.Pipeline.MaxQueryChars; limit > 0 && len(query) > limit {
		return nil, ErrQueryTooLong
	}

	events := make(chan model.Event)
	go p.produce(ctx, query, events)
	return events, nil
}

func (p *Pipeline) produce(ctx context.Context, query string, events chan<- model.Event) {
	defer close(events)

	log := zap.L().With(zap.String("query", query))
	start := time.Now()

	emit := func(ev model.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var (
		runID      string
		usage      model.TokenUsage
		searchCost float64
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: run panicked", zap.Any("panic", r), zap.Stack("stack"))
			emit(model.ErrorEvent("internal error"))
			p.finishRun(ctx, runID, model.RunStatusFailed, &model.RunResult{
				TokenUsage: usage,
				TotalCost:  usage.Cost + searchCost,
				DurationMS: time.Since(start).Milliseconds(),
				Error:      fmt.Sprintf("panic: %v", r),
			}, log)
		}
	}()

	runID = p.createRun(ctx, query, log)
	abandoned := func() {
		log.Info("pipeline: run abandoned", zap.String("run_id", runID))
		p.finishRun(ctx, runID, model.RunStatusFailed, &model.RunResult{
			TokenUsage: usage,
			TotalCost:  usage.Cost + searchCost,
			DurationMS: time.Since(start).Milliseconds(),
			Error:      "canceled",
		}, log)
	}

	if !emit(model.StatusEvent("Checking if query is real estate related...")) {
		abandoned()
		return
	}
	p.setStatus(ctx, runID, model.RunStatusChecking, log)

	verdict, gateUsage := p.checkDomain(ctx, query)
	usage.Add(gateUsage)
	if !verdict.OnTopic {
		emit(model.Event{Type: model.EventDomainReject, Data: model.DomainRejectData{
			Reason:      verdict.Reason,
			Suggestions: verdict.Suggestions,
		}})
		p.finishRun(ctx, runID, model.RunStatusRejected, &model.RunResult{
			TokenUsage: usage,
			TotalCost:  usage.Cost,
			DurationMS: time.Since(start).Milliseconds(),
		}, log)
		log.Info("pipeline: query rejected", zap.String("reason", verdict.Reason))
		return
	}

	if !emit(model.StatusEvent("Analyzing query...")) {
		abandoned()
		return
	}
	clarity, clarityUsage := p.checkAmbiguity(ctx, query)
	usage.Add(clarityUsage)
	if clarity.Ambiguous {
		emit(model.Event{Type: model.EventClarification, Data: model.ClarificationData{
			Question:      clarity.Question,
			OriginalQuery: query,
		}})
		p.finishRun(ctx, runID, model.RunStatusClarify, &model.RunResult{
			TokenUsage: usage,
			TotalCost:  usage.Cost,
			DurationMS: time.Since(start).Milliseconds(),
		}, log)
		log.Info("pipeline: clarification requested", zap.String("question", clarity.Question))
		return
	}

	if !emit(model.StatusEvent("Planning response layout...")) {
		abandoned()
		return
	}
	norm, err := normalize.Normalize(query)
	if err != nil {
		// Run already rejected blank input, so this is a logic bug.
		emit(model.ErrorEvent("could not analyze the query"))
		p.finishRun(ctx, runID, model.RunStatusFailed, &model.RunResult{
			TokenUsage: usage,
			TotalCost:  usage.Cost,
			DurationMS: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}, log)
		log.Error("pipeline: normalization failed", zap.Error(err))
		return
	}
	if !emit(model.Event{Type: model.EventPlan, Data: normalize.BuildPlan(query, norm)}) {
		abandoned()
		return
	}

	if cached, ok := p.cache.Get(ctx, norm.Key); ok {
		if !emit(model.StatusEvent("Found cached result")) || !replay(cached, emit) {
			abandoned()
			return
		}
		p.cache.IncrPopular(ctx, norm.Key)
		p.finishRun(ctx, runID, model.RunStatusComplete, &model.RunResult{
			Confidence:   cached.Confidence,
			SourceCount:  len(cached.Sources),
			TrustedCount: cached.TrustedCount(),
			Category:     cached.Category,
			CacheHit:     true,
			TokenUsage:   usage,
			TotalCost:    usage.Cost,
			DurationMS:   time.Since(start).Milliseconds(),
		}, log)
		log.Info("pipeline: served from cache",
			zap.String("run_id", runID),
			zap.String("key", norm.Key),
			zap.Int("confidence", cached.Confidence),
		)
		return
	}

	if !emit(model.StatusEvent("Searching trusted real estate sources...")) {
		abandoned()
		return
	}
	p.setStatus(ctx, runID, model.RunStatusRetrieving, log)

	raws, searches, err := p.retriever.Retrieve(ctx, query)
	searchCost = p.costCalc.TavilyQuery() * float64(searches)
	if err != nil {
		// Recoverable: answer from whatever we have, which may be nothing.
		log.Warn("pipeline: retrieval failed", zap.Error(err))
		if !emit(model.ErrorEvent("Source search is unavailable right now; answering without fresh sources.")) {
			abandoned()
			return
		}
		raws = nil
	}

	scored := p.scorer.ScoreAll(raws, time.Now())
	if !emit(model.Event{Type: model.EventSources, Data: scored}) {
		abandoned()
		return
	}
	top := scorer.SelectTop(scored, p.cfg.Pipeline.TopSources)

	if !emit(model.StatusEvent("Generating answer...")) {
		abandoned()
		return
	}
	p.setStatus(ctx, runID, model.RunStatusGenerating, log)

	var (
		mu       sync.Mutex
		answer   string
		degraded bool
		ext      extraction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, u, d := p.generateAnswer(gCtx, query, top, emit)
		mu.Lock()
		answer, degraded = a, d
		usage.Add(u)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		e, u := p.extractStructured(gCtx, top, emit)
		mu.Lock()
		ext = e
		usage.Add(u)
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	conf := confidence.Estimate(top, ext.coverage())
	if !emit(model.Event{Type: model.EventConfidence, Data: conf}) {
		abandoned()
		return
	}

	result := &model.PipelineResult{
		Query:      query,
		Answer:     answer,
		Sources:    scored,
		KPIs:       ext.KPIs,
		Trends:     ext.Trends,
		Comps:      ext.Comps,
		Confidence: conf,
		Category:   norm.Category,
		CreatedAt:  time.Now().UTC(),
	}
	if degraded {
		log.Warn("pipeline: answer degraded, skipping cache write")
	} else {
		p.cache.Set(ctx, norm.Key, result)
	}
	p.cache.IncrPopular(ctx, norm.Key)

	p.finishRun(ctx, runID, model.RunStatusComplete, &model.RunResult{
		Confidence:   conf,
		SourceCount:  len(scored),
		TrustedCount: result.TrustedCount(),
		Category:     norm.Category,
		TokenUsage:   usage,
		TotalCost:    usage.Cost + searchCost,
		DurationMS:   time.Since(start).Milliseconds(),
	}, log)

	log.Info("pipeline: run complete",
		zap.String("run_id", runID),
		zap.Int("confidence", conf),
		zap.Int("sources", len(scored)),
		zap.Int("trusted", result.TrustedCount()),
		zap.String("category", string(norm.Category)),
		zap.Float64("cost_usd", usage.Cost+searchCost),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// replay re-emits a cached result as the standard event sequence without
// any collaborator calls. Returns false if delivery was cut short.
func replay(cached *model.PipelineResult, emit emitFunc) bool {
	if !emit(model.Event{Type: model.EventSources, Data: cached.Sources}) {
		return false
	}
	if cached.Answer != "" && !emit(model.DeltaEvent(cached.Answer)) {
		return false
	}
	if cached.KPIs != nil && !cached.KPIs.Empty() {
		if !emit(model.Event{Type: model.EventKPIs, Data: cached.KPIs}) {
			return false
		}
	}
	if len(cached.Trends) > 0 {
		if !emit(model.Event{Type: model.EventTrends, Data: cached.Trends}) {
			return false
		}
	}
	if len(cached.Comps) > 0 {
		if !emit(model.Event{Type: model.EventComps, Data: cached.Comps}) {
			return false
		}
	}
	return emit(model.Event{Type: model.EventConfidence, Data: cached.Confidence})
}

// Run history is best-effort: store failures downgrade to warnings and the
// run proceeds untracked.

func (p *Pipeline) createRun(ctx context.Context, query string, log *zap.Logger) string {
	if p.store == nil {
		return ""
	}
	run, err := p.store.CreateRun(ctx, query)
	if err != nil {
		log.Warn("pipeline: failed to create run record", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		log.Warn("pipeline: failed to update run status",
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// finishRun records the terminal status and result. It outlives caller
// cancellation so abandoned runs still close out their history row.
func (p *Pipeline) finishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.FinishRun(context.WithoutCancel(ctx), runID, status, result); err != nil {
		log.Warn("pipeline: failed to record run result",
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// attribute converts SDK token counts into usage with the cost for the
// given model attached.
func (p *Pipeline) attribute(modelID string, u anthropic.TokenUsage) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:         int(u.InputTokens),
		OutputTokens:        int(u.OutputTokens),
		CacheCreationTokens: int(u.CacheCreationInputTokens),
		CacheReadTokens:     int(u.CacheReadInputTokens),
		Cost: p.costCalc.Claude(modelID,
			int(u.InputTokens),
			int(u.OutputTokens),
			int(u.CacheCreationInputTokens),
			int(u.CacheReadInputTokens),
		),
	}
}

// extractText joins all text content blocks from a response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func temp(v float64) *float64 { return &v }
