package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/pkg/anthropic"
)

const domainSystemPrompt = `You are a domain classifier. Determine if the user's query is related to real estate.

Real estate topics include: buying, selling, renting, leasing, mortgages, refinancing,
property values, housing markets, home inspection, home improvement, real estate investing,
property taxes, zoning, neighborhoods, HOAs, title insurance, closing costs, appraisals,
property management, commercial real estate, land use, and housing regulations.

Respond with a valid JSON object:
{"is_real_estate": true/false, "reason": "brief one-sentence explanation", "suggestions": ["up to 3 real estate questions the user could ask instead, only when is_real_estate is false"]}`

const ambiguitySystemPrompt = `You screen real estate questions for ambiguity before research begins.

A question is ambiguous only when it cannot be researched without more detail: the subject
is unclear, a location-specific question names no location, or several unrelated questions
are packed into one. Lean toward clear; most questions can be researched as asked.

Respond with a valid JSON object:
{"is_ambiguous": true/false, "clarification_question": "one short question to ask the user, empty when not ambiguous"}`

// domainVerdict is the outcome of the real-estate domain screen.
type domainVerdict struct {
	OnTopic     bool
	Reason      string
	Suggestions []string
}

// ambiguityVerdict is the outcome of the ambiguity screen.
type ambiguityVerdict struct {
	Ambiguous bool
	Question  string
}

// checkDomain asks the model whether the query is about real estate. The
// screen fails open: any call or parse failure lets the query through.
func (p *Pipeline) checkDomain(ctx context.Context, query string) (domainVerdict, model.TokenUsage) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Pipeline.ClassifyTimeoutSecs)*time.Second)
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.HaikuModel,
		MaxTokens: 256,
		System:    anthropic.BuildCachedSystemBlocks(domainSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: query},
		},
		Temperature: temp(0),
	})
	if err != nil {
		zap.L().Warn("pipeline: domain check unavailable, allowing query",
			zap.String("query", query),
			zap.Error(err),
		)
		return domainVerdict{OnTopic: true}, model.TokenUsage{}
	}

	return parseDomainVerdict(extractText(resp)), p.attribute(p.cfg.Anthropic.HaikuModel, resp.Usage)
}

// checkAmbiguity asks the model whether the query needs clarification before
// it can be researched. Fails open to unambiguous.
func (p *Pipeline) checkAmbiguity(ctx context.Context, query string) (ambiguityVerdict, model.TokenUsage) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Pipeline.ClassifyTimeoutSecs)*time.Second)
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.HaikuModel,
		MaxTokens: 256,
		System:    anthropic.BuildCachedSystemBlocks(ambiguitySystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: query},
		},
		Temperature: temp(0),
	})
	if err != nil {
		zap.L().Warn("pipeline: ambiguity check unavailable, treating query as clear",
			zap.String("query", query),
			zap.Error(err),
		)
		return ambiguityVerdict{}, model.TokenUsage{}
	}

	return parseAmbiguityVerdict(extractText(resp)), p.attribute(p.cfg.Anthropic.HaikuModel, resp.Usage)
}

func parseDomainVerdict(text string) domainVerdict {
	text = cleanJSON(text)

	var result struct {
		IsRealEstate *bool    `json:"is_real_estate"`
		Reason       string   `json:"reason"`
		Suggestions  []string `json:"suggestions"`
	}

	if err := json.Unmarshal([]byte(text), &result); err != nil || result.IsRealEstate == nil {
		// Unreadable verdicts let the query through.
		return domainVerdict{OnTopic: true}
	}

	v := domainVerdict{
		OnTopic:     *result.IsRealEstate,
		Reason:      result.Reason,
		Suggestions: result.Suggestions,
	}
	if !v.OnTopic && v.Reason == "" {
		v.Reason = "This question is not related to real estate."
	}
	if len(v.Suggestions) > 3 {
		v.Suggestions = v.Suggestions[:3]
	}
	return v
}

func parseAmbiguityVerdict(text string) ambiguityVerdict {
	text = cleanJSON(text)

	var result struct {
		IsAmbiguous           bool   `json:"is_ambiguous"`
		ClarificationQuestion string `json:"clarification_question"`
	}

	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return ambiguityVerdict{}
	}
	if result.IsAmbiguous && result.ClarificationQuestion == "" {
		// No question to ask means nothing actionable; treat as clear.
		return ambiguityVerdict{}
	}

	return ambiguityVerdict{Ambiguous: result.IsAmbiguous, Question: result.ClarificationQuestion}
}
