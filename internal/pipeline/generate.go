package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/pkg/anthropic"
)

const answerSystemPrompt = `You are a knowledgeable real estate assistant. Answer the user's question
using ONLY the provided source context. Follow these rules:

1. Cite sources using [Source N] notation inline where you use information from that source.
2. Be accurate, helpful, and concise.
3. If the sources don't contain enough information to fully answer, say so honestly.
4. Format your answer with clear paragraphs and bullet points where appropriate.
5. Do NOT make up information that isn't in the provided sources.
6. At the end, include a brief "Sources Used" summary listing which sources you cited.`

const answerUserPrompt = `Query: %s

Context from trusted sources:
%s`

// noSourceAnswer is served when retrieval produced nothing to cite.
const noSourceAnswer = "I couldn't find enough trusted sources to answer this question " +
	"with confidence. Please try rephrasing or asking a more specific " +
	"real estate question."

// degradedAnswer is served when generation fails or times out partway.
const degradedAnswer = "Answer generation was interrupted. The ranked sources above " +
	"are still worth a look; please try again in a moment."

const answerTemperature = 0.3

// generateAnswer streams the cited answer, emitting one answer_delta per
// chunk as it arrives. Failures degrade to a fixed fallback answer instead
// of failing the run; the degraded flag tells the caller not to cache.
func (p *Pipeline) generateAnswer(ctx context.Context, query string, sources []model.ScoredSource, emit emitFunc) (string, model.TokenUsage, bool) {
	if len(sources) == 0 {
		emit(model.DeltaEvent(noSourceAnswer))
		return noSourceAnswer, model.TokenUsage{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Pipeline.GenerateTimeoutSecs)*time.Second)
	defer cancel()

	stream, err := p.anthropic.StreamMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.SonnetModel,
		MaxTokens: int64(p.cfg.Pipeline.AnswerMaxTokens),
		System:    anthropic.BuildCachedSystemBlocks(answerSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(answerUserPrompt, query, sourceContext(sources))},
		},
		Temperature: temp(answerTemperature),
	})
	if err != nil {
		zap.L().Warn("pipeline: answer stream failed to start", zap.String("query", query), zap.Error(err))
		emit(model.DeltaEvent(degradedAnswer))
		return degradedAnswer, model.TokenUsage{}, true
	}
	defer stream.Close()

	var answer strings.Builder
	for stream.Next() {
		chunk := stream.Delta()
		answer.WriteString(chunk)
		if !emit(model.DeltaEvent(chunk)) {
			// Caller context is gone; whatever streamed so far is partial.
			return answer.String(), model.TokenUsage{}, true
		}
	}

	final, err := stream.Final()
	if err != nil {
		zap.L().Warn("pipeline: answer stream interrupted",
			zap.String("query", query),
			zap.Int("chars_streamed", answer.Len()),
			zap.Error(err),
		)
		if answer.Len() == 0 {
			emit(model.DeltaEvent(degradedAnswer))
			return degradedAnswer, model.TokenUsage{}, true
		}
		return answer.String(), model.TokenUsage{}, true
	}

	return answer.String(), p.attribute(p.cfg.Anthropic.SonnetModel, final.Usage), false
}

// sourceContext renders the numbered block the answer prompt cites with
// [Source N] markers. Numbering follows the ranked order.
func sourceContext(sources []model.ScoredSource) string {
	parts := make([]string, 0, len(sources))
	for i, s := range sources {
		parts = append(parts, fmt.Sprintf("[Source %d: %s (%s)]\n%s", i+1, s.Title, s.URL, s.Snippet))
	}
	return strings.Join(parts, "\n\n")
}
