package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/realty-search/pkg/anthropic"
)

func TestParseDomainVerdict_OnTopic(t *testing.T) {
	v := parseDomainVerdict(`{"is_real_estate": true, "reason": "asks about home prices"}`)

	assert.True(t, v.OnTopic)
	assert.Empty(t, v.Suggestions)
}

func TestParseDomainVerdict_OffTopic(t *testing.T) {
	v := parseDomainVerdict(`{
		"is_real_estate": false,
		"reason": "This asks about cooking, not real estate.",
		"suggestions": ["What are home prices in Austin?", "Is now a good time to buy?"]
	}`)

	assert.False(t, v.OnTopic)
	assert.Equal(t, "This asks about cooking, not real estate.", v.Reason)
	assert.Len(t, v.Suggestions, 2)
}

func TestParseDomainVerdict_OffTopicDefaultReason(t *testing.T) {
	v := parseDomainVerdict(`{"is_real_estate": false, "reason": ""}`)

	assert.False(t, v.OnTopic)
	assert.Equal(t, "This question is not related to real estate.", v.Reason)
}

func TestParseDomainVerdict_SuggestionsCapped(t *testing.T) {
	v := parseDomainVerdict(`{
		"is_real_estate": false,
		"reason": "off topic",
		"suggestions": ["a", "b", "c", "d", "e"]
	}`)

	assert.Len(t, v.Suggestions, 3)
}

func TestParseDomainVerdict_MalformedFailsOpen(t *testing.T) {
	for _, text := range []string{
		"not json at all",
		`{"is_real_estate":`,
		`{"reason": "verdict field missing"}`,
		"",
	} {
		v := parseDomainVerdict(text)
		assert.True(t, v.OnTopic, "input %q should fail open", text)
	}
}

func TestParseDomainVerdict_CodeFence(t *testing.T) {
	v := parseDomainVerdict("```json\n{\"is_real_estate\": false, \"reason\": \"sports question\"}\n```")

	assert.False(t, v.OnTopic)
	assert.Equal(t, "sports question", v.Reason)
}

func TestParseAmbiguityVerdict_Clear(t *testing.T) {
	v := parseAmbiguityVerdict(`{"is_ambiguous": false, "clarification_question": ""}`)

	assert.False(t, v.Ambiguous)
}

func TestParseAmbiguityVerdict_Ambiguous(t *testing.T) {
	v := parseAmbiguityVerdict(`{"is_ambiguous": true, "clarification_question": "Which city did you mean?"}`)

	assert.True(t, v.Ambiguous)
	assert.Equal(t, "Which city did you mean?", v.Question)
}

func TestParseAmbiguityVerdict_AmbiguousWithoutQuestion(t *testing.T) {
	// No question to ask means nothing actionable, so the query proceeds.
	v := parseAmbiguityVerdict(`{"is_ambiguous": true, "clarification_question": ""}`)

	assert.False(t, v.Ambiguous)
}

func TestParseAmbiguityVerdict_MalformedTreatedClear(t *testing.T) {
	v := parseAmbiguityVerdict("garbage output")

	assert.False(t, v.Ambiguous)
}

func TestCheckDomain_LLMErrorFailsOpen(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("api: overloaded"))

	p := New(testConfig(), nil, nil, nil, nil, ai)
	v, usage := p.checkDomain(context.Background(), "median price in Austin")

	assert.True(t, v.OnTopic)
	assert.Zero(t, usage.Cost)
	ai.AssertExpectations(t)
}

func TestCheckDomain_AttributesUsage(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"is_real_estate": true, "reason": "on topic"}`), nil)

	p := New(testConfig(), nil, nil, nil, nil, ai)
	v, usage := p.checkDomain(context.Background(), "median price in Austin")

	assert.True(t, v.OnTopic)
	assert.Equal(t, 120, usage.InputTokens)
	assert.Equal(t, 40, usage.OutputTokens)
	assert.Greater(t, usage.Cost, 0.0)
}

func TestCheckAmbiguity_LLMErrorTreatsClear(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("api: timeout"))

	p := New(testConfig(), nil, nil, nil, nil, ai)
	v, usage := p.checkAmbiguity(context.Background(), "prices")

	assert.False(t, v.Ambiguous)
	assert.Zero(t, usage.Cost)
}

func TestCheckDomain_UsesHaiku(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" && req.Temperature != nil && *req.Temperature == 0
	})).Return(textResponse(`{"is_real_estate": true, "reason": ""}`), nil)

	p := New(testConfig(), nil, nil, nil, nil, ai)
	p.checkDomain(context.Background(), "median price in Austin")

	ai.AssertExpectations(t)
}
