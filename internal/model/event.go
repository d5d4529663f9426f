package model

// EventType identifies one kind of pipeline stream event.
type EventType string

const (
	EventStatus        EventType = "status"
	EventDomainReject  EventType = "domain_reject"
	EventClarification EventType = "clarification"
	EventPlan          EventType = "plan"
	EventSources       EventType = "sources"
	EventAnswerDelta   EventType = "answer_delta"
	EventKPIs          EventType = "kpis"
	EventTrends        EventType = "trends"
	EventComps         EventType = "comps"
	EventConfidence    EventType = "confidence"
	EventError         EventType = "error"
)

// Event is one element of the pipeline's ordered event stream.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// DomainRejectData explains a rejected off-domain query.
type DomainRejectData struct {
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ClarificationData asks the caller to disambiguate and retry.
type ClarificationData struct {
	Question      string `json:"question"`
	OriginalQuery string `json:"original_query"`
}

// StatusEvent builds a stage-transition event.
func StatusEvent(text string) Event {
	return Event{Type: EventStatus, Data: text}
}

// ErrorEvent builds a recoverable or fatal error event.
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Data: msg}
}

// DeltaEvent builds an answer text chunk event.
func DeltaEvent(chunk string) Event {
	return Event{Type: EventAnswerDelta, Data: chunk}
}
