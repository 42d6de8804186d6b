package domain

import "sort"

// EventType distinguishes why a turn was started.
type EventType string

const (
	// EventNew starts a brand-new session at the rule set serving the endpoint.
	EventNew EventType = "new"
	// EventResume continues a session without customer input.
	EventResume EventType = "resume"
	// EventInput delivers customer input to the rule awaiting it.
	EventInput EventType = "input"
	// EventHangup marks the session as terminating.
	EventHangup EventType = "hangup"
)

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	switch e {
	case EventNew, EventResume, EventInput, EventHangup:
		return true
	}
	return false
}

// Request is the logical turn request sent by a channel.
type Request struct {
	SessionID         string            `json:"sessionId"`
	EndPoint          string            `json:"endPoint,omitempty"`
	EventType         EventType         `json:"eventType"`
	Input             string            `json:"input,omitempty"`
	ContactAttributes map[string]string `json:"contactAttributes,omitempty"`
	WantAudio         bool              `json:"wantAudio,omitempty"`
}

// Response is what the engine returns for a turn.
type Response struct {
	SessionID      string         `json:"sessionId"`
	InputRequired  bool           `json:"inputRequired"`
	Message        string         `json:"message,omitempty"`
	Audio          []byte         `json:"audio,omitempty"`
	Terminate      bool           `json:"terminate,omitempty"`
	RuleSet        string         `json:"ruleSet"`
	Rule           string         `json:"rule"`
	RuleType       string         `json:"ruleType"`
	QueueID        string         `json:"queueId,omitempty"`
	ExternalNumber string         `json:"externalNumber,omitempty"`
	State          map[string]any `json:"state"`
}

// Invocation is the payload handed to an AsyncInvoker by the integration rule type.
// The worker reports back by writing KeyIntegrationStatus (and any results) into
// the session state, tagged with RequestID.
type Invocation struct {
	RequestID    string         `json:"requestId"`
	SessionID    string         `json:"sessionId"`
	FunctionName string         `json:"functionName"`
	FunctionID   string         `json:"functionId"`
	State        map[string]any `json:"state"`
}

// Classification is the result of an NLU classification.
type Classification struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots,omitempty"`
}

// Slot returns the first non-empty slot value, preferring name.
func (c *Classification) Slot(name string) string {
	if v := c.Slots[name]; v != "" {
		return v
	}
	if v := c.Slots["value"]; v != "" {
		return v
	}
	keys := make([]string, 0, len(c.Slots))
	for k := range c.Slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := c.Slots[k]; v != "" {
			return v
		}
	}
	return ""
}
