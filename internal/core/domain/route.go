package domain

// Route confidence levels.
const (
	RouteStructured = "structured"
	RouteFallback   = "fallback"
)

// RouteDecision records how the smart router handled one URL. Produced once
// per invocation, returned in the tool output, never persisted.
type RouteDecision struct {
	MatchedToolKey string `json:"matched_tool_key,omitempty"`
	Confidence     string `json:"confidence"`
	Reason         string `json:"reason"`
}

// AsMap renders the decision for inclusion in a tool output envelope.
func (d RouteDecision) AsMap() map[string]any {
	m := map[string]any{
		"confidence": d.Confidence,
		"reason":     d.Reason,
	}
	if d.MatchedToolKey != "" {
		m["matched_tool_key"] = d.MatchedToolKey
	}
	return m
}
