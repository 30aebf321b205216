/*
Package estimate interprets chat-completion replies that carry a carbon estimate for a function call.
*/
package estimate

// Result is the outcome of interpreting one chat-completion reply.
//
// A Result is failed until every extraction step has succeeded, so any partially filled value
// returned from Interpret has Failed set.
type Result struct {
	// Payload is the decoded JSON object from the message content, nil if decoding never happened.
	Payload map[string]any `json:"payload,omitempty"`

	// GramsCO2 is the estimated total emissions of the function in grams of CO2.
	GramsCO2 float64 `json:"g_co2"`

	// RuntimeMS is the estimated runtime of the function in milliseconds.
	RuntimeMS float64 `json:"runtime_ms"`

	Failed bool `json:"failed"`

	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
}

// NewResult returns the default result: zero estimates, no payload, failed.
func NewResult() Result {
	return Result{Failed: true}
}
