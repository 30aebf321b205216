package estimate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/valyala/fastjson"
)

const (
	// completionObject is the tag carried by every chat-completion reply.
	completionObject = "chat.completion"

	// finishStop is the finish reason of a reply the model completed normally.
	finishStop = "stop"

	KeyGramsCO2  = "g_co2"
	KeyRuntimeMS = "runtime_ms"
	KeyErrors    = "errors"
)

// noErrorFlags are the textual forms of the errors field that mean the estimate is usable.
// Matching is exact, not case-insensitive.
var noErrorFlags = map[string]struct{}{
	"false": {},
	"False": {},
	"0":     {},
	"f":     {},
	"F":     {},
}

// InterpretCompletion interprets a reply returned by the openai-go client or built by another
// chat collaborator. Decoded replies are interpreted from their raw JSON; values built in memory
// are serialized first and carry the completion tag by virtue of their type.
// A nil completion yields a failed result.
func InterpretCompletion(completion *openai.ChatCompletion, logger *slog.Logger) Result {
	if completion == nil {
		return Interpret(nil, logger)
	}
	if raw := completion.RawJSON(); raw != "" {
		return Interpret([]byte(raw), logger)
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := json.Marshal(completion)
	if err != nil {
		logger.Warn("carbon estimate failed", "reason", "completion cannot be serialized", "err", err.Error())
		return NewResult()
	}
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil || v.Type() != fastjson.TypeObject {
		logger.Warn("carbon estimate failed", "reason", "response is not a chat completion")
		return NewResult()
	}
	if len(v.GetStringBytes("object")) == 0 {
		var a fastjson.Arena
		v.Set("object", a.NewString(completionObject))
	}
	return interpretValue(v, logger)
}

// Interpret validates the raw JSON of a chat-completion reply and extracts the estimate it carries.
//
// The checks run in a fixed order: completion tag, usage tokens, choice count, finish reason,
// message shape, content type, content decode, g_co2, runtime_ms, errors flag. The first check
// that fails ends interpretation and the partially filled result is returned with Failed set.
// Interpret never panics and never returns an error.
func Interpret(raw []byte, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	var p fastjson.Parser
	completion, err := p.ParseBytes(raw)
	if err != nil {
		logger.Warn("carbon estimate failed", "reason", "response is not a chat completion")
		return NewResult()
	}
	return interpretValue(completion, logger)
}

func interpretValue(completion *fastjson.Value, logger *slog.Logger) Result {
	res := NewResult()
	if completion.Type() != fastjson.TypeObject ||
		string(completion.GetStringBytes("object")) != completionObject {
		logger.Warn("carbon estimate failed", "reason", "response is not a chat completion")
		return res
	}

	usage := completion.Get("usage")
	if usage == nil || usage.Type() != fastjson.TypeObject {
		logger.Warn("carbon estimate failed", "reason", "response has no usage")
		return res
	}
	promptTokens, ok := tokenCount(usage, "prompt_tokens")
	if !ok {
		logger.Warn("carbon estimate failed", "reason", "invalid prompt_tokens")
		return res
	}
	completionTokens, ok := tokenCount(usage, "completion_tokens")
	if !ok {
		logger.Warn("carbon estimate failed", "reason", "invalid completion_tokens")
		return res
	}
	res.PromptTokens = promptTokens
	res.CompletionTokens = completionTokens

	choices := completion.GetArray("choices")
	if len(choices) < 1 {
		logger.Warn("carbon estimate failed", "reason", "response has no choices")
		return res
	}
	first := choices[0]

	if reason := string(first.GetStringBytes("finish_reason")); reason != finishStop {
		logger.Warn("carbon estimate failed", "reason", "response did not finish", "finish_reason", reason)
		return res
	}

	message := first.Get("message")
	if message == nil || message.Type() != fastjson.TypeObject {
		logger.Warn("carbon estimate failed", "reason", "message is not a chat completion message")
		return res
	}

	content := message.Get("content")
	if content == nil || content.Type() != fastjson.TypeString {
		logger.Warn("carbon estimate failed", "reason", "message content is not a string",
			"content", rawText(content))
		return res
	}
	text, _ := content.StringBytes()

	var cp fastjson.Parser
	payload, err := cp.ParseBytes(text)
	if err != nil || payload.Type() != fastjson.TypeObject {
		logger.Warn("carbon estimate failed", "reason", "message content is not a json object",
			"content", string(text))
		return res
	}
	res.Payload, _ = toAny(payload).(map[string]any)

	grams, ok := toFloat(lastField(payload, KeyGramsCO2))
	if !ok {
		logger.Warn("carbon estimate failed", "reason", "response does not have "+KeyGramsCO2)
		return res
	}
	res.GramsCO2 = grams

	runtime, ok := toFloat(lastField(payload, KeyRuntimeMS))
	if !ok {
		logger.Warn("carbon estimate failed", "reason", "response does not have "+KeyRuntimeMS)
		return res
	}
	res.RuntimeMS = runtime

	flag := lastField(payload, KeyErrors)
	if flag == nil {
		logger.Warn("carbon estimate failed", "reason", "response does not have "+KeyErrors)
		return res
	}
	_, noErrors := noErrorFlags[flagText(flag)]
	res.Failed = !noErrors
	return res
}

// lastField returns the last occurrence of key in an object, matching the Payload map when a
// reply repeats a key.
func lastField(obj *fastjson.Value, key string) *fastjson.Value {
	o, err := obj.Object()
	if err != nil {
		return nil
	}
	var found *fastjson.Value
	o.Visit(func(k []byte, v *fastjson.Value) {
		if string(k) == key {
			found = v
		}
	})
	return found
}

// parseFloat accepts out of range values as infinities.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func tokenCount(usage *fastjson.Value, key string) (int64, bool) {
	v := usage.Get(key)
	if v == nil || v.Type() != fastjson.TypeNumber {
		return 0, false
	}
	n, err := v.Int64()
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// toFloat accepts numbers, numeric strings and booleans.
func toFloat(v *fastjson.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return parseFloat(v.String())
	case fastjson.TypeString:
		s, _ := v.StringBytes()
		return parseFloat(strings.TrimSpace(string(s)))
	case fastjson.TypeTrue:
		return 1, true
	case fastjson.TypeFalse:
		return 0, true
	default:
		return 0, false
	}
}

// flagText renders the errors field for matching against noErrorFlags.
// Booleans render capitalized, integers in canonical decimal form, everything else as JSON text.
func flagText(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		s, _ := v.StringBytes()
		return string(s)
	case fastjson.TypeTrue:
		return "True"
	case fastjson.TypeFalse:
		return "False"
	case fastjson.TypeNull:
		return "None"
	case fastjson.TypeNumber:
		raw := v.String()
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return raw
	default:
		return v.String()
	}
}

func rawText(v *fastjson.Value) string {
	if v == nil {
		return "<missing>"
	}
	return v.String()
}

func toAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object()
		m := make(map[string]any, o.Len())
		o.Visit(func(k []byte, item *fastjson.Value) {
			m[string(k)] = toAny(item)
		})
		return m
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeString:
		s, _ := v.StringBytes()
		return string(s)
	case fastjson.TypeNumber:
		f, _ := parseFloat(v.String())
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
