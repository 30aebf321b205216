// Package prompt builds the chat messages that ask a model to estimate the footprint of a function call.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/valyala/fastjson"
)

// SystemInstruction tells the model what to estimate and which JSON keys to reply with.
const SystemInstruction = "Your job is to estimate the climate impact of running this function. " +
	"You will be provided with the function code, and the function arguments, in json format. " +
	"You will return results in json format, with keys g_co2, runtime_ms, and errors. " +
	"The errors response is a boolean, and should be true if you are unable to estimate the impact. " +
	"The g_co2 value should be an estimate of the total grams of CO2 emitted by running this function. " +
	"The runtime_ms value should be the estimated runtime of the function in milliseconds. " +
	"Assume the function is running on an x86 consumer desktop computer, " +
	"and do not consider the impact of this evaluation request. " +
	"If you choose to run the function to estimate the impact, feel free to add in any imports you might need. " +
	"If you are unable to estimate the impact, please set the errors value to true, " +
	"and do not provide the g_co2 or runtime_ms values."

// Call describes one invocation of a function submitted for estimation.
// Source is supplied by the caller: a source snapshot or a description of what the function does.
type Call struct {
	Name   string
	Source string
	Args   []any
	Kwargs map[string]any
}

// Messages returns the system and user messages for call.
func Messages(call Call) ([]openai.ChatCompletionMessageParamUnion, error) {
	content, err := UserContent(call)
	if err != nil {
		return nil, err
	}
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemInstruction),
		openai.UserMessage(content),
	}, nil
}

// UserContent serializes the function source and its arguments. The arguments are embedded as a
// JSON string holding {"args": [...], "kwargs": {...}}.
func UserContent(call Call) (string, error) {
	args, err := EncodeArgs(call.Args, call.Kwargs)
	if err != nil {
		return "", err
	}

	var a fastjson.Arena
	o := a.NewObject()
	if call.Name != "" {
		o.Set("function_name", a.NewString(call.Name))
	}
	o.Set("function_code", a.NewString(call.Source))
	o.Set("function_args", a.NewString(args))
	return string(o.MarshalTo(nil)), nil
}

// EncodeArgs encodes positional and keyword arguments. Nil collections encode as empty ones.
func EncodeArgs(args []any, kwargs map[string]any) (string, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	data, err := json.Marshal(struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}{args, kwargs})
	if err != nil {
		return "", fmt.Errorf("failed to encode function arguments: %w", err)
	}
	return string(data), nil
}
