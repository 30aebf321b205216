/*
Package carbonai estimates the carbon footprint of running a function by asking a chat model.

Evaluate runs the function, sends its source and arguments to the model and interprets the JSON
estimate in the reply. Estimation failures never change the function's own result.
*/
package carbonai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chefmayhem/carbonai-go/aimodel"
	"github.com/chefmayhem/carbonai-go/credentials"
	"github.com/chefmayhem/carbonai-go/estimate"
	"github.com/chefmayhem/carbonai-go/gpuserver"
	"github.com/chefmayhem/carbonai-go/impact"
	"github.com/chefmayhem/carbonai-go/prompt"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ErrClientNotConfigured is returned by Evaluate when no chat client could be built.
var ErrClientNotConfigured = errors.New("carbonai: chat client not initialized")

// CompletionService is the chat collaborator. *openai.ChatCompletionService satisfies it.
type CompletionService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Call describes one invocation submitted for estimation.
type Call = prompt.Call

// Report is what Evaluate learned about one invocation besides the function's result.
type Report struct {
	// ID identifies the invocation in log lines.
	ID string

	Estimate estimate.Result

	// Overhead is the footprint of the estimation request itself, nil when it cannot be modeled.
	Overhead *impact.Impacts

	// Raw is the chat completion, only set in debug mode.
	Raw *openai.ChatCompletion
}

// CarbonAI holds the chat client and settings shared by all evaluations.
// SetModel and SetDebug must not be called concurrently with Evaluate.
type CarbonAI struct {
	completions CompletionService
	model       string
	debug       bool
	zone        string
	logger      *slog.Logger
	registry    *aimodel.Registry
	server      *gpuserver.GPUServer
}

// New builds a CarbonAI. The login file is read once here; a missing file is not an error, but
// without an API key from WithAPIKey, the file or OPENAI_API_KEY no client is built and Evaluate
// returns ErrClientNotConfigured. Request options alone, such as a base URL, do not configure a
// client; keyless endpoints go through WithCompletions.
func New(opts ...Option) (*CarbonAI, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	registry, err := aimodel.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	server, err := gpuserver.GenericGPUServer()
	if err != nil {
		return nil, fmt.Errorf("failed to create gpu server model: %w", err)
	}

	c := &CarbonAI{
		completions: cfg.completions,
		model:       cfg.model,
		debug:       cfg.debug,
		zone:        cfg.zone,
		logger:      cfg.logger,
		registry:    registry,
		server:      server,
	}
	if c.completions == nil {
		c.completions = newCompletions(cfg)
	}
	return c, nil
}

func newCompletions(cfg config) CompletionService {
	creds := credentials.Load(cfg.credentialsPath, cfg.logger)
	if cfg.apiKey != "" {
		creds.Key = cfg.apiKey
	}
	if creds.Key == "" && os.Getenv("OPENAI_API_KEY") == "" {
		cfg.logger.Warn("no api key available, chat client not initialized")
		return nil
	}

	opts := append(creds.RequestOptions(), option.WithMaxRetries(0))
	opts = append(opts, cfg.requestOptions...)
	client := openai.NewClient(opts...)
	return &client.Chat.Completions
}

func (c *CarbonAI) SetModel(model string) {
	c.model = model
}

func (c *CarbonAI) SetDebug(debug bool) {
	c.debug = debug
}

// Evaluate runs fn, then asks the chat model to estimate the footprint of call.
//
// The result of fn is always returned. An error from fn is returned as is and skips estimation.
// A transport error from the chat client is returned unmodified together with the result.
// Estimation failures are reported through Report.Estimate.Failed and never produce an error.
// Without a chat client fn is not run and ErrClientNotConfigured is returned.
func Evaluate[T any](ctx context.Context, c *CarbonAI, call Call, fn func() (T, error)) (T, Report, error) {
	var zero T
	if c == nil || c.completions == nil {
		return zero, Report{}, ErrClientNotConfigured
	}

	report := Report{ID: uuid.NewString()}
	log := c.logger.With("invocation", report.ID, "function", call.Name)
	log.Info("calling function", "args", call.Args, "kwargs", call.Kwargs)

	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		return result, report, err
	}
	log.Debug("function finished", "elapsed", elapsed,
		"back_of_envelope_g_co2", impact.BackOfEnvelope(elapsed))

	if err := c.estimate(ctx, log, call, &report); err != nil {
		return result, report, err
	}
	return result, report, nil
}

// Wrap1 returns fn wrapped with Evaluate. The arguments of each call are sent to the model.
func Wrap1[A, R any](c *CarbonAI, name, source string, fn func(A) R) func(context.Context, A) (R, Report, error) {
	return func(ctx context.Context, a A) (R, Report, error) {
		call := Call{Name: name, Source: source, Args: []any{a}}
		return Evaluate(ctx, c, call, func() (R, error) {
			return fn(a), nil
		})
	}
}

// Wrap2 is Wrap1 for two argument functions.
func Wrap2[A, B, R any](c *CarbonAI, name, source string, fn func(A, B) R) func(context.Context, A, B) (R, Report, error) {
	return func(ctx context.Context, a A, b B) (R, Report, error) {
		call := Call{Name: name, Source: source, Args: []any{a, b}}
		return Evaluate(ctx, c, call, func() (R, error) {
			return fn(a, b), nil
		})
	}
}

func (c *CarbonAI) estimate(ctx context.Context, log *slog.Logger, call Call, report *Report) error {
	messages, err := prompt.Messages(call)
	if err != nil {
		return err
	}

	start := time.Now()
	completion, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    shared.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	latency := time.Since(start)
	if err != nil {
		return err
	}

	report.Estimate = estimate.InterpretCompletion(completion, log)
	if report.Estimate.Failed {
		log.Warn("error status in response, carbon estimate failed")
	} else {
		log.Info("estimated CO2 emissions", "g_co2", report.Estimate.GramsCO2,
			"runtime_ms", report.Estimate.RuntimeMS)
	}

	report.Overhead = c.overhead(log, completion, report.Estimate, latency)
	if c.debug {
		report.Raw = completion
	}
	return nil
}

// overhead models the footprint of the estimation request from the reply's token usage.
func (c *CarbonAI) overhead(
	log *slog.Logger,
	completion *openai.ChatCompletion,
	res estimate.Result,
	latency time.Duration,
) *impact.Impacts {
	if completion == nil || res.CompletionTokens == 0 {
		return nil
	}
	model, err := c.registry.Lookup(completion.Model)
	if err != nil {
		model, err = c.registry.Lookup(c.model)
	}
	if err != nil {
		log.Debug("request overhead not modeled", "err", err.Error())
		return nil
	}

	impacts, err := impact.ComputeImpacts(model, c.server, impact.Request{
		OutputTokens: float64(res.CompletionTokens),
		LatencySecs:  latency.Seconds(),
		Zone:         c.zone,
	})
	if err != nil {
		log.Debug("request overhead not modeled", "err", err.Error())
		return nil
	}
	log.Debug("estimation request overhead", "model", model.Name(),
		"gwp_kgco2eq_min", impacts.GWP.Total.Min, "gwp_kgco2eq_max", impacts.GWP.Total.Max)
	return &impacts
}
