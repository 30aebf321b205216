package carbonai

import (
	"log/slog"

	"github.com/chefmayhem/carbonai-go/credentials"
	"github.com/chefmayhem/carbonai-go/impact"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the chat model asked for estimates unless WithModel says otherwise.
const DefaultModel = "gpt-4o-mini"

type config struct {
	model           string
	debug           bool
	logger          *slog.Logger
	credentialsPath string
	apiKey          string
	completions     CompletionService
	requestOptions  []option.RequestOption
	zone            string
}

func defaultConfig() config {
	return config{
		model:           DefaultModel,
		logger:          slog.Default(),
		credentialsPath: credentials.DefaultPath,
		zone:            impact.DefaultZone,
	}
}

// Option configures a CarbonAI.
type Option func(*config)

// WithModel sets the chat model, for example "gpt-4o", "gpt-4o-mini" or "gpt-3.5-turbo".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithDebug makes every Report carry the raw chat completion.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.debug = debug
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCredentialsFile sets the login file read at construction.
func WithCredentialsFile(path string) Option {
	return func(c *config) {
		c.credentialsPath = path
	}
}

// WithAPIKey sets the API key, taking precedence over the key in the login file.
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.apiKey = key
	}
}

// WithCompletions replaces the openai-go client with another chat collaborator.
// Credentials and request options are ignored when it is set.
func WithCompletions(svc CompletionService) Option {
	return func(c *config) {
		c.completions = svc
	}
}

// WithRequestOptions appends options to the openai-go client, after the credential options.
// They are only used once an API key is available.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *config) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

// WithGridZone sets the electricity mix zone used for the estimation request overhead.
func WithGridZone(zone string) Option {
	return func(c *config) {
		c.zone = zone
	}
}
