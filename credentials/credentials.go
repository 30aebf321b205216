// Package credentials loads chat API login details from a local JSON file.
package credentials

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go/option"
	"github.com/valyala/fastjson"
)

// DefaultPath is where the login file is looked up when no path is configured.
const DefaultPath = "./login_info.json"

// Credentials holds the optional login fields. An empty field is absent.
type Credentials struct {
	Key     string
	Org     string
	Project string
}

// Load reads the login file at path. It never fails: a missing or malformed file logs a warning
// and yields empty credentials.
func Load(path string, logger *slog.Logger) Credentials {
	if logger == nil {
		logger = slog.Default()
	}
	creds, err := Parse(path)
	if err != nil {
		logger.Warn("could not load secret file", "path", path, "err", err.Error())
		return Credentials{}
	}
	return creds
}

// Parse reads the login file at path and returns an error if it cannot be read or decoded.
// Fields that are missing or not strings are left empty.
func Parse(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read file: %w", err)
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse file: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return Credentials{}, fmt.Errorf("login file must hold a json object, got %s", v.Type())
	}

	return Credentials{
		Key:     string(v.GetStringBytes("key")),
		Org:     string(v.GetStringBytes("org")),
		Project: string(v.GetStringBytes("proj")),
	}, nil
}

// RequestOptions converts the present fields to client options.
func (c Credentials) RequestOptions() []option.RequestOption {
	var opts []option.RequestOption
	if c.Key != "" {
		opts = append(opts, option.WithAPIKey(c.Key))
	}
	if c.Org != "" {
		opts = append(opts, option.WithOrganization(c.Org))
	}
	if c.Project != "" {
		opts = append(opts, option.WithProject(c.Project))
	}
	return opts
}
