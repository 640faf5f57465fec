package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultFetchTimeout = 10 * time.Second

// Source yields one readable CSV document per Open call.
type Source interface {
	// Ref is a human-readable reference for diagnostics (path or URL).
	Ref() string

	// Open returns the document body. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a local CSV file.
type FileSource struct {
	Path string
}

func (s FileSource) Ref() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", s.Path, err)
	}
	return f, nil
}

// AuthConfig specifies how HTTPSource authenticates to its endpoint.
// Secret values are referenced by environment variable name, never stored.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name the API key is sent in.
	// Used when Mode == "apikey".
	Header string `yaml:"header"`
	// KeyEnv names the environment variable holding the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username (safe to store in config).
	Username string `yaml:"username"`
	// PasswordEnv names the environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// HTTPSource fetches a CSV document over HTTP.
type HTTPSource struct {
	Endpoint string
	Auth     AuthConfig

	// Client overrides the HTTP client, mainly for tests. Nil uses a
	// client with the default fetch timeout.
	Client *http.Client
}

func (s *HTTPSource) Ref() string { return s.Endpoint }

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}

	switch s.Auth.Mode {
	case "apikey":
		header := s.Auth.Header
		if header == "" {
			header = "x-api-key"
		}
		req.Header.Set(header, s.Auth.Key())
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+s.Auth.Token())
	case "basic":
		req.SetBasicAuth(s.Auth.Username, s.Auth.Password())
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %q: %w", s.Endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("source: fetch %q: unexpected status %d", s.Endpoint, resp.StatusCode)
	}
	return resp.Body, nil
}

// SheetURL builds the CSV export endpoint for one sheet of a published
// Google spreadsheet. The spreadsheet must be readable by link; credentialed
// API access is a separate concern outside this package.
func SheetURL(spreadsheetID, sheetName string) string {
	return fmt.Sprintf(
		"https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		url.PathEscape(spreadsheetID),
		url.QueryEscape(sheetName),
	)
}
