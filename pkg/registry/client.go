package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config configures an HTTP registry client.
type Config struct {
	// BaseURL is the registry root, e.g. "https://registry.npmjs.org".
	BaseURL string

	// RequestsPerSecond caps outbound resolution calls. Zero disables limiting.
	RequestsPerSecond float64

	// Timeout bounds a single resolution round trip.
	// Zero uses a 15s default.
	Timeout time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("registry base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid registry base URL: %w", err)
	}
	return nil
}

// HTTPClient resolves packages against an npm-style registry endpoint.
//
// Resolution requests GET {base}/{name}/{spec}; the registry performs range
// matching server-side and responds with the winning version's manifest.
type HTTPClient struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// New creates an HTTP registry client.
func New(cfg Config) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HTTPClient{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}, nil
}

// Resolve implements Client.
func (c *HTTPClient) Resolve(ctx context.Context, name, spec string) (*Manifest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("package name is required")}
	}
	if spec == "" {
		spec = "latest"
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ResolutionError{Name: name, Spec: spec, Err: err}
		}
	}

	// Scoped names keep their slash; the spec segment is always escaped.
	endpoint := fmt.Sprintf("%s/%s/%s", c.base, escapeName(name), url.PathEscape(spec))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ResolutionError{Name: name, Spec: spec, Err: ErrPackageNotFound}
	case resp.StatusCode >= 500:
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("%w: status %d", ErrRegistryUnavailable, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("read manifest body: %w", err)}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("parse manifest: %w", err)}
	}

	m := &Manifest{Raw: raw}
	if v, ok := raw["name"].(string); ok {
		m.Name = v
	}
	if v, ok := raw["version"].(string); ok {
		m.Version = v
	}
	if m.Name == "" || m.Version == "" {
		return nil, &ResolutionError{Name: name, Spec: spec, Err: fmt.Errorf("manifest missing name or version")}
	}

	return m, nil
}

// escapeName escapes a package name for use as a registry path segment.
// Scoped names ("@scope/pkg") keep the scope separator.
func escapeName(name string) string {
	if i := strings.Index(name, "/"); i > 0 && strings.HasPrefix(name, "@") {
		return url.PathEscape(name[:i]) + "/" + url.PathEscape(name[i+1:])
	}
	return url.PathEscape(name)
}
