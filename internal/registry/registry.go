// Package registry is the thin client for the registry protocol a
// package's `backend` publishes to: publish, yank, and resolving a
// download URL for an index-resolved package. Non-2xx responses are
// surfaced with their bodies so callers can report what the server said.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultTimeout is the HTTP request deadline for every registry operation.
const DefaultTimeout = 10 * time.Second

// Config is a registry's on-disk authentication record: the endpoint URL
// and a publish/yank token.
type Config struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type rawConfig struct {
	Registry Config `toml:"registry"`
}

// ReadConfig parses a registry config file (e.g. a project's `elba.reg`)
// from r.
func ReadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading registry config")
	}
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing registry config as TOML")
	}
	return &raw.Registry, nil
}

// MarshalTOML serializes c as a registry config file.
func (c *Config) MarshalTOML() ([]byte, error) {
	out, err := toml.Marshal(rawConfig{Registry: *c})
	return out, errors.Wrap(err, "marshaling registry config to TOML")
}

// ResponseError reports a non-2xx HTTP response from the registry, carrying
// the response body so callers can surface what the server said.
type ResponseError struct {
	Op     string
	Status string
	Code   int
	Body   []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("registry %s: %s: %s", e.Op, e.Status, string(e.Body))
}

// Client is the consumed capability exposing the registry's three
// operations. It holds no package-identity state of its own; every call
// names its package/version explicitly.
type Client struct {
	Config     Config
	HTTPClient *http.Client
}

// NewClient builds a Client against cfg, defaulting HTTPClient to one with
// DefaultTimeout when none is supplied.
func NewClient(cfg Config) *Client {
	return &Client{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// Publish uploads tarball as name@version, authenticated by token:
// PUT api/v1/packages/<group>/<name>/<version>/publish?token=….
func (c *Client) Publish(ctx context.Context, group, name, version string, tarball io.Reader, token string) error {
	u := fmt.Sprintf("%s/api/v1/packages/%s/%s/%s/publish?token=%s",
		c.Config.URL, url.PathEscape(group), url.PathEscape(name), url.PathEscape(version), url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, tarball)
	if err != nil {
		return errors.Wrap(err, "building publish request")
	}
	return c.do(req, "publish")
}

// Yank flips a published version's yanked flag:
// PATCH …/yank?yanked=<bool>&token=….
func (c *Client) Yank(ctx context.Context, group, name, version string, yanked bool, token string) error {
	u := fmt.Sprintf("%s/api/v1/packages/%s/%s/%s/yank?yanked=%t&token=%s",
		c.Config.URL, url.PathEscape(group), url.PathEscape(name), url.PathEscape(version), yanked, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, nil)
	if err != nil {
		return errors.Wrap(err, "building yank request")
	}
	return c.do(req, "yank")
}

// DownloadURL resolves the tarball location for name@version via a GET to
// the registry, returning the URL string it responds with.
func (c *Client) DownloadURL(ctx context.Context, group, name, version string) (string, error) {
	u := fmt.Sprintf("%s/api/v1/packages/%s/%s/%s/download",
		c.Config.URL, url.PathEscape(group), url.PathEscape(name), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "building download_url request")
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting download_url")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ResponseError{Op: "download_url", Status: resp.Status, Code: resp.StatusCode, Body: body}
	}
	return string(body), nil
}

// do issues req and surfaces a *ResponseError (with body) on any non-2xx
// status.
func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.client().Do(req)
	if err != nil {
		return errors.Wrapf(err, "registry %s request", op)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &ResponseError{Op: op, Status: resp.Status, Code: resp.StatusCode, Body: body}
	}
	return nil
}
