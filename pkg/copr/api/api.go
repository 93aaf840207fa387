package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/version"
)

const DefaultURL = "https://copr.fedorainfracloud.org"

type options struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option interface {
	apply(*options)
}

type urlOption string

func (o urlOption) apply(opts *options) {
	opts.url = string(o)
}

// WithURL sets the root URL of the COPR frontend.
func WithURL(url string) Option {
	return urlOption(url)
}

type httpClientOption struct {
	c *http.Client
}

func (o httpClientOption) apply(opts *options) {
	opts.httpClient = o.c
}

func WithHTTPClient(c *http.Client) Option {
	return httpClientOption{c: c}
}

type loggerOption struct {
	l *slog.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.logger = o.l
}

// WithLogger sets the logger requests and responses are logged to at debug level.
func WithLogger(l *slog.Logger) Option {
	return loggerOption{l: l}
}

// Client talks to the monitor endpoint of API v1 and the build endpoint of API v2. API v2 has no
// monitor equivalent, hence both.
type Client struct {
	root       string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

func New(opts ...Option) *Client {
	options := &options{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o.apply(options)
	}

	return &Client{
		root:       strings.TrimSuffix(options.url, "/"),
		httpClient: options.httpClient,
		userAgent:  version.String(),
		logger:     options.logger,
	}
}

// Monitor returns the current build status of every package of user/project.
func (c *Client) Monitor(ctx context.Context, user, project string) (*Monitor, error) {
	u := fmt.Sprintf("%s/api/coprs/%s/%s/monitor", c.root, url.PathEscape(user), url.PathEscape(project))

	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer closeBody(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			c.logger.Debug("Decode not found body", "url", u, "err", err)
		}
		return nil, errors.WithStack(&ProjectNotFoundError{User: user, Project: project, Message: body.Error})
	case !success(resp.StatusCode):
		return nil, errors.WithStack(&ServiceError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var m Monitor
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "decode %s", u)
	}
	return &m, nil
}

// Build returns the details of one build including its build tasks.
func (c *Client) Build(ctx context.Context, buildID int) (*BuildDetail, error) {
	u := fmt.Sprintf("%s/api_2/build/%d?%s", c.root, buildID, url.Values{"show_build_tasks": []string{"True"}}.Encode())

	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer closeBody(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// the body does not reliably carry a message for this endpoint
		return nil, errors.WithStack(&BuildNotFoundError{BuildID: buildID})
	case !success(resp.StatusCode):
		return nil, errors.WithStack(&ServiceError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var d BuildDetail
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, errors.Wrapf(err, "decode %s", u)
	}
	return &d, nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "new request %s", u)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("GET", "url", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectivityError{URL: u, Err: err}
	}
	c.logger.Debug("Response", "url", u, "status", resp.StatusCode)

	return resp, nil
}

func success(code int) bool {
	return code >= 200 && code < 300
}

// closeBody drains the body so the transport can reuse the connection.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
