package mold

import (
	gocontext "context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ablecloud-io/fence/context"
	fenceerrors "github.com/ablecloud-io/fence/errors"
	"github.com/ablecloud-io/fence/metrics"
	simplejson "github.com/bitly/go-simplejson"
	"github.com/jtacoma/uritemplates"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/plugin/ochttp"
)

const (
	defaultTimeout  = 30 * time.Second
	baseURLTemplate = "{scheme}://{+host}:{port}/client/api"
)

var (
	// ErrMissingEndpoint is returned by NewClient when the management host or
	// protocol is empty.
	ErrMissingEndpoint = fmt.Errorf("expected management api protocol and host")

	// ErrMissingCredentials is returned by NewClient when either key is empty.
	ErrMissingCredentials = fmt.Errorf("expected api key and secret key")
)

// Credentials identify the caller. SecretKey is only ever used as the HMAC
// key and is never sent.
type Credentials struct {
	APIKey    string
	SecretKey string
}

// Endpoint locates the management API.
type Endpoint struct {
	Protocol string
	Host     string
	Port     string
}

// URL expands the endpoint into the API base URL, e.g.
// https://10.10.1.10:8080/client/api
func (e Endpoint) URL() (*url.URL, error) {
	if e.Protocol == "" || e.Host == "" {
		return nil, ErrMissingEndpoint
	}

	template, err := uritemplates.Parse(baseURLTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse base URL template")
	}

	expanded, err := template.Expand(map[string]interface{}{
		"scheme": strings.ToLower(e.Protocol),
		"host":   e.Host,
		"port":   e.Port,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't expand base URL template")
	}

	if e.Port == "" {
		expanded = strings.Replace(expanded, ":/client/api", "/client/api", 1)
	}

	return url.Parse(expanded)
}

// ClientConfig is everything needed to build a Client.
type ClientConfig struct {
	Endpoint    Endpoint
	Credentials Credentials

	// Timeout bounds each HTTP request. Zero means the default of 30s.
	Timeout time.Duration

	// InsecureSkipVerify disables verification of the server certificate
	// chain.
	InsecureSkipVerify bool
}

// Client executes signed requests against the management API. Each call is a
// single attempt.
type Client struct {
	baseURL     *url.URL
	credentials Credentials
	httpClient  *http.Client
}

func NewClient(cfg *ClientConfig) (*Client, error) {
	baseURL, err := cfg.Endpoint.URL()
	if err != nil {
		return nil, err
	}

	if cfg.Credentials.APIKey == "" || cfg.Credentials.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}

	return &Client{
		baseURL:     baseURL,
		credentials: cfg.Credentials,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &ochttp.Transport{Base: transport},
		},
	}, nil
}

// BaseURL returns a copy of the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// complete returns a copy of r with response=json and the api key appended
// when the caller did not set them.
func (c *Client) complete(r *Request) *Request {
	r = r.clone()
	if _, ok := r.Get("response"); !ok {
		r.Set("response", "json")
	}
	if _, ok := r.Get("apikey"); !ok {
		r.Set("apikey", c.credentials.APIKey)
	}
	return r
}

// URLFor returns the fully signed URL for r.
func (c *Client) URLFor(r *Request) (*url.URL, error) {
	if r.Command() == "" {
		return nil, fenceerrors.NewSigningError("", errors.New("request has no command"))
	}

	r = c.complete(r)

	u := c.BaseURL()
	u.RawQuery = r.Encode() + "&signature=" + Sign(r, c.credentials.SecretKey)
	return u, nil
}

// Execute sends r and returns the raw response body. Connection failures,
// timeouts and non-2xx statuses are returned as transport errors.
func (c *Client) Execute(ctx gocontext.Context, r *Request) ([]byte, error) {
	command := r.Command()
	ctx = context.FromCommand(ctx, command)
	logger := context.LoggerFromContext(ctx).WithField("self", "mold_client")

	u, err := c.URLFor(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, fenceerrors.NewTransportError(command, errors.Wrap(err, "error creating request"))
	}
	req = req.WithContext(ctx)

	logger.WithField("url", c.baseURL.String()).Debug("performing GET request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.Mark(fmt.Sprintf("fence.mold.api.%s.error", strings.ToLower(command)))
		return nil, fenceerrors.NewTransportError(command, errors.Wrap(err, "error sending request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.Mark(fmt.Sprintf("fence.mold.api.%s.error", strings.ToLower(command)))
		return nil, fenceerrors.NewTransportError(command, errors.Wrap(err, "error reading response body"))
	}

	metrics.TimeSince(fmt.Sprintf("fence.mold.api.%s", strings.ToLower(command)), startTime)

	logger.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(startTime),
	}).Debug("received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Mark(fmt.Sprintf("fence.mold.api.%s.error", strings.ToLower(command)))

		if text := apiErrorText(command, body); text != "" {
			return nil, fenceerrors.NewTransportError(command,
				errors.Errorf("expected 2xx response code, got status=%v errortext=%q", resp.StatusCode, text))
		}
		return nil, fenceerrors.NewTransportError(command,
			errors.Errorf("expected 2xx response code, got status=%v body=%q", resp.StatusCode, truncate(body, 256)))
	}

	return body, nil
}

// Call executes r and decodes the JSON envelope.
func (c *Client) Call(ctx gocontext.Context, r *Request) (*simplejson.Json, error) {
	body, err := c.Execute(ctx, r)
	if err != nil {
		return nil, err
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fenceerrors.NewResponseShapeError(r.Command(), errors.Wrap(err, "couldn't decode response"))
	}

	return js, nil
}

// apiErrorText extracts errortext from an error envelope such as
// {"stopvirtualmachineresponse":{"errorcode":431,"errortext":"..."}}.
func apiErrorText(command string, body []byte) string {
	js, err := simplejson.NewJson(body)
	if err != nil {
		return ""
	}

	text, err := js.GetPath(strings.ToLower(command)+"response", "errortext").String()
	if err != nil {
		return ""
	}
	return text
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
